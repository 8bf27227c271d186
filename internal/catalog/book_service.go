// Package catalog は蔵書と著者の管理ドメインロジックを提供する。
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/repository"
	"github.com/hitoshi/bookman/internal/security"
)

// 違反ルールのメッセージ定義。
// バリデーションは違反したルールすべてを列挙して返す。
const (
	violationTitleMissing    = "title: タイトルは必須です"
	violationTitleLength     = "title: タイトルは200文字以内で指定してください"
	violationAuthorIDMissing = "author_id: 著者IDは必須です"
	violationISBNLength      = "isbn: ISBNは20文字以内で指定してください"
	violationYearRange       = "published_year: 出版年は0〜2100の範囲で指定してください"

	violationAuthorFirstNameMissing = "first_name: 名は必須です"
	violationAuthorFirstNameLength  = "first_name: 名は50文字以内で指定してください"
	violationAuthorLastNameMissing  = "last_name: 姓は必須です"
	violationAuthorLastNameLength   = "last_name: 姓は50文字以内で指定してください"
	violationAuthorEmailFormat      = "email: メールアドレスの形式が不正です"
)

// BookInput は蔵書の作成・更新リクエストの入力。
type BookInput struct {
	Title         string `json:"title" validate:"required,max=200"`
	AuthorID      string `json:"author_id" validate:"required"`
	ISBN          string `json:"isbn" validate:"omitempty,max=20"`
	PublishedYear int    `json:"published_year" validate:"omitempty,gte=0,lte=2100"`
	Summary       string `json:"summary"`
}

// BookService は蔵書管理のサービス層。
type BookService struct {
	books     repository.BookRepository
	authors   repository.AuthorRepository
	sanitizer security.ContentSanitizerService
	validate  *validator.Validate
}

// NewBookService はBookServiceを生成する。
func NewBookService(
	books repository.BookRepository,
	authors repository.AuthorRepository,
	sanitizer security.ContentSanitizerService,
) *BookService {
	return &BookService{
		books:     books,
		authors:   authors,
		sanitizer: sanitizer,
		validate:  validator.New(),
	}
}

// List は蔵書の一覧を返す。
func (s *BookService) List(ctx context.Context) ([]*model.Book, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// Get は指定IDの蔵書を返す。見つからない場合はBOOK_NOT_FOUND。
func (s *BookService) Get(ctx context.Context, id string) (*model.Book, error) {
	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find book: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(id)
	}
	return book, nil
}

// Create は蔵書を作成する。
// 概要はサニタイズされ、参照する著者の存在が検査される。
func (s *BookService) Create(ctx context.Context, input BookInput) (*model.Book, error) {
	if violations := s.validateBook(input); len(violations) > 0 {
		return nil, model.NewValidationFailedError(violations)
	}

	author, err := s.authors.FindByID(ctx, input.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find author: %w", err)
	}
	if author == nil {
		return nil, model.NewAuthorNotFoundError(input.AuthorID)
	}

	book := &model.Book{
		Title:         input.Title,
		AuthorID:      input.AuthorID,
		ISBN:          input.ISBN,
		PublishedYear: input.PublishedYear,
		Summary:       s.sanitizer.Sanitize(input.Summary),
	}

	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	slog.Info("book created",
		slog.String("book_id", book.ID),
		slog.String("title", book.Title),
	)
	return book, nil
}

// Update は指定IDの蔵書を更新する。
func (s *BookService) Update(ctx context.Context, id string, input BookInput) (*model.Book, error) {
	if violations := s.validateBook(input); len(violations) > 0 {
		return nil, model.NewValidationFailedError(violations)
	}

	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find book: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(id)
	}

	author, err := s.authors.FindByID(ctx, input.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find author: %w", err)
	}
	if author == nil {
		return nil, model.NewAuthorNotFoundError(input.AuthorID)
	}

	book.Title = input.Title
	book.AuthorID = input.AuthorID
	book.ISBN = input.ISBN
	book.PublishedYear = input.PublishedYear
	book.Summary = s.sanitizer.Sanitize(input.Summary)

	if err := s.books.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}

	return book, nil
}

// Delete は指定IDの蔵書を削除する。
func (s *BookService) Delete(ctx context.Context, id string) error {
	deleted, err := s.books.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if !deleted {
		return model.NewBookNotFoundError(id)
	}

	slog.Info("book deleted", slog.String("book_id", id))
	return nil
}

// validateBook は蔵書入力の違反ルールの全リストを返す。
func (s *BookService) validateBook(input BookInput) []string {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var violations []string
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range errs {
			violations = append(violations, bookViolationMessage(fe))
		}
	} else {
		violations = append(violations, err.Error())
	}
	return violations
}

// bookViolationMessage はvalidatorのフィールドエラーを定義済みメッセージへ写す。
func bookViolationMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Title":
		if fe.Tag() == "required" {
			return violationTitleMissing
		}
		return violationTitleLength
	case "AuthorID":
		return violationAuthorIDMissing
	case "ISBN":
		return violationISBNLength
	case "PublishedYear":
		return violationYearRange
	default:
		return fe.Field() + ": " + fe.Tag()
	}
}
