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

// AuthorInput は著者の作成・更新リクエストの入力。
type AuthorInput struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Email     string `json:"email" validate:"omitempty,email"`
	Bio       string `json:"bio"`
}

// AuthorService は著者管理のサービス層。
type AuthorService struct {
	authors   repository.AuthorRepository
	books     repository.BookRepository
	sanitizer security.ContentSanitizerService
	validate  *validator.Validate
}

// NewAuthorService はAuthorServiceを生成する。
func NewAuthorService(
	authors repository.AuthorRepository,
	books repository.BookRepository,
	sanitizer security.ContentSanitizerService,
) *AuthorService {
	return &AuthorService{
		authors:   authors,
		books:     books,
		sanitizer: sanitizer,
		validate:  validator.New(),
	}
}

// List は著者の一覧を返す。
func (s *AuthorService) List(ctx context.Context) ([]*model.Author, error) {
	authors, err := s.authors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	return authors, nil
}

// Get は指定IDの著者を返す。見つからない場合はAUTHOR_NOT_FOUND。
func (s *AuthorService) Get(ctx context.Context, id string) (*model.Author, error) {
	author, err := s.authors.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find author: %w", err)
	}
	if author == nil {
		return nil, model.NewAuthorNotFoundError(id)
	}
	return author, nil
}

// Create は著者を作成する。略歴はサニタイズされる。
func (s *AuthorService) Create(ctx context.Context, input AuthorInput) (*model.Author, error) {
	if violations := s.validateAuthor(input); len(violations) > 0 {
		return nil, model.NewValidationFailedError(violations)
	}

	author := &model.Author{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Bio:       s.sanitizer.Sanitize(input.Bio),
	}

	if err := s.authors.Create(ctx, author); err != nil {
		return nil, fmt.Errorf("failed to create author: %w", err)
	}

	slog.Info("author created", slog.String("author_id", author.ID))
	return author, nil
}

// Update は指定IDの著者を更新する。
func (s *AuthorService) Update(ctx context.Context, id string, input AuthorInput) (*model.Author, error) {
	if violations := s.validateAuthor(input); len(violations) > 0 {
		return nil, model.NewValidationFailedError(violations)
	}

	author, err := s.authors.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find author: %w", err)
	}
	if author == nil {
		return nil, model.NewAuthorNotFoundError(id)
	}

	author.FirstName = input.FirstName
	author.LastName = input.LastName
	author.Email = input.Email
	author.Bio = s.sanitizer.Sanitize(input.Bio)

	if err := s.authors.Update(ctx, author); err != nil {
		return nil, fmt.Errorf("failed to update author: %w", err)
	}

	return author, nil
}

// Delete は指定IDの著者を削除する。
// 蔵書から参照されている著者はAUTHOR_IN_USEで拒否する。
// 判定は著者IDの外部キー参照に基づく。名前の一致では判定しない。
func (s *AuthorService) Delete(ctx context.Context, id string) error {
	author, err := s.authors.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find author: %w", err)
	}
	if author == nil {
		return model.NewAuthorNotFoundError(id)
	}

	count, err := s.books.CountByAuthorID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count books by author: %w", err)
	}
	if count > 0 {
		return model.NewAuthorInUseError(count)
	}

	deleted, err := s.authors.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete author: %w", err)
	}
	if !deleted {
		return model.NewAuthorNotFoundError(id)
	}

	slog.Info("author deleted", slog.String("author_id", id))
	return nil
}

// validateAuthor は著者入力の違反ルールの全リストを返す。
func (s *AuthorService) validateAuthor(input AuthorInput) []string {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var violations []string
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range errs {
			violations = append(violations, authorViolationMessage(fe))
		}
	} else {
		violations = append(violations, err.Error())
	}
	return violations
}

// authorViolationMessage はvalidatorのフィールドエラーを定義済みメッセージへ写す。
func authorViolationMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "FirstName":
		if fe.Tag() == "required" {
			return violationAuthorFirstNameMissing
		}
		return violationAuthorFirstNameLength
	case "LastName":
		if fe.Tag() == "required" {
			return violationAuthorLastNameMissing
		}
		return violationAuthorLastNameLength
	case "Email":
		return violationAuthorEmailFormat
	default:
		return fe.Field() + ": " + fe.Tag()
	}
}
