package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookman/internal/model"
)

// PostgresBookRepo はPostgreSQLを使用した蔵書リポジトリ。
type PostgresBookRepo struct {
	db *sql.DB
}

// NewPostgresBookRepo はPostgresBookRepoを生成する。
func NewPostgresBookRepo(db *sql.DB) *PostgresBookRepo {
	return &PostgresBookRepo{db: db}
}

// FindByID は指定IDの蔵書を取得する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByID(ctx context.Context, id string) (*model.Book, error) {
	book := &model.Book{}
	var isbn, summary sql.NullString
	var publishedYear sql.NullInt64

	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, author_id, isbn, published_year, summary, created_at, updated_at
		 FROM books WHERE id = $1`,
		id,
	).Scan(&book.ID, &book.Title, &book.AuthorID, &isbn, &publishedYear,
		&summary, &book.CreatedAt, &book.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book by ID: %w", err)
	}

	book.ISBN = isbn.String
	book.PublishedYear = int(publishedYear.Int64)
	book.Summary = summary.String
	return book, nil
}

// List は蔵書一覧をタイトル昇順で返す。
func (r *PostgresBookRepo) List(ctx context.Context) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, author_id, isbn, published_year, summary, created_at, updated_at
		 FROM books ORDER BY title`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		book := &model.Book{}
		var isbn, summary sql.NullString
		var publishedYear sql.NullInt64

		if err := rows.Scan(&book.ID, &book.Title, &book.AuthorID, &isbn,
			&publishedYear, &summary, &book.CreatedAt, &book.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		book.ISBN = isbn.String
		book.PublishedYear = int(publishedYear.Int64)
		book.Summary = summary.String
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}

	return books, nil
}

// Create は蔵書を作成し、割り当てたIDをbookに設定する。
func (r *PostgresBookRepo) Create(ctx context.Context, book *model.Book) error {
	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, title, author_id, isbn, published_year, summary, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		book.ID, book.Title, book.AuthorID, nullable(book.ISBN),
		nullableInt(book.PublishedYear), nullable(book.Summary),
		book.CreatedAt, book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}
	return nil
}

// Update は蔵書を更新し、updated_atを刷新する。
func (r *PostgresBookRepo) Update(ctx context.Context, book *model.Book) error {
	book.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx,
		`UPDATE books
		 SET title = $1, author_id = $2, isbn = $3, published_year = $4,
		     summary = $5, updated_at = $6
		 WHERE id = $7`,
		book.Title, book.AuthorID, nullable(book.ISBN),
		nullableInt(book.PublishedYear), nullable(book.Summary),
		book.UpdatedAt, book.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("book not found: %s", book.ID)
	}
	return nil
}

// Delete は指定IDの蔵書を削除する。見つからない場合はfalseを返す。
func (r *PostgresBookRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM books WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete book: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// CountByAuthorID は指定著者を参照する蔵書数を返す。
func (r *PostgresBookRepo) CountByAuthorID(ctx context.Context, authorID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM books WHERE author_id = $1`,
		authorID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count books by author: %w", err)
	}
	return count, nil
}

// nullableInt は0をNULLへ写す。
func nullableInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}

// compile-time interface check
var _ BookRepository = (*PostgresBookRepo)(nil)
