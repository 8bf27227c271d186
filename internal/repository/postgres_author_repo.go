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

// PostgresAuthorRepo はPostgreSQLを使用した著者リポジトリ。
type PostgresAuthorRepo struct {
	db *sql.DB
}

// NewPostgresAuthorRepo はPostgresAuthorRepoを生成する。
func NewPostgresAuthorRepo(db *sql.DB) *PostgresAuthorRepo {
	return &PostgresAuthorRepo{db: db}
}

// FindByID は指定IDの著者を取得する。見つからない場合はnilを返す。
func (r *PostgresAuthorRepo) FindByID(ctx context.Context, id string) (*model.Author, error) {
	author := &model.Author{}
	var email, bio sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, bio, created_at, updated_at
		 FROM authors WHERE id = $1`,
		id,
	).Scan(&author.ID, &author.FirstName, &author.LastName, &email, &bio,
		&author.CreatedAt, &author.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find author by ID: %w", err)
	}

	author.Email = email.String
	author.Bio = bio.String
	return author, nil
}

// List は著者一覧を姓・名の昇順で返す。
func (r *PostgresAuthorRepo) List(ctx context.Context) ([]*model.Author, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, email, bio, created_at, updated_at
		 FROM authors ORDER BY last_name, first_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	defer rows.Close()

	var authors []*model.Author
	for rows.Next() {
		author := &model.Author{}
		var email, bio sql.NullString

		if err := rows.Scan(&author.ID, &author.FirstName, &author.LastName,
			&email, &bio, &author.CreatedAt, &author.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		author.Email = email.String
		author.Bio = bio.String
		authors = append(authors, author)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate authors: %w", err)
	}

	return authors, nil
}

// Create は著者を作成し、割り当てたIDをauthorに設定する。
func (r *PostgresAuthorRepo) Create(ctx context.Context, author *model.Author) error {
	if author.ID == "" {
		author.ID = uuid.New().String()
	}
	now := time.Now()
	author.CreatedAt = now
	author.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO authors (id, first_name, last_name, email, bio, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		author.ID, author.FirstName, author.LastName, nullable(author.Email),
		nullable(author.Bio), author.CreatedAt, author.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert author: %w", err)
	}
	return nil
}

// Update は著者を更新し、updated_atを刷新する。
func (r *PostgresAuthorRepo) Update(ctx context.Context, author *model.Author) error {
	author.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx,
		`UPDATE authors
		 SET first_name = $1, last_name = $2, email = $3, bio = $4, updated_at = $5
		 WHERE id = $6`,
		author.FirstName, author.LastName, nullable(author.Email),
		nullable(author.Bio), author.UpdatedAt, author.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update author: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("author not found: %s", author.ID)
	}
	return nil
}

// Delete は指定IDの著者を削除する。見つからない場合はfalseを返す。
func (r *PostgresAuthorRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM authors WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete author: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ AuthorRepository = (*PostgresAuthorRepo)(nil)
