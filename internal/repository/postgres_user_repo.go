package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/bookman/internal/model"
)

// pgUniqueViolation はPostgreSQLのユニーク制約違反のエラーコード。
const pgUniqueViolation = "23505"

// userColumns はusersテーブルのSELECT対象カラム。
const userColumns = `id, google_id, email, first_name, last_name, display_name,
	picture, provider, active, password_hash, last_login, created_at, updated_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// scanUser は1行をUserへ復元する。
// 復元されたUserはFromStore=trueとなり、ハッシュの再適用対象から外れる。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var googleID, displayName, picture, passwordHash sql.NullString
	var lastLogin sql.NullTime

	err := row.Scan(
		&user.ID, &googleID, &user.Email, &user.FirstName, &user.LastName,
		&displayName, &picture, &user.Provider, &user.Active, &passwordHash,
		&lastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.GoogleID = googleID.String
	user.DisplayName = displayName.String
	user.Picture = picture.String
	user.PasswordHash = passwordHash.String
	user.LastLogin = lastLogin.Time
	user.FromStore = true
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByGoogleIDOrEmail はGoogle IDまたはメールアドレスの一致でユーザーを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGoogleIDOrEmail(ctx context.Context, googleID, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE (google_id = $1 AND $1 <> '') OR email = $2`,
		googleID, email,
	)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID or email: %w", err)
	}
	return user, nil
}

// Create はユーザーを1回のINSERTで作成する。
// 部分的な書き込みが他のリーダーから見えることはない。
// emailのユニーク制約違反時はErrUniqueViolationを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, google_id, email, first_name, last_name, display_name,
		 picture, provider, active, password_hash, last_login, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		user.ID, nullable(user.GoogleID), user.Email, user.FirstName, user.LastName,
		nullable(user.DisplayName), nullable(user.Picture), user.Provider, user.Active,
		nullable(user.PasswordHash), user.LastLogin, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return fmt.Errorf("failed to insert user: %w", ErrUniqueViolation)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.FromStore = true
	return nil
}

// Update はプロフィールフィールドとlast_loginを更新し、updated_atを刷新する。
func (r *PostgresUserRepo) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET google_id = $1, email = $2, first_name = $3, last_name = $4,
		     display_name = $5, picture = $6, active = $7, last_login = $8,
		     updated_at = $9
		 WHERE id = $10`,
		nullable(user.GoogleID), user.Email, user.FirstName, user.LastName,
		nullable(user.DisplayName), nullable(user.Picture), user.Active,
		user.LastLogin, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", user.ID)
	}
	return nil
}

// nullable は空文字をNULLへ写す。
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
