// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/bookman/internal/model"
)

// ErrUniqueViolation はユニーク制約違反を表す。
// 同一IDに対する並行コールバックの競合検出に使用する。
// DBのemailユニーク制約が重複アカウント作成の最終的な防波堤であり、
// この違反を受けた呼び出し側は再検索でリカバリする。
var ErrUniqueViolation = errors.New("unique constraint violation")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByGoogleIDOrEmail はGoogle IDまたはメールアドレスの一致でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByGoogleIDOrEmail(ctx context.Context, googleID, email string) (*model.User, error)

	// Create はユーザーを1回のINSERTで作成し、ストアが割り当てたIDをuserに設定する。
	// emailのユニーク制約違反時はErrUniqueViolationを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はプロフィールフィールドとlast_loginを更新し、updated_atを刷新する。
	Update(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// BookRepository は蔵書データの永続化インターフェース。
type BookRepository interface {
	// FindByID は指定IDの蔵書を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Book, error)
	// List は蔵書一覧をタイトル昇順で返す。
	List(ctx context.Context) ([]*model.Book, error)
	// Create は蔵書を作成し、割り当てたIDをbookに設定する。
	Create(ctx context.Context, book *model.Book) error
	// Update は蔵書を更新し、updated_atを刷新する。
	Update(ctx context.Context, book *model.Book) error
	// Delete は指定IDの蔵書を削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
	// CountByAuthorID は指定著者を参照する蔵書数を返す。
	CountByAuthorID(ctx context.Context, authorID string) (int, error)
}

// AuthorRepository は著者データの永続化インターフェース。
type AuthorRepository interface {
	// FindByID は指定IDの著者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Author, error)
	// List は著者一覧を姓・名の昇順で返す。
	List(ctx context.Context) ([]*model.Author, error)
	// Create は著者を作成し、割り当てたIDをauthorに設定する。
	Create(ctx context.Context, author *model.Author) error
	// Update は著者を更新し、updated_atを刷新する。
	Update(ctx context.Context, author *model.Author) error
	// Delete は指定IDの著者を削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}
