// Package model はドメインモデルを定義する。
package model

import "time"

// Provider はユーザーの認証元を表す。
type Provider string

const (
	// ProviderGoogle はGoogle OAuthで作成されたユーザー。
	ProviderGoogle Provider = "google"
	// ProviderLocal はメールアドレスとパスワードで登録されたユーザー。
	ProviderLocal Provider = "local"
)

// User はサービス利用ユーザーの正規レコードを表す。
// PasswordHashはproviderがlocalの場合のみ保持し、APIレスポンスには決して含めない。
type User struct {
	ID           string
	GoogleID     string // 外部IdPのユーザーID。providerがgoogleの場合のみ非空。
	Email        string
	FirstName    string
	LastName     string
	DisplayName  string
	Picture      string
	Provider     Provider
	Active       bool
	PasswordHash string
	LastLogin    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// FromStore はDBから復元されたレコードであることを示す。
	// リポジトリのスキャン時のみtrueに設定され、
	// 既にハッシュ済みのパスワードへの再ハッシュを防ぐ。
	FromStore bool
}

// SafeUser は信頼境界を越えてクライアントへ返すユーザー表現。
// PasswordHashとGoogleIDは含まない。
type SafeUser struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DisplayName string    `json:"display_name,omitempty"`
	Picture     string    `json:"picture,omitempty"`
	Provider    Provider  `json:"provider"`
	Active      bool      `json:"active"`
	LastLogin   time.Time `json:"last_login"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Session はユーザーのログインセッションを表す。
// IDはセッショントークンそのものであり、ユーザーIDへの参照のみを保持する。
// Userドキュメント全体や機密フィールドは決して保持しない。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
