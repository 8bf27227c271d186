// Package identity はプリンシパルの正規化を提供する。
// 外部IdPのプロフィール、DBの保存レコード、正規のUserエンティティという
// 3つの表現の間の変換と、クライアントへ公開する安全なビューの生成を担う。
package identity

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/bookman/internal/model"
)

// ProfileEmail はIdPプロフィールに含まれるメールアドレスエントリ。
type ProfileEmail struct {
	Value    string
	Verified bool
	Primary  bool
}

// Profile はOAuthプロバイダーから取得した生のプロフィールを表す。
type Profile struct {
	ID          string
	Emails      []ProfileEmail
	GivenName   string
	FamilyName  string
	DisplayName string
	Photos      []string
}

// PrimaryEmail は検証済みまたはprimaryのメールアドレスを優先して返す。
// 該当がなければ先頭のエントリを返す。エントリがない場合は空文字を返す。
func (p Profile) PrimaryEmail() string {
	for _, e := range p.Emails {
		if e.Verified || e.Primary {
			return e.Value
		}
	}
	if len(p.Emails) > 0 {
		return p.Emails[0].Value
	}
	return ""
}

// Normalizer はユーザー表現間の変換とバリデーションを提供する。
type Normalizer struct {
	validate *validator.Validate
}

// NewNormalizer はNormalizerを生成する。
func NewNormalizer() *Normalizer {
	return &Normalizer{
		validate: validator.New(),
	}
}

// FromProviderProfile はIdPプロフィールからUserドラフトを構築する。
// メールアドレスエントリが1件もない場合はバリデーションエラーを返す。
// 生成されたドラフトは未永続化（ID未割り当て）の状態で返る。
func (n *Normalizer) FromProviderProfile(p Profile) (*model.User, *model.APIError) {
	email := p.PrimaryEmail()
	if email == "" {
		return nil, model.NewValidationFailedError([]string{violationNoEmail})
	}

	now := time.Now()
	user := &model.User{
		GoogleID:    p.ID,
		Email:       email,
		FirstName:   p.GivenName,
		LastName:    p.FamilyName,
		DisplayName: p.DisplayName,
		Provider:    model.ProviderGoogle,
		Active:      true,
		LastLogin:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(p.Photos) > 0 {
		user.Picture = p.Photos[0]
	}

	return user, nil
}

// SafeView はクライアントへ公開する安全なユーザー表現を生成する。
// PasswordHashとGoogleIDは入力の形に関わらず決して含めない。
func (n *Normalizer) SafeView(u *model.User) model.SafeUser {
	return model.SafeUser{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: u.DisplayName,
		Picture:     u.Picture,
		Provider:    u.Provider,
		Active:      u.Active,
		LastLogin:   u.LastLogin,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
