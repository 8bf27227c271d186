package identity

import (
	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/bookman/internal/model"
)

// 違反ルールのメッセージ定義。
// バリデーションは違反したルールすべてを列挙して返す（最初の1件で打ち切らない）。
const (
	violationNoEmail          = "email: メールアドレスが取得できませんでした"
	violationEmailFormat      = "email: メールアドレスの形式が不正です"
	violationFirstNameMissing = "first_name: 名は必須です"
	violationFirstNameLength  = "first_name: 名は50文字以内で指定してください"
	violationLastNameMissing  = "last_name: 姓は必須です"
	violationLastNameLength   = "last_name: 姓は50文字以内で指定してください"
	violationDisplayNameLong  = "display_name: 表示名は100文字以内で指定してください"
	violationPasswordMissing  = "password: localユーザーにはパスワードが必須です"
	violationPasswordLength   = "password: パスワードは6文字以上で指定してください"
	violationGoogleIDMissing  = "google_id: googleユーザーには外部IDが必須です"
	violationProviderUnknown  = "provider: providerはgoogleまたはlocalを指定してください"
)

// userRules はvalidatorタグでバリデーションルールを宣言する内部構造体。
// Userエンティティと平文パスワードを検証用の形に写して使う。
type userRules struct {
	Email       string `validate:"required,email"`
	FirstName   string `validate:"required,max=50"`
	LastName    string `validate:"required,max=50"`
	DisplayName string `validate:"omitempty,max=100"`
	Provider    string `validate:"required,oneof=google local"`
	Password    string `validate:"omitempty,min=6"`
	GoogleID    string `validate:"-"`
}

// Validate はユーザーのフィールド検査を行い、違反ルールの全リストを返す。
// passwordにはlocalユーザー作成時の平文パスワードを渡す。
// DB由来（FromStore）のlocalユーザーはハッシュの存在のみを検査し、
// ハッシュ値へ長さルールを再適用することはない。
func (n *Normalizer) Validate(u *model.User, password string) []string {
	rules := userRules{
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: u.DisplayName,
		Provider:    string(u.Provider),
		Password:    password,
		GoogleID:    u.GoogleID,
	}

	var violations []string

	if err := n.validate.Struct(rules); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				violations = append(violations, violationMessage(fe))
			}
		} else {
			violations = append(violations, err.Error())
		}
	}

	// provider固有ルールはvalidatorタグでは条件分岐できないため個別に検査する
	switch u.Provider {
	case model.ProviderLocal:
		if u.FromStore {
			if u.PasswordHash == "" {
				violations = append(violations, violationPasswordMissing)
			}
		} else if password == "" {
			violations = append(violations, violationPasswordMissing)
		}
	case model.ProviderGoogle:
		if u.GoogleID == "" {
			violations = append(violations, violationGoogleIDMissing)
		}
	}

	return violations
}

// violationMessage はvalidatorのフィールドエラーを定義済みメッセージへ写す。
func violationMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Email":
		if fe.Tag() == "required" {
			return violationNoEmail
		}
		return violationEmailFormat
	case "FirstName":
		if fe.Tag() == "required" {
			return violationFirstNameMissing
		}
		return violationFirstNameLength
	case "LastName":
		if fe.Tag() == "required" {
			return violationLastNameMissing
		}
		return violationLastNameLength
	case "DisplayName":
		return violationDisplayNameLong
	case "Provider":
		return violationProviderUnknown
	case "Password":
		return violationPasswordLength
	default:
		return fe.Field() + ": " + fe.Tag()
	}
}
