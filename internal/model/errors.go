// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string   // エラーコード
	Message  string   // エラーメッセージ
	Category string   // カテゴリ: auth, validation, catalog, system
	Action   string   // ユーザー向け対処方法
	LoginURL string   // ログイン開始エンドポイント（未認証エラーのみ）
	Details  []string // 違反ルールの一覧（バリデーションエラーのみ）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed       = "VALIDATION_FAILED"
	ErrCodeAuthRequired           = "AUTH_REQUIRED"
	ErrCodeAccountInactive        = "ACCOUNT_INACTIVE"
	ErrCodeHashingFailed          = "HASHING_FAILED"
	ErrCodeSessionSerializeFailed = "SESSION_SERIALIZE_FAILED"
	ErrCodeProviderExchangeFailed = "PROVIDER_EXCHANGE_FAILED"
	ErrCodeBookNotFound           = "BOOK_NOT_FOUND"
	ErrCodeAuthorNotFound         = "AUTHOR_NOT_FOUND"
	ErrCodeAuthorInUse            = "AUTHOR_IN_USE"
	ErrCodeCSRFRejected           = "CSRF_REJECTED"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// NewValidationFailedError はバリデーション違反エラーを生成する。
// violationsには違反したルールすべてを列挙する（最初の1件だけではない）。
func NewValidationFailedError(violations []string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "detailsの各項目を修正して再度お試しください。",
		Details:  violations,
	}
}

// NewAuthRequiredError は未認証エラーを生成する。
// loginURLにはログイン開始エンドポイントへのパスを指定する。
// クライアントが機械的に遷移できるよう、パスは構造化フィールドとしても返す。
func NewAuthRequiredError(loginURL string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthRequired,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   fmt.Sprintf("%s からログインしてください。", loginURL),
		LoginURL: loginURL,
	}
}

// NewAccountInactiveError は無効化済みアカウントのエラーを生成する。
// 未認証（401）とは区別されるステータス（403）で返す。
func NewAccountInactiveError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountInactive,
		Message:  "このアカウントは無効化されています。",
		Category: "auth",
		Action:   "管理者にお問い合わせください。",
	}
}

// NewHashingFailedError はパスワードハッシュの内部失敗エラーを生成する。
// 資格情報の不一致ではなく、暗号プリミティブの失敗を表す。
func NewHashingFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeHashingFailed,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSessionSerializeFailedError は未永続化プリンシパルのセッション化エラーを生成する。
// プログラミング契約違反であり、内部エラーとして扱う。
func NewSessionSerializeFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionSerializeFailed,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewProviderExchangeFailedError はOAuthプロバイダーとの交換失敗エラーを生成する。
func NewProviderExchangeFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderExchangeFailed,
		Message:  "Googleでのログインに失敗しました。",
		Category: "auth",
		Action:   "再度ログインをお試しください。",
	}
}

// NewBookNotFoundError は蔵書未検出エラーを生成する。
func NewBookNotFoundError(bookID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookNotFound,
		Message:  fmt.Sprintf("指定された蔵書が見つかりません: %s", bookID),
		Category: "catalog",
		Action:   "蔵書IDを確認してください。",
	}
}

// NewAuthorNotFoundError は著者未検出エラーを生成する。
func NewAuthorNotFoundError(authorID string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthorNotFound,
		Message:  fmt.Sprintf("指定された著者が見つかりません: %s", authorID),
		Category: "catalog",
		Action:   "著者IDを確認してください。",
	}
}

// NewAuthorInUseError は蔵書から参照されている著者の削除エラーを生成する。
func NewAuthorInUseError(bookCount int) *APIError {
	return &APIError{
		Code:     ErrCodeAuthorInUse,
		Message:  fmt.Sprintf("この著者を参照する蔵書が%d件あるため削除できません。", bookCount),
		Category: "catalog",
		Action:   "先に該当する蔵書を削除するか、著者を変更してください。",
	}
}

// NewCSRFRejectedError はCSRFトークン検証失敗のエラーを生成する。
func NewCSRFRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFRejected,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "GET /api/csrf-token でトークンを取得し、X-CSRF-Tokenヘッダーに設定して再度お試しください。",
	}
}

// NewInvalidRequestError は不正なリクエストボディのエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}
