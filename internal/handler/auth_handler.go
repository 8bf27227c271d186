// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bookman/internal/auth"
	"github.com/hitoshi/bookman/internal/identity"
	"github.com/hitoshi/bookman/internal/middleware"
	"github.com/hitoshi/bookman/internal/model"
)

const (
	sessionCookieName = "session_id"
	oauthStateCookie  = "oauth_state"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	LoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	LoginSuccessURL string // 認証成功後のリダイレクト先
	LoginFailureURL string // 認証失敗後のリダイレクト先
	CookieDomain    string
	CookieSecure    bool
	SessionMaxAge   int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service    AuthServiceInterface
	normalizer *identity.Normalizer
	config     AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, normalizer *identity.Normalizer, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:    service,
		normalizer: normalizer,
		config:     config,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.LoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
// 失敗時は詳細を含めず失敗URLへリダイレクトする。詳細はログのみに残す。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		http.Redirect(w, r, h.config.LoginFailureURL, http.StatusTemporaryRedirect)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. プロバイダー側での拒否（ユーザーが同意画面でキャンセルした場合など）
	if providerErr := r.URL.Query().Get("error"); providerErr != "" {
		slog.Warn("oauth provider returned error",
			slog.String("provider_error", providerErr),
		)
		http.Redirect(w, r, h.config.LoginFailureURL, http.StatusTemporaryRedirect)
		return
	}

	// 3. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("oauth callback without authorization code")
		http.Redirect(w, r, h.config.LoginFailureURL, http.StatusTemporaryRedirect)
		return
	}

	// 4. 認証処理
	_, session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.config.LoginFailureURL, http.StatusTemporaryRedirect)
		return
	}

	// 5. セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 6. フロントエンドにリダイレクト
	http.Redirect(w, r, h.config.LoginSuccessURL, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	// セッションCookieをクリア
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// sessionStatusResponse はセッション状態レスポンス。
type sessionStatusResponse struct {
	Authenticated bool            `json:"authenticated"`
	User          *model.SafeUser `json:"user,omitempty"`
}

// Session は現在のセッション状態を返す。未認証でも200で応答する。
// GET /auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	resp := sessionStatusResponse{}

	if user, err := middleware.UserFromContext(r.Context()); err == nil {
		safe := h.normalizer.SafeView(user)
		resp.Authenticated = true
		resp.User = &safe
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me（認証必須）
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized,
			model.NewAuthRequiredError("/auth/google/login"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.normalizer.SafeView(user))
}

// writeServiceError はサービス層のエラーを適切なHTTPステータスへ写して書き込む。
// APIError以外のエラーは詳細をログに残し、一般的な500を返す。
func writeServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unexpected service error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	status := http.StatusInternalServerError
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidRequest:
		status = http.StatusBadRequest
	case model.ErrCodeAuthRequired:
		status = http.StatusUnauthorized
	case model.ErrCodeAccountInactive, model.ErrCodeCSRFRejected:
		status = http.StatusForbidden
	case model.ErrCodeBookNotFound, model.ErrCodeAuthorNotFound:
		status = http.StatusNotFound
	case model.ErrCodeAuthorInUse:
		status = http.StatusConflict
	case model.ErrCodeProviderExchangeFailed:
		status = http.StatusBadGateway
	}

	middleware.WriteErrorResponse(w, status, apiErr)
}
