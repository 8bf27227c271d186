package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/bookman/internal/identity"
	"github.com/hitoshi/bookman/internal/middleware"
	"github.com/hitoshi/bookman/internal/model"
)

// mockAuthService はAuthServiceInterfaceのテスト用実装。
type mockAuthService struct {
	loginURLFn       func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.User, *model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	loggedOutIDs     []string
}

func (m *mockAuthService) LoginURL(state string) string {
	if m.loginURLFn != nil {
		return m.loginURLFn(state)
	}
	return "https://accounts.example.com/auth?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.User, *model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil, errors.New("not configured")
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	m.loggedOutIDs = append(m.loggedOutIDs, sessionID)
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		LoginSuccessURL: "http://localhost:3000",
		LoginFailureURL: "http://localhost:3000/login?error=auth_failed",
		CookieSecure:    false,
		SessionMaxAge:   86400,
	}
}

func newTestAuthHandler(svc *mockAuthService) *AuthHandler {
	return NewAuthHandler(svc, identity.NewNormalizer(), testAuthConfig())
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// TestLogin_RedirectsToProviderWithStateCookie はログイン開始でstateクッキーと認証URLへのリダイレクトが返ることを検証する。
func TestLogin_RedirectsToProviderWithStateCookie(t *testing.T) {
	svc := &mockAuthService{}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	stateCookie := findCookie(resp.Cookies(), "oauth_state")
	if stateCookie == nil {
		t.Fatal("expected oauth_state cookie")
	}
	if stateCookie.Value == "" {
		t.Error("state cookie should carry a token")
	}
	if !stateCookie.HttpOnly {
		t.Error("state cookie should be HttpOnly")
	}

	location := resp.Header.Get("Location")
	if !strings.Contains(location, "state="+stateCookie.Value) {
		t.Errorf("redirect %q should carry the state from the cookie", location)
	}
}

// TestCallback_Success_SetsSessionCookieAndRedirects はコールバック成功でセッションクッキーが設定されることを検証する。
func TestCallback_Success_SetsSessionCookieAndRedirects(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.User, *model.Session, error) {
			if code != "valid-code" {
				return nil, nil, errors.New("unexpected code")
			}
			user := &model.User{ID: "user-1", Active: true, FromStore: true}
			session := &model.Session{ID: "sess-abc", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
			return user, session, nil
		},
	}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=valid-code&state=state-xyz", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-xyz"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if location := resp.Header.Get("Location"); location != "http://localhost:3000" {
		t.Errorf("Location = %q, want login success URL", location)
	}

	sessionCookie := findCookie(resp.Cookies(), "session_id")
	if sessionCookie == nil {
		t.Fatal("expected session_id cookie")
	}
	if sessionCookie.Value != "sess-abc" {
		t.Errorf("session cookie = %q, want sess-abc", sessionCookie.Value)
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if sessionCookie.MaxAge != 86400 {
		t.Errorf("session cookie MaxAge = %d, want 86400", sessionCookie.MaxAge)
	}

	stateCookie := findCookie(resp.Cookies(), "oauth_state")
	if stateCookie == nil || stateCookie.MaxAge != -1 {
		t.Error("state cookie should be cleared after callback")
	}
}

// TestCallback_StateMismatch_RedirectsToFailureURL はstate不一致が失敗URLへのリダイレクトになることを検証する。
// 交換処理には到達せず、詳細はレスポンスに含めない。
func TestCallback_StateMismatch_RedirectsToFailureURL(t *testing.T) {
	tests := []struct {
		name        string
		queryState  string
		cookieState string
	}{
		{"different values", "state-query", "state-cookie"},
		{"empty query state", "", "state-cookie"},
		{"missing cookie", "state-query", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				handleCallbackFn: func(ctx context.Context, code string) (*model.User, *model.Session, error) {
					t.Error("HandleCallback must not be reached on state mismatch")
					return nil, nil, errors.New("unreachable")
				},
			}
			h := newTestAuthHandler(svc)

			target := "/auth/google/callback?code=valid-code"
			if tt.queryState != "" {
				target += "&state=" + tt.queryState
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.cookieState != "" {
				req.AddCookie(&http.Cookie{Name: "oauth_state", Value: tt.cookieState})
			}
			w := httptest.NewRecorder()

			h.Callback(w, req)

			resp := w.Result()
			if resp.StatusCode != http.StatusTemporaryRedirect {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
			}
			if location := resp.Header.Get("Location"); location != "http://localhost:3000/login?error=auth_failed" {
				t.Errorf("Location = %q, want login failure URL", location)
			}
			if findCookie(resp.Cookies(), "session_id") != nil {
				t.Error("state mismatch must not set a session cookie")
			}
		})
	}
}

// TestCallback_ProviderDenied_RedirectsToFailureURL はプロバイダーが拒否を返した場合に
// 失敗URLへリダイレクトすることを検証する。同意画面でのキャンセルはerror=access_deniedで戻る。
func TestCallback_ProviderDenied_RedirectsToFailureURL(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.User, *model.Session, error) {
			t.Error("HandleCallback must not be reached on provider denial")
			return nil, nil, errors.New("unreachable")
		},
	}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=state-xyz&error=access_denied", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-xyz"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if location := resp.Header.Get("Location"); location != "http://localhost:3000/login?error=auth_failed" {
		t.Errorf("Location = %q, want login failure URL", location)
	}
	if findCookie(resp.Cookies(), "session_id") != nil {
		t.Error("denied login must not set a session cookie")
	}
}

// TestCallback_MissingCode_RedirectsToFailureURL は認可コードなしのコールバックが
// 失敗URLへのリダイレクトになることを検証する。
func TestCallback_MissingCode_RedirectsToFailureURL(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=state-xyz", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-xyz"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if location := resp.Header.Get("Location"); location != "http://localhost:3000/login?error=auth_failed" {
		t.Errorf("Location = %q, want login failure URL", location)
	}
}

// TestCallback_ServiceFailure_RedirectsToFailureURL は認証失敗で失敗URLへリダイレクトすることを検証する。
func TestCallback_ServiceFailure_RedirectsToFailureURL(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.User, *model.Session, error) {
			return nil, nil, model.NewProviderExchangeFailedError()
		},
	}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=bad-code&state=state-xyz", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-xyz"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if location := resp.Header.Get("Location"); location != "http://localhost:3000/login?error=auth_failed" {
		t.Errorf("Location = %q, want login failure URL", location)
	}
	if findCookie(resp.Cookies(), "session_id") != nil {
		t.Error("failed login must not set a session cookie")
	}
}

// TestLogout_ClearsCookieAndDestroysSession はログアウトでセッションが破棄されクッキーがクリアされることを検証する。
func TestLogout_ClearsCookieAndDestroysSession(t *testing.T) {
	svc := &mockAuthService{}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-abc"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if len(svc.loggedOutIDs) != 1 || svc.loggedOutIDs[0] != "sess-abc" {
		t.Errorf("loggedOutIDs = %v, want [sess-abc]", svc.loggedOutIDs)
	}

	cookie := findCookie(resp.Cookies(), "session_id")
	if cookie == nil || cookie.MaxAge != -1 {
		t.Error("session cookie should be cleared")
	}
}

// TestLogout_NoCookie_StillSucceeds はセッションクッキーなしでもログアウトが204で応答することを検証する。
func TestLogout_NoCookie_StillSucceeds(t *testing.T) {
	svc := &mockAuthService{}
	h := newTestAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if len(svc.loggedOutIDs) != 0 {
		t.Errorf("loggedOutIDs = %v, want empty", svc.loggedOutIDs)
	}
}

// TestSession_Authenticated_ReturnsSafeUser は認証済みセッション状態に安全なユーザー表現が含まれることを検証する。
func TestSession_Authenticated_ReturnsSafeUser(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	user := &model.User{
		ID:           "user-1",
		GoogleID:     "google-secret",
		Email:        "taro@example.com",
		FirstName:    "Taro",
		LastName:     "Yamada",
		Provider:     model.ProviderGoogle,
		Active:       true,
		PasswordHash: "should-never-appear",
		FromStore:    true,
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req = req.WithContext(middleware.ContextWithUser(req.Context(), user))
	w := httptest.NewRecorder()

	h.Session(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Authenticated bool           `json:"authenticated"`
		User          map[string]interface{} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if !resp.Authenticated {
		t.Error("expected authenticated = true")
	}
	if resp.User["id"] != "user-1" {
		t.Errorf("user.id = %v, want user-1", resp.User["id"])
	}

	body := w.Body.String()
	if strings.Contains(body, "should-never-appear") {
		t.Error("response must not contain the password hash")
	}
	if strings.Contains(body, "google-secret") {
		t.Error("response must not contain the external provider ID")
	}
}

// TestSession_Unauthenticated_Returns200WithFalse は未認証でも200で応答することを検証する。
func TestSession_Unauthenticated_Returns200WithFalse(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	w := httptest.NewRecorder()

	h.Session(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Authenticated bool            `json:"authenticated"`
		User          *map[string]interface{} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Authenticated {
		t.Error("expected authenticated = false")
	}
	if resp.User != nil {
		t.Errorf("user = %v, want omitted", resp.User)
	}
}

// TestMe_Authenticated_ReturnsSafeUser は/meが安全なユーザー表現を返すことを検証する。
func TestMe_Authenticated_ReturnsSafeUser(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	user := &model.User{ID: "user-1", Email: "taro@example.com", Active: true, FromStore: true}
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middleware.ContextWithUser(req.Context(), user))
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var safe model.SafeUser
	if err := json.Unmarshal(w.Body.Bytes(), &safe); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if safe.ID != "user-1" || safe.Email != "taro@example.com" {
		t.Errorf("safe user = %+v, want user-1", safe)
	}
}

// TestMe_Unauthenticated_Returns401 は未認証の/meが401になることを検証する。
func TestMe_Unauthenticated_Returns401(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var body middleware.ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Code != model.ErrCodeAuthRequired {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeAuthRequired)
	}
	if body.LoginURL != "/auth/google/login" {
		t.Errorf("login_url = %q, should point to the login endpoint", body.LoginURL)
	}
}

// TestWriteServiceError_MapsCodesToStatuses はエラーコードとHTTPステータスの対応を検証する。
func TestWriteServiceError_MapsCodesToStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", model.NewValidationFailedError([]string{"title: タイトルは必須です"}), http.StatusBadRequest, model.ErrCodeValidationFailed},
		{"invalid request", model.NewInvalidRequestError(), http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"auth required", model.NewAuthRequiredError("/auth/google/login"), http.StatusUnauthorized, model.ErrCodeAuthRequired},
		{"account inactive", model.NewAccountInactiveError(), http.StatusForbidden, model.ErrCodeAccountInactive},
		{"csrf rejected", model.NewCSRFRejectedError(), http.StatusForbidden, model.ErrCodeCSRFRejected},
		{"book not found", model.NewBookNotFoundError("b-1"), http.StatusNotFound, model.ErrCodeBookNotFound},
		{"author not found", model.NewAuthorNotFoundError("a-1"), http.StatusNotFound, model.ErrCodeAuthorNotFound},
		{"author in use", model.NewAuthorInUseError(3), http.StatusConflict, model.ErrCodeAuthorInUse},
		{"provider exchange", model.NewProviderExchangeFailedError(), http.StatusBadGateway, model.ErrCodeProviderExchangeFailed},
		{"hashing failure", model.NewHashingFailedError(), http.StatusInternalServerError, model.ErrCodeHashingFailed},
		{"session serialize failure", model.NewSessionSerializeFailedError(), http.StatusInternalServerError, model.ErrCodeSessionSerializeFailed},
		{"unexpected error", errors.New("connection refused"), http.StatusInternalServerError, model.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			writeServiceError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var body middleware.ErrorResponseBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}
