package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/bookman/internal/model"
)

// guardedChain はセッション解決→認証必須→有効アカウント必須のチェーンを構築する。
// 実際のルーターで保護付きエンドポイントに適用される順序と同じ。
func guardedChain(resolver SessionResolver, final http.Handler) http.Handler {
	sessionMW := NewSessionMiddleware(resolver)
	authMW := RequireAuthenticated("/auth/google/login")
	activeMW := RequireActive("/auth/google/login")
	return sessionMW(authMW(activeMW(final)))
}

// TestMiddlewareChain_ActiveUser_ReachesHandler は
// 有効なセッションを持つアクティブユーザーがチェーンを通過することを検証する。
func TestMiddlewareChain_ActiveUser_ReachesHandler(t *testing.T) {
	resolver := &mockSessionResolver{
		resolveFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return activeUser(), nil
		},
	}

	var capturedUserID string
	handler := guardedChain(resolver, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		capturedUserID = user.ID
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/books", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if capturedUserID != "user-123" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-123")
	}
}

// TestMiddlewareChain_NoSession_Returns401 は
// セッションがない場合にチェーンが401を返すことを検証する。
func TestMiddlewareChain_NoSession_Returns401(t *testing.T) {
	resolver := &mockSessionResolver{}

	handler := guardedChain(resolver, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/books", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// TestMiddlewareChain_InactiveUser_Returns403 は
// 無効化済みアカウントがチェーンで403を受けることを検証する。
// 未認証の401とは区別される。
func TestMiddlewareChain_InactiveUser_Returns403(t *testing.T) {
	resolver := &mockSessionResolver{
		resolveFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			user := activeUser()
			user.Active = false
			return user, nil
		},
	}

	handler := guardedChain(resolver, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/books", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}
