// Package auth はGoogle OAuth認証フローとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/bookman/internal/identity"
	"github.com/hitoshi/bookman/internal/metrics"
	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/repository"
)

// Provider はOAuth認証プロバイダーのインターフェース。
type Provider interface {
	// LoginURL はOAuth認証URLを生成する。
	LoginURL(state string) string
	// Exchange は認可コードをトークンに交換し、プロフィールを取得する。
	Exchange(ctx context.Context, code string) (*identity.Profile, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge   int           // セッション有効期間（秒）
	ExchangeTimeout time.Duration // プロバイダーとの交換処理のタイムアウト
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	provider   Provider
	normalizer *identity.Normalizer
	users      repository.UserRepository
	sessions   repository.SessionRepository
	collector  metrics.MetricsCollector
	config     ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	provider Provider,
	normalizer *identity.Normalizer,
	users repository.UserRepository,
	sessions repository.SessionRepository,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		provider:   provider,
		normalizer: normalizer,
		users:      users,
		sessions:   sessions,
		collector:  collector,
		config:     config,
	}
}

// LoginURL はOAuth認証URLを生成する。
func (s *Service) LoginURL(state string) string {
	return s.provider.LoginURL(state)
}

// GenerateState はCSRF対策用のstateトークンを生成する。
func GenerateState() (string, error) {
	return generateToken()
}

// HandleCallback はOAuthコールバックを処理し、プリンシパルとセッションを返す。
// 交換処理はExchangeTimeoutで打ち切られる。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.User, *model.Session, error) {
	exchangeCtx, cancel := context.WithTimeout(ctx, s.config.ExchangeTimeout)
	defer cancel()

	profile, err := s.provider.Exchange(exchangeCtx, code)
	if err != nil {
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
		s.collector.RecordLoginFailure("exchange")
		return nil, nil, model.NewProviderExchangeFailedError()
	}

	user, err := s.Reconcile(ctx, *profile)
	if err != nil {
		s.collector.RecordLoginFailure("reconcile")
		return nil, nil, err
	}

	session, err := s.IssueSession(ctx, user)
	if err != nil {
		s.collector.RecordLoginFailure("session")
		return nil, nil, err
	}

	s.collector.RecordLoginSuccess()
	return user, session, nil
}

// Reconcile はIdPプロフィールをローカルのプリンシパルへ突き合わせる。
// Google IDまたはメールアドレスで既存ユーザーを検索し、
// 見つかればプロフィールを反映して更新、見つからなければ新規作成する。
// 並行コールバックとの競合でユニーク制約違反を受けた場合は1回だけ再検索する。
func (s *Service) Reconcile(ctx context.Context, profile identity.Profile) (*model.User, error) {
	email := profile.PrimaryEmail()

	existing, err := s.users.FindByGoogleIDOrEmail(ctx, profile.ID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return s.refresh(ctx, existing, profile)
	}

	draft, apiErr := s.normalizer.FromProviderProfile(profile)
	if apiErr != nil {
		return nil, apiErr
	}
	if violations := s.normalizer.Validate(draft, ""); len(violations) > 0 {
		return nil, model.NewValidationFailedError(violations)
	}

	if err := s.users.Create(ctx, draft); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			// 並行コールバックに先を越された。勝者のレコードを採用する。
			winner, findErr := s.users.FindByGoogleIDOrEmail(ctx, profile.ID, email)
			if findErr != nil {
				return nil, fmt.Errorf("failed to re-look up user after conflict: %w", findErr)
			}
			if winner != nil {
				return s.refresh(ctx, winner, profile)
			}
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", draft.ID),
		slog.String("email", draft.Email),
	)
	return draft, nil
}

// refresh は既存ユーザーへIdPプロフィールの最新値を反映する。
// メールアドレス一致で見つかったユーザーにはGoogle IDを紐付ける。
func (s *Service) refresh(ctx context.Context, user *model.User, profile identity.Profile) (*model.User, error) {
	if user.GoogleID == "" && profile.ID != "" {
		user.GoogleID = profile.ID
	}
	if profile.GivenName != "" {
		user.FirstName = profile.GivenName
	}
	if profile.FamilyName != "" {
		user.LastName = profile.FamilyName
	}
	if profile.DisplayName != "" {
		user.DisplayName = profile.DisplayName
	}
	if len(profile.Photos) > 0 {
		user.Picture = profile.Photos[0]
	}
	user.LastLogin = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("existing user logged in", slog.String("user_id", user.ID))
	return user, nil
}

// IssueSession は永続化済みプリンシパルに対してセッションを発行する。
// ID未割り当てまたはストア由来でないユーザーはセッション化できない。
func (s *Service) IssueSession(ctx context.Context, user *model.User) (*model.Session, error) {
	if user == nil || user.ID == "" || !user.FromStore {
		return nil, model.NewSessionSerializeFailedError()
	}

	sessionID, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.collector.RecordSessionIssued()
	return session, nil
}

// ResolveSession はセッションIDからプリンシパルを復元する。
// セッションが存在しない・期限切れ・ユーザーが消えている場合は
// エラーではなく(nil, nil)を返す。エラーはインフラ障害のみ。
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	return user, nil
}

// Logout はセッションを破棄する。セッションIDが空の場合は何もしない。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.collector.RecordSessionDestroyed()
	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// RegisterLocal はメールアドレスとパスワードによるローカルユーザーを作成する。
func (s *Service) RegisterLocal(ctx context.Context, email, password, firstName, lastName string) (*model.User, error) {
	now := time.Now()
	draft := &model.User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Provider:  model.ProviderLocal,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if violations := s.normalizer.Validate(draft, password); len(violations) > 0 {
		return nil, model.NewValidationFailedError(violations)
	}

	hash, err := identity.HashPassword(password)
	if err != nil {
		slog.Error("password hashing failed", slog.String("error", err.Error()))
		return nil, model.NewHashingFailedError()
	}
	draft.PasswordHash = hash

	if err := s.users.Create(ctx, draft); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, model.NewValidationFailedError(
				[]string{"email: このメールアドレスは既に登録されています"})
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("local user registered", slog.String("user_id", draft.ID))
	return draft, nil
}

// AuthenticateLocal はメールアドレスとパスワードでローカルユーザーを認証する。
// 資格情報の不一致は(nil, nil)を返し、エラーは内部失敗のみ。
func (s *Service) AuthenticateLocal(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByGoogleIDOrEmail(ctx, "", email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || user.Provider != model.ProviderLocal || user.PasswordHash == "" {
		return nil, nil
	}

	ok, err := identity.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password verification failed", slog.String("error", err.Error()))
		return nil, model.NewHashingFailedError()
	}
	if !ok {
		return nil, nil
	}

	return user, nil
}

// generateToken は暗号的に安全なトークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
