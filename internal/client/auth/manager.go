package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	httpClient "github.com/iudanet/homekeeper/internal/client/api"
)

// Manager связывает локально сохранённую сессию с платформой: проверка
// достижимости, проактивный refresh и импорт/удаление сессии для CLI.
// Он же реализует probe-интерфейс health-монитора.
type Manager struct {
	store     SessionStore
	apiClient httpClient.ClientAPI
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager creates a new session manager
func NewManager(store SessionStore, apiClient httpClient.ClientAPI, logger *slog.Logger) *Manager {
	return &Manager{
		store:     store,
		apiClient: apiClient,
		logger:    logger,
		now:       time.Now,
	}
}

// Check performs the lightweight session/reachability probe against the
// platform using the stored access token. Returns the token expiry
// reported by the platform (zero if none).
func (m *Manager) Check(ctx context.Context) (time.Time, error) {
	session, err := m.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return time.Time{}, fmt.Errorf("session check: %w", httpClient.ErrSessionExpired)
		}
		return time.Time{}, err
	}

	resp, err := m.apiClient.CheckSession(ctx, session.AccessToken)
	if err != nil {
		return time.Time{}, err
	}

	if resp.ExpiresAt != 0 {
		return time.Unix(resp.ExpiresAt, 0), nil
	}
	return session.ExpiryTime(), nil
}

// Refresh exchanges the stored refresh token for a new token pair and
// persists the renewed session
func (m *Manager) Refresh(ctx context.Context) error {
	session, err := m.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("session refresh: %w", httpClient.ErrSessionExpired)
		}
		return err
	}

	resp, err := m.apiClient.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		return err
	}

	renewed := &Session{
		UserID:       session.UserID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresIn > 0 {
		renewed.ExpiresAt = m.now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix()
	}

	if err := m.store.SaveSession(ctx, renewed); err != nil {
		return err
	}

	m.logger.Info("Session refreshed",
		"user_id", renewed.UserID,
		"expires_at", renewed.ExpiresAt)
	return nil
}

// IsAuthenticated reports whether a stored session exists and its access
// token has not expired yet
func (m *Manager) IsAuthenticated(ctx context.Context) (bool, error) {
	session, err := m.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	// Сессия без срока жизни считается валидной: платформа сама решит
	if session.ExpiresAt == 0 {
		return true, nil
	}
	return m.now().Before(session.ExpiryTime()), nil
}

// AccessToken returns the stored access token for authenticated platform
// calls. Without a stored session it fails with ErrSessionExpired so the
// caller surfaces a re-login hint instead of retrying.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	session, err := m.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", fmt.Errorf("access token: %w", httpClient.ErrSessionExpired)
		}
		return "", err
	}
	return session.AccessToken, nil
}

// SetSession imports a token pair obtained out of band (CLI `session set`).
// The expiry is taken from the access token's exp claim.
func (m *Manager) SetSession(ctx context.Context, userID, accessToken, refreshToken string) error {
	session := &Session{
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}

	expiry, err := expiryFromToken(accessToken)
	if err != nil {
		m.logger.Warn("Failed to read expiry from access token, storing without it", "error", err)
	} else if !expiry.IsZero() {
		session.ExpiresAt = expiry.Unix()
	}

	if err := m.store.SaveSession(ctx, session); err != nil {
		return err
	}

	m.logger.Info("Session imported", "user_id", userID, "expires_at", session.ExpiresAt)
	return nil
}

// ClearSession removes the stored session (logout)
func (m *Manager) ClearSession(ctx context.Context) error {
	if err := m.store.DeleteSession(ctx); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	return nil
}
