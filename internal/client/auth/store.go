package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/homekeeper/internal/client/storage"
)

// ErrSessionNotFound indicates that no platform session is stored locally
var ErrSessionNotFound = errors.New("session not found")

// sessionKey is the storage key the session lives under. The key is not
// in a transient namespace, so quota cleanup never evicts it.
const sessionKey = "auth.session"

// Session represents the locally stored platform session
type Session struct {
	UserID       string `json:"user_id"`       // UUID пользователя на платформе
	AccessToken  string `json:"access_token"`  // access token платформы (JWT)
	RefreshToken string `json:"refresh_token"` // refresh token
	ExpiresAt    int64  `json:"expires_at"`    // unix время истечения access token
}

// ExpiryTime returns the access token expiry as time.Time
// Returns zero time if the platform did not report an expiry
func (s *Session) ExpiryTime() time.Time {
	if s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

//go:generate moq -out store_mock.go . SessionStore

// SessionStore defines interface for storing the platform session on client
type SessionStore interface {
	// SaveSession stores the session, overwriting any previous one
	SaveSession(ctx context.Context, session *Session) error

	// GetSession retrieves the stored session
	// Returns ErrSessionNotFound if no session exists
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession removes the stored session (logout)
	DeleteSession(ctx context.Context) error
}

// Store persists the session through the storage guardian
type Store struct {
	guard *storage.Guardian
}

// NewStore creates a new session store over the guardian
func NewStore(guard *storage.Guardian) *Store {
	return &Store{guard: guard}
}

// SaveSession stores the session
func (s *Store) SaveSession(ctx context.Context, session *Session) error {
	if err := s.guard.SafeSet(ctx, sessionKey, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession retrieves the stored session
func (s *Store) GetSession(ctx context.Context) (*Session, error) {
	var session Session
	found, err := s.guard.SafeGet(ctx, sessionKey, &session)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// DeleteSession removes the stored session
func (s *Store) DeleteSession(ctx context.Context) error {
	if err := s.guard.Remove(ctx, sessionKey); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
