package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpClient "github.com/iudanet/homekeeper/internal/client/api"
	pkgapi "github.com/iudanet/homekeeper/pkg/api"
)

// mockSessionStore implements SessionStore for testing
type mockSessionStore struct {
	session   *Session
	saveErr   error
	getErr    error
	deleteErr error
}

func (m *mockSessionStore) SaveSession(ctx context.Context, session *Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	// Сохраняем копию данных
	copied := *session
	m.session = &copied
	return nil
}

func (m *mockSessionStore) GetSession(ctx context.Context) (*Session, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.session == nil {
		return nil, ErrSessionNotFound
	}
	copied := *m.session
	return &copied, nil
}

func (m *mockSessionStore) DeleteSession(ctx context.Context) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.session = nil
	return nil
}

// mockAPI implements api.ClientAPI for testing
type mockAPI struct {
	checkResp    *pkgapi.SessionResponse
	checkErr     error
	refreshResp  *pkgapi.TokenResponse
	refreshErr   error
	checkCalls   int
	refreshCalls int
	lastToken    string
}

func (m *mockAPI) CheckSession(ctx context.Context, accessToken string) (*pkgapi.SessionResponse, error) {
	m.checkCalls++
	m.lastToken = accessToken
	if m.checkErr != nil {
		return nil, m.checkErr
	}
	return m.checkResp, nil
}

func (m *mockAPI) RefreshSession(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
	m.refreshCalls++
	m.lastToken = refreshToken
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return m.refreshResp, nil
}

func (m *mockAPI) SubmitAction(ctx context.Context, accessToken string, req *pkgapi.ActionRequest) error {
	return nil
}

func newTestManager(store SessionStore, client httpClient.ClientAPI) *Manager {
	return NewManager(store, client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestManager_Check_Success(t *testing.T) {
	store := &mockSessionStore{session: &Session{AccessToken: "access-1"}}
	client := &mockAPI{checkResp: &pkgapi.SessionResponse{UserID: "u", ExpiresAt: 1900000000}}
	m := newTestManager(store, client)

	expiry, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1900000000), expiry.Unix())
	assert.Equal(t, 1, client.checkCalls)
	assert.Equal(t, "access-1", client.lastToken)
}

func TestManager_Check_NoStoredSession(t *testing.T) {
	m := newTestManager(&mockSessionStore{}, &mockAPI{})

	_, err := m.Check(context.Background())
	// Отсутствие сессии выглядит для монитора как истёкшая сессия
	assert.ErrorIs(t, err, httpClient.ErrSessionExpired)
}

func TestManager_Check_PlatformRejects(t *testing.T) {
	store := &mockSessionStore{session: &Session{AccessToken: "stale"}}
	client := &mockAPI{checkErr: &httpClient.HTTPError{StatusCode: http.StatusUnauthorized}}
	m := newTestManager(store, client)

	_, err := m.Check(context.Background())
	assert.ErrorIs(t, err, httpClient.ErrSessionExpired)
}

func TestManager_Check_FallsBackToStoredExpiry(t *testing.T) {
	store := &mockSessionStore{session: &Session{AccessToken: "a", ExpiresAt: 1800000000}}
	// Платформа не сообщает срок жизни
	client := &mockAPI{checkResp: &pkgapi.SessionResponse{UserID: "u"}}
	m := newTestManager(store, client)

	expiry, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1800000000), expiry.Unix())
}

func TestManager_Refresh_Success(t *testing.T) {
	store := &mockSessionStore{session: &Session{
		UserID:       "user-1",
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
	}}
	client := &mockAPI{refreshResp: &pkgapi.TokenResponse{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresIn:    3600,
	}}
	m := newTestManager(store, client)
	now := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Refresh(context.Background()))

	require.NotNil(t, store.session)
	assert.Equal(t, "user-1", store.session.UserID)
	assert.Equal(t, "new-access", store.session.AccessToken)
	assert.Equal(t, "new-refresh", store.session.RefreshToken)
	assert.Equal(t, now.Add(time.Hour).Unix(), store.session.ExpiresAt)
	assert.Equal(t, "old-refresh", client.lastToken)
}

func TestManager_Refresh_Rejected(t *testing.T) {
	store := &mockSessionStore{session: &Session{RefreshToken: "revoked"}}
	client := &mockAPI{refreshErr: &httpClient.HTTPError{StatusCode: http.StatusForbidden}}
	m := newTestManager(store, client)

	err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, httpClient.ErrSessionExpired)
}

func TestManager_IsAuthenticated(t *testing.T) {
	now := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		session  *Session
		expected bool
	}{
		{name: "no session", session: nil, expected: false},
		{name: "expired", session: &Session{ExpiresAt: now.Add(-time.Minute).Unix()}, expected: false},
		{name: "valid", session: &Session{ExpiresAt: now.Add(time.Hour).Unix()}, expected: true},
		{name: "no expiry recorded", session: &Session{}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(&mockSessionStore{session: tt.session}, &mockAPI{})
			m.now = func() time.Time { return now }

			got, err := m.IsAuthenticated(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestManager_SetSession_ExpiryFromJWT(t *testing.T) {
	store := &mockSessionStore{}
	m := newTestManager(store, &mockAPI{})

	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	require.NoError(t, m.SetSession(context.Background(), "user-1", signed, "refresh-1"))

	require.NotNil(t, store.session)
	assert.Equal(t, exp.Unix(), store.session.ExpiresAt)
	assert.Equal(t, signed, store.session.AccessToken)
}

func TestManager_SetSession_OpaqueToken(t *testing.T) {
	store := &mockSessionStore{}
	m := newTestManager(store, &mockAPI{})

	// Не-JWT токен сохраняется без срока жизни
	require.NoError(t, m.SetSession(context.Background(), "user-1", "opaque-token", "refresh-1"))

	require.NotNil(t, store.session)
	assert.Equal(t, int64(0), store.session.ExpiresAt)
}

func TestManager_ClearSession(t *testing.T) {
	store := &mockSessionStore{session: &Session{UserID: "u"}}
	m := newTestManager(store, &mockAPI{})

	require.NoError(t, m.ClearSession(context.Background()))
	assert.Nil(t, store.session)

	// Повторная очистка не является ошибкой
	store.deleteErr = ErrSessionNotFound
	assert.NoError(t, m.ClearSession(context.Background()))
}

func TestManager_AccessToken(t *testing.T) {
	store := &mockSessionStore{session: &Session{AccessToken: "access-1"}}
	m := newTestManager(store, &mockAPI{})

	token, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
}

func TestManager_AccessToken_NoSession(t *testing.T) {
	m := newTestManager(&mockSessionStore{}, &mockAPI{})

	_, err := m.AccessToken(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, httpClient.ErrSessionExpired)
}
