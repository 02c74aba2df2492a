package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"membership-auth/internal/model"
)

type fakeValidator struct {
	claims *model.SessionClaims
	err    error
}

func (f *fakeValidator) Parse(string) (*model.SessionClaims, error) {
	return f.claims, f.err
}

type fakeSessionStore struct {
	mu         sync.Mutex
	stored     *string
	otpPending bool
	stateErr   error
	cleared    chan string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{cleared: make(chan string, 1)}
}

func (f *fakeSessionStore) SessionState(_ context.Context, _ string) (*string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stored, f.otpPending, f.stateErr
}

func (f *fakeSessionStore) ClearSession(_ context.Context, userID string) error {
	f.cleared <- userID
	return nil
}

func strPtr(s string) *string { return &s }

func testClaims() *model.SessionClaims {
	return &model.SessionClaims{UserID: "user-1", Username: "alice", RoleID: 3, TokenID: "jti-1"}
}

func runRequireAuth(m *AuthMiddleware, authorization string) (*httptest.ResponseRecorder, *model.SessionClaims) {
	var captured *model.SessionClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	m.RequireAuth(next).ServeHTTP(rec, req)
	return rec, captured
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	m := NewAuthMiddleware(&fakeValidator{}, newFakeSessionStore(), false)

	rec, _ := runRequireAuth(m, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REQUIRED", decodeErrorCode(t, rec))
}

func TestRequireAuth_NonBearerHeader(t *testing.T) {
	m := NewAuthMiddleware(&fakeValidator{}, newFakeSessionStore(), false)

	rec, _ := runRequireAuth(m, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REQUIRED", decodeErrorCode(t, rec))
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	validator := &fakeValidator{err: model.ErrTokenInvalid}
	m := NewAuthMiddleware(validator, newFakeSessionStore(), false)

	rec, _ := runRequireAuth(m, "Bearer bad-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_INVALID", decodeErrorCode(t, rec))
}

func TestRequireAuth_ExpiredTokenClearsSession(t *testing.T) {
	validator := &fakeValidator{claims: testClaims(), err: model.ErrTokenExpired}
	sessions := newFakeSessionStore()
	m := NewAuthMiddleware(validator, sessions, false)

	rec, _ := runRequireAuth(m, "Bearer expired-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_EXPIRED", decodeErrorCode(t, rec))

	// The cleanup runs on its own goroutine after the response is written.
	select {
	case userID := <-sessions.cleared:
		assert.Equal(t, "user-1", userID)
	case <-time.After(time.Second):
		t.Fatal("expired session was never cleared")
	}
}

func TestRequireAuth_NoStoredSession(t *testing.T) {
	validator := &fakeValidator{claims: testClaims()}
	sessions := newFakeSessionStore() // stored token nil: logged out
	m := NewAuthMiddleware(validator, sessions, false)

	rec, _ := runRequireAuth(m, "Bearer some-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "SESSION_INVALID", decodeErrorCode(t, rec))
}

func TestRequireAuth_StoredTokenMismatch(t *testing.T) {
	validator := &fakeValidator{claims: testClaims()}
	sessions := newFakeSessionStore()
	sessions.stored = strPtr("a-different-token")
	m := NewAuthMiddleware(validator, sessions, false)

	rec, _ := runRequireAuth(m, "Bearer some-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "SESSION_INVALID", decodeErrorCode(t, rec))
}

func TestRequireAuth_UserVanished(t *testing.T) {
	validator := &fakeValidator{claims: testClaims()}
	sessions := newFakeSessionStore()
	sessions.stateErr = model.ErrUserNotFound
	m := NewAuthMiddleware(validator, sessions, false)

	rec, _ := runRequireAuth(m, "Bearer some-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "SESSION_INVALID", decodeErrorCode(t, rec))
}

func TestRequireAuth_LiveSessionPassesClaims(t *testing.T) {
	validator := &fakeValidator{claims: testClaims()}
	sessions := newFakeSessionStore()
	sessions.stored = strPtr("some-token")
	m := NewAuthMiddleware(validator, sessions, false)

	rec, claims := runRequireAuth(m, "Bearer some-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestRequireAuth_PendingOtpAllowedByDefault(t *testing.T) {
	validator := &fakeValidator{claims: testClaims()}
	sessions := newFakeSessionStore()
	sessions.stored = strPtr("some-token")
	sessions.otpPending = true
	m := NewAuthMiddleware(validator, sessions, false)

	rec, _ := runRequireAuth(m, "Bearer some-token")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_StrictGateBlocksPendingOtp(t *testing.T) {
	validator := &fakeValidator{claims: testClaims()}
	sessions := newFakeSessionStore()
	sessions.stored = strPtr("some-token")
	sessions.otpPending = true
	m := NewAuthMiddleware(validator, sessions, true)

	rec, _ := runRequireAuth(m, "Bearer some-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "OTP_REQUIRED", decodeErrorCode(t, rec))
}
