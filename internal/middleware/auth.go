package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"membership-auth/internal/model"
)

type tokenValidator interface {
	Parse(tokenString string) (*model.SessionClaims, error)
}

type sessionStore interface {
	SessionState(ctx context.Context, userID string) (*string, bool, error)
	ClearSession(ctx context.Context, userID string) error
}

type contextKey string

const sessionClaimsContextKey contextKey = "session_claims"

type AuthMiddleware struct {
	validator     tokenValidator
	sessions      sessionStore
	strictOtpGate bool
}

func NewAuthMiddleware(validator tokenValidator, sessions sessionStore, strictOtpGate bool) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, sessions: sessions, strictOtpGate: strictOtpGate}
}

// RequireAuth validates the bearer token in three steps: signature, expiry,
// then liveness against the stored session token. A structurally valid but
// revoked token fails the liveness check, not the signature check.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeUnauthorized(w, http.StatusUnauthorized, "TOKEN_REQUIRED", "missing or invalid authorization header")
			return
		}

		token := strings.TrimSpace(header[7:])
		claims, err := m.validator.Parse(token)
		switch {
		case err == nil:
		case claims != nil && errors.Is(err, model.ErrTokenExpired):
			// Best-effort server-side cleanup; the 401 goes out regardless.
			go m.clearExpiredSession(claims.UserID)
			writeUnauthorized(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Session expired. Please log in again.")
			return
		default:
			writeUnauthorized(w, http.StatusUnauthorized, "TOKEN_INVALID", "invalid token")
			return
		}

		stored, otpPending, err := m.sessions.SessionState(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, model.ErrUserNotFound) {
				writeUnauthorized(w, http.StatusUnauthorized, "SESSION_INVALID", "invalid session. Please log in again.")
				return
			}
			slog.Error("session liveness check failed", "user_id", claims.UserID, "error", err)
			writeUnauthorized(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
			return
		}

		if stored == nil || *stored != token {
			writeUnauthorized(w, http.StatusUnauthorized, "SESSION_INVALID", "invalid session. Please log in again.")
			return
		}

		if m.strictOtpGate && otpPending {
			writeUnauthorized(w, http.StatusForbidden, "OTP_REQUIRED", "OTP verification required")
			return
		}

		ctx := context.WithValue(r.Context(), sessionClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) clearExpiredSession(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.sessions.ClearSession(ctx, userID); err != nil {
		slog.Warn("clearing expired session failed", "user_id", userID, "error", err)
	}
}

func ClaimsFromContext(ctx context.Context) (*model.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsContextKey).(*model.SessionClaims)
	return claims, ok
}

func writeUnauthorized(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
