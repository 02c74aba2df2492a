package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"membership-auth/internal/model"
)

// TokenService issues and validates signed session tokens. A token is
// tamper-evident and time-limited; whether it is still the active session
// for its user is the credential store's call, not this service's.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token signing secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

func (s *TokenService) Issue(user model.User) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role_id":  user.RoleID,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.ttl).Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse checks signature and expiry. On expiry it still returns the decoded
// claims alongside model.ErrTokenExpired so the caller can clear that
// user's stored session.
func (s *TokenService) Parse(tokenString string) (*model.SessionClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && parsed != nil {
			if claims := claimsFromToken(parsed); claims != nil {
				return claims, model.ErrTokenExpired
			}
		}
		return nil, model.ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, model.ErrTokenInvalid
	}

	claims := claimsFromToken(parsed)
	if claims == nil || claims.UserID == "" {
		return nil, model.ErrTokenInvalid
	}
	return claims, nil
}

func claimsFromToken(token *jwt.Token) *model.SessionClaims {
	claimsMap, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	claims := &model.SessionClaims{}
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Username, _ = claimsMap["username"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)
	if roleID, ok := claimsMap["role_id"].(float64); ok {
		claims.RoleID = int64(roleID)
	}
	return claims
}
