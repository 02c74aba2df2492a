package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"membership-auth/internal/model"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, u model.User) error
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
	BeginSession(ctx context.Context, userID string, token string) error
	ClearSession(ctx context.Context, userID string) error
	MarkOtpVerified(ctx context.Context, email string) error
	List(ctx context.Context) ([]model.AuthUser, error)
}

type roleResolver interface {
	FindByID(ctx context.Context, id int64) (model.Role, error)
}

// AuthService coordinates registration, the two-step login, logout and
// password reset. It is the only writer of session state besides the
// sweeper and the middleware's expiry side effect.
type AuthService struct {
	users      userStore
	roles      roleResolver
	otp        *OtpService
	tokens     *TokenService
	sender     Sender
	bcryptCost int
}

func NewAuthService(users userStore, roles roleResolver, otp *OtpService, tokens *TokenService, sender Sender, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = 12
	}

	return &AuthService{
		users:      users,
		roles:      roles,
		otp:        otp,
		tokens:     tokens,
		sender:     sender,
		bcryptCost: bcryptCost,
	}
}

// Register creates a credential record with empty session state. The
// welcome email is best-effort: a failed dispatch is logged, never rolled
// back into the registration result.
func (s *AuthService) Register(ctx context.Context, username string, password string, email string, roleID int64) (model.AuthUser, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	email = strings.TrimSpace(email)

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return model.AuthUser{}, err
	}
	if exists {
		return model.AuthUser{}, model.ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return model.AuthUser{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       roleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return model.AuthUser{}, err
	}

	welcome := fmt.Sprintf("Hello, your member code is %s. Your account has been created successfully.", username)
	if err := s.sender.Send(ctx, email, "Welcome to Our Service", welcome); err != nil {
		slog.Warn("welcome email failed", "username", username, "error", err)
	}

	return model.AuthUser{ID: user.ID, Username: user.Username, Email: user.Email, RoleID: user.RoleID}, nil
}

// Login runs password check, single-session enforcement, token minting and
// OTP dispatch. The returned token is provisional pending OTP verification
// but already usable on authenticated routes unless the strict gate is on.
func (s *AuthService) Login(ctx context.Context, username string, password string) (model.LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return model.LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.LoginResult{}, model.ErrInvalidCredentials
	}

	if user.IsLoggedIn {
		return model.LoginResult{}, model.ErrAlreadyLoggedIn
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return model.LoginResult{}, err
	}

	// The conditional update is the serialization point; a raced second
	// login loses here even though the flag check above passed.
	if err := s.users.BeginSession(ctx, user.ID, token); err != nil {
		return model.LoginResult{}, err
	}

	roleName := ""
	if role, roleErr := s.roles.FindByID(ctx, user.RoleID); roleErr == nil {
		roleName = role.Name
	} else if !errors.Is(roleErr, model.ErrRoleNotFound) {
		slog.Warn("role lookup failed during login", "user_id", user.ID, "error", roleErr)
	}

	if err := s.otp.Issue(ctx, user.Email); err != nil {
		return model.LoginResult{}, err
	}

	return model.LoginResult{
		Token: token,
		User: model.AuthUser{
			ID:         user.ID,
			Username:   user.Username,
			Email:      user.Email,
			RoleID:     user.RoleID,
			RoleName:   roleName,
			IsLoggedIn: true,
		},
	}, nil
}

func (s *AuthService) VerifyOtp(ctx context.Context, email string, code string) error {
	if err := s.otp.Verify(ctx, email, code); err != nil {
		return err
	}
	return s.users.MarkOtpVerified(ctx, email)
}

func (s *AuthService) ResendOtp(ctx context.Context, email string) error {
	return s.otp.Issue(ctx, email)
}

// Logout clears the stored session. Idempotent: logging out an already
// logged-out user succeeds; only a vanished record is an error.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.users.ClearSession(ctx, userID)
}

// ResetPassword overwrites the secret unconditionally. The original
// contract requires neither the old password nor an OTP gate.
func (s *AuthService) ResetPassword(ctx context.Context, username string, newPassword string) error {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(newPassword)), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.users.UpdatePassword(ctx, user.ID, string(hash))
}

func (s *AuthService) Profile(ctx context.Context, userID string) (model.AuthUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.AuthUser{}, err
	}

	roleName := ""
	if role, roleErr := s.roles.FindByID(ctx, user.RoleID); roleErr == nil {
		roleName = role.Name
	}

	return model.AuthUser{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		RoleID:     user.RoleID,
		RoleName:   roleName,
		IsLoggedIn: user.IsLoggedIn,
	}, nil
}

func (s *AuthService) Users(ctx context.Context) ([]model.AuthUser, error) {
	return s.users.List(ctx)
}
