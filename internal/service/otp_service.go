package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"membership-auth/internal/model"
)

// Sender is the notification collaborator. Dispatch either succeeds or
// fails; there is no retry in this layer.
type Sender interface {
	Send(ctx context.Context, to string, subject string, message string) error
}

type otpStore interface {
	Upsert(ctx context.Context, c model.OtpChallenge) error
	Find(ctx context.Context, email string) (model.OtpChallenge, error)
	MarkConsumed(ctx context.Context, email string) error
}

type OtpService struct {
	store  otpStore
	sender Sender
	ttl    time.Duration
	now    func() time.Time
}

func NewOtpService(store otpStore, sender Sender, ttl time.Duration) *OtpService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &OtpService{
		store:  store,
		sender: sender,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue generates a fresh 6-digit challenge, overwriting any unconsumed one
// for the email, and dispatches it. The challenge is persisted before
// dispatch so a failed send can be recovered with a resend.
func (s *OtpService) Issue(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate otp code: %w", err)
	}

	now := s.now()
	challenge := model.OtpChallenge{
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.Upsert(ctx, challenge); err != nil {
		return err
	}

	message := fmt.Sprintf(
		"Your OTP code is: %s\n\nThis code will expire in %d minutes.\n\nIf you did not request this, please ignore this email.",
		code, int(s.ttl.Minutes()))
	if err := s.sender.Send(ctx, email, "Your OTP Code", message); err != nil {
		slog.Error("otp dispatch failed", "email", email, "error", err)
		return fmt.Errorf("%w: %s", model.ErrNotificationFailed, "otp email")
	}

	return nil
}

// Verify consumes the challenge on success. A consumed challenge reports
// the same error as a missing one, so replaying a verified code fails.
func (s *OtpService) Verify(ctx context.Context, email string, submitted string) error {
	challenge, err := s.store.Find(ctx, email)
	if err != nil {
		return err
	}
	if challenge.Consumed {
		return model.ErrOtpNotFound
	}
	if challenge.Code != strings.TrimSpace(submitted) {
		return model.ErrOtpMismatch
	}
	if s.now().After(challenge.ExpiresAt) {
		return model.ErrOtpExpired
	}

	return s.store.MarkConsumed(ctx, email)
}

// generateCode draws a uniformly random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
