package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"membership-auth/internal/model"
)

type sessionReaper interface {
	ListActiveSessions(ctx context.Context) ([]model.ActiveSession, error)
	ClearSession(ctx context.Context, userID string) error
}

type tokenParser interface {
	Parse(tokenString string) (*model.SessionClaims, error)
}

// Sweeper force-logs-out users whose session token has expired. It only
// reaps expiry: tokens that fail validation for any other reason are left
// untouched.
type Sweeper struct {
	users    sessionReaper
	tokens   tokenParser
	interval time.Duration
}

func NewSweeper(users sessionReaper, tokens tokenParser, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Sweeper{users: users, tokens: tokens, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping on a fixed interval. Meant to
// run on its own goroutine; it shares no state with request handlers beyond
// the storage layer.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("session sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns the number of sessions reaped. A failure
// on one record is logged and the loop continues.
func (s *Sweeper) Sweep(ctx context.Context) int {
	sessions, err := s.users.ListActiveSessions(ctx)
	if err != nil {
		slog.Error("session sweep: listing active sessions failed", "error", err)
		return 0
	}

	reaped := 0
	for _, session := range sessions {
		_, err := s.tokens.Parse(session.SessionToken)
		if !errors.Is(err, model.ErrTokenExpired) {
			continue
		}

		if err := s.users.ClearSession(ctx, session.UserID); err != nil {
			slog.Error("session sweep: clearing expired session failed",
				"user_id", session.UserID, "error", err)
			continue
		}
		reaped++
	}

	if reaped > 0 {
		slog.Info("session sweep completed", "checked", len(sessions), "reaped", reaped)
	}
	return reaped
}
