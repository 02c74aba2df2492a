package service

import (
	"context"
	"sync"

	"membership-auth/internal/model"
)

// In-memory stand-ins for the pgx repositories, mirroring their semantics
// (conditional session begin, idempotent clear, challenge overwrite).

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]model.User // keyed by id
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]model.User{}}
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *fakeUserStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) Create(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return model.ErrUserAlreadyExists
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, userID string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	s.users[userID] = u
	return nil
}

func (s *fakeUserStore) BeginSession(_ context.Context, userID string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	if u.IsLoggedIn {
		return model.ErrAlreadyLoggedIn
	}
	u.SessionToken = &token
	u.IsLoggedIn = true
	u.OtpPending = true
	s.users[userID] = u
	return nil
}

func (s *fakeUserStore) ClearSession(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.SessionToken = nil
	u.IsLoggedIn = false
	u.OtpPending = false
	s.users[userID] = u
	return nil
}

func (s *fakeUserStore) MarkOtpVerified(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if u.Email == email {
			u.OtpPending = false
			s.users[id] = u
		}
	}
	return nil
}

func (s *fakeUserStore) List(_ context.Context) ([]model.AuthUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.AuthUser, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, model.AuthUser{
			ID: u.ID, Username: u.Username, Email: u.Email,
			RoleID: u.RoleID, IsLoggedIn: u.IsLoggedIn,
		})
	}
	return out, nil
}

func (s *fakeUserStore) ListActiveSessions(_ context.Context) ([]model.ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ActiveSession, 0)
	for _, u := range s.users {
		if u.IsLoggedIn && u.SessionToken != nil {
			out = append(out, model.ActiveSession{
				UserID:       u.ID,
				Username:     u.Username,
				SessionToken: *u.SessionToken,
				OtpPending:   u.OtpPending,
			})
		}
	}
	return out, nil
}

type fakeRoleStore struct {
	roles map[int64]model.Role
}

func newFakeRoleStore(roles ...model.Role) *fakeRoleStore {
	s := &fakeRoleStore{roles: map[int64]model.Role{}}
	for _, r := range roles {
		s.roles[r.ID] = r
	}
	return s
}

func (s *fakeRoleStore) FindByID(_ context.Context, id int64) (model.Role, error) {
	r, ok := s.roles[id]
	if !ok {
		return model.Role{}, model.ErrRoleNotFound
	}
	return r, nil
}

type fakeOtpStore struct {
	challenges map[string]model.OtpChallenge
}

func newFakeOtpStore() *fakeOtpStore {
	return &fakeOtpStore{challenges: map[string]model.OtpChallenge{}}
}

func (s *fakeOtpStore) Upsert(_ context.Context, c model.OtpChallenge) error {
	s.challenges[c.Email] = c
	return nil
}

func (s *fakeOtpStore) Find(_ context.Context, email string) (model.OtpChallenge, error) {
	c, ok := s.challenges[email]
	if !ok {
		return model.OtpChallenge{}, model.ErrOtpNotFound
	}
	return c, nil
}

func (s *fakeOtpStore) MarkConsumed(_ context.Context, email string) error {
	c, ok := s.challenges[email]
	if !ok {
		return model.ErrOtpNotFound
	}
	c.Consumed = true
	s.challenges[email] = c
	return nil
}

type sentMail struct {
	To      string
	Subject string
	Message string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMail
	failErr error
}

func (s *fakeSender) Send(_ context.Context, to string, subject string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return s.failErr
	}
	s.sent = append(s.sent, sentMail{To: to, Subject: subject, Message: message})
	return nil
}

func (s *fakeSender) lastSent() (sentMail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sent) == 0 {
		return sentMail{}, false
	}
	return s.sent[len(s.sent)-1], true
}
