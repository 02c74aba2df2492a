package handler_test

import (
	"context"
	"sync"

	"membership-auth/internal/model"
)

// In-memory stores backing the router-level tests. They reproduce the
// repository contracts: conditional session begin, idempotent clear,
// challenge overwrite per email.

type memUserStore struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]model.User{}}
}

func (s *memUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *memUserStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *memUserStore) Create(_ context.Context, u model.User) error {
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

func (s *memUserStore) UpdatePassword(_ context.Context, userID string, passwordHash string) error {
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

func (s *memUserStore) BeginSession(_ context.Context, userID string, token string) error {
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

func (s *memUserStore) ClearSession(_ context.Context, userID string) error {
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

func (s *memUserStore) SessionState(_ context.Context, userID string) (*string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, false, model.ErrUserNotFound
	}
	return u.SessionToken, u.OtpPending, nil
}

func (s *memUserStore) MarkOtpVerified(_ context.Context, email string) error {
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

func (s *memUserStore) List(_ context.Context) ([]model.AuthUser, error) {
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

type memRoleStore struct {
	mu     sync.Mutex
	nextID int64
	roles  map[int64]model.Role
	inUse  map[int64]bool
}

func newMemRoleStore() *memRoleStore {
	return &memRoleStore{nextID: 1, roles: map[int64]model.Role{}, inUse: map[int64]bool{}}
}

func (s *memRoleStore) Create(_ context.Context, name string) (model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.roles {
		if r.Name == name {
			return model.Role{}, model.ErrRoleAlreadyExists
		}
	}
	role := model.Role{ID: s.nextID, Name: name}
	s.roles[role.ID] = role
	s.nextID++
	return role, nil
}

func (s *memRoleStore) FindByID(_ context.Context, id int64) (model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.roles[id]
	if !ok {
		return model.Role{}, model.ErrRoleNotFound
	}
	return r, nil
}

func (s *memRoleStore) List(_ context.Context) ([]model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	return out, nil
}

func (s *memRoleStore) Update(_ context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.roles[id]
	if !ok {
		return model.ErrRoleNotFound
	}
	r.Name = name
	s.roles[id] = r
	return nil
}

func (s *memRoleStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[id]; !ok {
		return model.ErrRoleNotFound
	}
	if s.inUse[id] {
		return model.ErrRoleInUse
	}
	delete(s.roles, id)
	return nil
}

type memOtpStore struct {
	mu         sync.Mutex
	challenges map[string]model.OtpChallenge
}

func newMemOtpStore() *memOtpStore {
	return &memOtpStore{challenges: map[string]model.OtpChallenge{}}
}

func (s *memOtpStore) Upsert(_ context.Context, c model.OtpChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[c.Email] = c
	return nil
}

func (s *memOtpStore) Find(_ context.Context, email string) (model.OtpChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[email]
	if !ok {
		return model.OtpChallenge{}, model.ErrOtpNotFound
	}
	return c, nil
}

func (s *memOtpStore) MarkConsumed(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[email]
	if !ok {
		return model.ErrOtpNotFound
	}
	c.Consumed = true
	s.challenges[email] = c
	return nil
}

type capturingSender struct {
	mu   sync.Mutex
	sent []struct {
		To      string
		Subject string
		Message string
	}
}

func (s *capturingSender) Send(_ context.Context, to string, subject string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, struct {
		To      string
		Subject string
		Message string
	}{to, subject, message})
	return nil
}
