package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/quantfolio/auth"
)

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// nopLogger discards everything; used where log calls are incidental
type nopLogger struct{}

func (nopLogger) Debug(format string, args ...any) {}
func (nopLogger) Info(format string, args ...any)  {}
func (nopLogger) Warn(format string, args ...any)  {}
func (nopLogger) Error(format string, args ...any) {}

// memoryStore is an in-memory auth.UserStore double. Reads hand back
// copies so mutations only land once Save is called, the way a real row
// scan behaves.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*auth.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]*auth.User{}}
}

func (s *memoryStore) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.records[username]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, auth.ErrAccountNotFound
}

func (s *memoryStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.records {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrAccountNotFound
}

func (s *memoryStore) Save(ctx context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	clone := *user
	s.records[user.Username] = &clone

	saved := clone
	return &saved, nil
}

var _ auth.UserStore = (*memoryStore)(nil)

type sentCode struct {
	Address string
	Code    string
}

// recordingNotifier captures dispatched codes and can simulate a
// transport failure
type recordingNotifier struct {
	mu    sync.Mutex
	Sent  []sentCode
	Fail  error
	calls int
}

func (n *recordingNotifier) Send(ctx context.Context, address, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls++
	if n.Fail != nil {
		return n.Fail
	}
	n.Sent = append(n.Sent, sentCode{Address: address, Code: code})
	return nil
}

func (n *recordingNotifier) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func (n *recordingNotifier) Last() (sentCode, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.Sent) == 0 {
		return sentCode{}, false
	}
	return n.Sent[len(n.Sent)-1], true
}

var _ auth.Notifier = (*recordingNotifier)(nil)

// plainHasher avoids bcrypt's work factor in flow tests. The "hash" is a
// reversible prefix so fixtures can be seeded without hashing.
type plainHasher struct{}

func (plainHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", auth.ErrNoEmptyString
	}
	return "hashed:" + password, nil
}

func (plainHasher) ComparePasswordAndHash(password, hash string) error {
	if hash != "hashed:"+password {
		return auth.ErrMismatchedHashAndPassword
	}
	return nil
}

var _ auth.PasswordAuthenticator = plainHasher{}

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
