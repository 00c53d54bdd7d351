package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/messagely/messagely-go/internal/model"
	"github.com/messagely/messagely-go/internal/repository"
)

// In-memory stores backing the flow tests. They mirror the repository
// semantics, including the sentinel errors the services branch on.

type fakeUserStore struct {
	mu      sync.Mutex
	users   map[string]*model.User
	touches map[string]int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:   make(map[string]*model.User),
		touches: make(map[string]int),
	}
}

func (s *fakeUserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Username]; exists {
		return repository.ErrDuplicateUsername
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.LastLoginAt = now
	stored := *user
	s.users[user.Username] = &stored
	return nil
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *fakeUserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []model.User
	for _, u := range s.users {
		users = append(users, *u)
	}
	return users, nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, username, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = newHash
	return nil
}

func (s *fakeUserStore) TouchLastLogin(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LastLoginAt = time.Now().UTC()
	s.touches[username]++
	return nil
}

func (s *fakeUserStore) touchCount(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touches[username]
}

type fakeResetStore struct {
	mu     sync.Mutex
	users  *fakeUserStore
	codes  []*model.ResetCode
	nextID int64
}

func newFakeResetStore(users *fakeUserStore) *fakeResetStore {
	return &fakeResetStore{users: users}
}

func (s *fakeResetStore) Create(_ context.Context, username string, code int) (*model.ResetCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rc := &model.ResetCode{
		ID:        s.nextID,
		Username:  username,
		Code:      code,
		CreatedAt: time.Now().UTC(),
	}
	s.codes = append(s.codes, rc)
	copied := *rc
	return &copied, nil
}

func (s *fakeResetStore) MostRecent(_ context.Context, username string) (*model.ResetCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.codes) - 1; i >= 0; i-- {
		if s.codes[i].Username == username {
			copied := *s.codes[i]
			return &copied, nil
		}
	}
	return nil, repository.ErrNoResetCode
}

func (s *fakeResetStore) Consume(ctx context.Context, username string, codeID int64, newHash string) error {
	s.mu.Lock()
	for _, rc := range s.codes {
		if rc.ID == codeID && rc.Username == username {
			if rc.ConsumedAt != nil {
				s.mu.Unlock()
				return repository.ErrNoResetCode
			}
			now := time.Now().UTC()
			rc.ConsumedAt = &now
			s.mu.Unlock()
			return s.users.UpdatePassword(ctx, username, newHash)
		}
	}
	s.mu.Unlock()
	return repository.ErrNoResetCode
}

// backdate shifts the creation time of the latest code, for expiry tests.
func (s *fakeResetStore) backdate(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.codes[len(s.codes)-1]
	last.CreatedAt = last.CreatedAt.Add(-d)
}

type fakeMessageStore struct {
	mu       sync.Mutex
	messages map[int64]*model.Message
	nextID   int64
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: make(map[int64]*model.Message)}
}

func (s *fakeMessageStore) Create(_ context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg.ID = s.nextID
	msg.SentAt = time.Now().UTC()
	stored := *msg
	s.messages[msg.ID] = &stored
	return nil
}

func (s *fakeMessageStore) GetByID(_ context.Context, id int64) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, repository.ErrMessageNotFound
	}
	copied := *msg
	return &copied, nil
}

func (s *fakeMessageStore) MarkRead(_ context.Context, id int64) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, repository.ErrMessageNotFound
	}
	if msg.ReadAt == nil {
		now := time.Now().UTC()
		msg.ReadAt = &now
	}
	copied := *msg
	return &copied, nil
}

func (s *fakeMessageStore) ListFrom(_ context.Context, username string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Message
	for _, m := range s.messages {
		if m.FromUsername == username {
			result = append(result, *m)
		}
	}
	return result, nil
}

func (s *fakeMessageStore) ListTo(_ context.Context, username string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Message
	for _, m := range s.messages {
		if m.ToUsername == username {
			result = append(result, *m)
		}
	}
	return result, nil
}

type sentSMS struct {
	To   string
	Body string
}

// fakeSender records sends on a channel so tests can wait for the
// fire-and-forget delivery goroutine.
type fakeSender struct {
	ch chan sentSMS
}

func newFakeSender() *fakeSender {
	return &fakeSender{ch: make(chan sentSMS, 16)}
}

func (s *fakeSender) Send(_ context.Context, to, body string) (string, error) {
	s.ch <- sentSMS{To: to, Body: body}
	return "fake-delivery-id", nil
}

func (s *fakeSender) waitForSend(t *testing.T) sentSMS {
	t.Helper()
	select {
	case msg := <-s.ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SMS delivery")
		return sentSMS{}
	}
}
