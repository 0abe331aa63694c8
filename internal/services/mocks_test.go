package services

import (
	"context"
	"sync"

	"github.com/ajramos/mailrag/internal/db"
	"github.com/ajramos/mailrag/internal/gmail"
	"github.com/stretchr/testify/mock"
)

// MockMessageRepository implements MessageRepository for testing
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) FetchFirstPage(ctx context.Context, userID int64, opts QueryOptions) (*MessagePage, error) {
	args := m.Called(ctx, userID, opts)
	page, _ := args.Get(0).(*MessagePage)
	return page, args.Error(1)
}

func (m *MockMessageRepository) FetchNextPage(ctx context.Context, userID int64, pageToken string, opts QueryOptions) (*MessagePage, error) {
	args := m.Called(ctx, userID, pageToken, opts)
	page, _ := args.Get(0).(*MessagePage)
	return page, args.Error(1)
}

func (m *MockMessageRepository) GetMessage(ctx context.Context, userID int64, id string) (*gmail.RawMessage, error) {
	args := m.Called(ctx, userID, id)
	msg, _ := args.Get(0).(*gmail.RawMessage)
	return msg, args.Error(1)
}

func (m *MockMessageRepository) MarkAsRead(ctx context.Context, userID int64, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockMessageRepository) ArchiveMessage(ctx context.Context, userID int64, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockUserLookup implements UserLookup for testing
type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) ResolveUserIDByEmail(ctx context.Context, email string) (int64, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(int64), args.Error(1)
}

// memIdentityStore is an in-memory IdentityStore
type memIdentityStore struct {
	mu   sync.Mutex
	id   int64
	err  error
	sets int
}

func (s *memIdentityStore) Get(context.Context) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, false, s.err
	}
	return s.id, s.id > 0, nil
}

func (s *memIdentityStore) Set(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.sets++
	return nil
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, email gmail.OutgoingEmail) (*gmail.SendResult, error) {
	args := m.Called(ctx, email)
	res, _ := args.Get(0).(*gmail.SendResult)
	return res, args.Error(1)
}

// MockLLMProvider implements llm.Provider for testing
type MockLLMProvider struct {
	mock.Mock
}

func (m *MockLLMProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockLLMProvider) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockGeneratedHistory implements GeneratedHistory for testing
type MockGeneratedHistory struct {
	mock.Mock
}

func (m *MockGeneratedHistory) Save(ctx context.Context, e *db.GeneratedEmail) (int64, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGeneratedHistory) List(ctx context.Context, accountEmail string, limit int) ([]*db.GeneratedEmail, error) {
	args := m.Called(ctx, accountEmail, limit)
	out, _ := args.Get(0).([]*db.GeneratedEmail)
	return out, args.Error(1)
}

func rawMessage(id, subject, from string, ms int64, labels ...string) *gmail.RawMessage {
	return &gmail.RawMessage{
		ID:           id,
		ThreadID:     "t-" + id,
		From:         from,
		Subject:      subject,
		Snippet:      subject + " snippet",
		InternalDate: gmail.EpochMillis(ms),
		LabelIDs:     labels,
	}
}
