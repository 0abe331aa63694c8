package services

import (
	"context"
	"time"

	"github.com/ajramos/mailrag/internal/gmail"
)

// FullMessageLoader fetches the complete form of a message on demand
type FullMessageLoader struct {
	repo MessageRepository
	now  func() time.Time
}

// NewFullMessageLoader creates a loader over repo
func NewFullMessageLoader(repo MessageRepository) *FullMessageLoader {
	return &FullMessageLoader{repo: repo, now: time.Now}
}

// LoadFull fetches and normalizes one message, marking it Full
func (l *FullMessageLoader) LoadFull(ctx context.Context, userID int64, id string) (*gmail.Message, error) {
	raw, err := l.repo.GetMessage(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	msg := gmail.NormalizeAt(raw, l.now())
	if msg == nil {
		return nil, ErrNotFound
	}
	if msg.ID == "" {
		msg.ID = id
	}
	msg.Full = true
	return msg, nil
}
