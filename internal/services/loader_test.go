package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ajramos/mailrag/internal/gmail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFullMessageLoader_LoadFull(t *testing.T) {
	fetched := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("normalizes and marks full", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessage", mock.Anything, int64(3), "m1").Return(&gmail.RawMessage{
			Subject:  "Hello",
			From:     `"Alice" <alice@example.com>`,
			LabelIDs: []string{"UNREAD"},
			Snippet:  "hi there",
		}, nil)

		l := NewFullMessageLoader(repo)
		l.now = func() time.Time { return fetched }

		msg, err := l.LoadFull(context.Background(), 3, "m1")
		require.NoError(t, err)
		assert.Equal(t, "m1", msg.ID, "id falls back to the requested one")
		assert.True(t, msg.Full)
		assert.Equal(t, "Alice", msg.FromName)
		assert.False(t, msg.IsRead)
		assert.Equal(t, fetched, msg.ReceivedAt)
		repo.AssertExpectations(t)
	})

	t.Run("fetch error", func(t *testing.T) {
		repo := new(MockMessageRepository)
		boom := errors.New("boom")
		repo.On("GetMessage", mock.Anything, int64(3), "m1").Return(nil, boom)

		msg, err := NewFullMessageLoader(repo).LoadFull(context.Background(), 3, "m1")
		assert.Nil(t, msg)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty response", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessage", mock.Anything, int64(3), "m1").Return(nil, nil)

		_, err := NewFullMessageLoader(repo).LoadFull(context.Background(), 3, "m1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
