package render

import (
	"strings"
	"testing"
	"time"

	"github.com/ajramos/mailrag/internal/config"
	"github.com/ajramos/mailrag/internal/gmail"
	"github.com/stretchr/testify/assert"
)

func TestFormatListDate(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"zero", time.Time{}, ""},
		{"within a day", now.Add(-time.Hour), "11:00"},
		{"future skew", now.Add(5 * time.Minute), "12:05"},
		{"within a week", now.Add(-3 * 24 * time.Hour), "Tue"},
		{"older", now.Add(-30 * 24 * time.Hour), "Apr 10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatListDate(tt.at, now))
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "hello...", Preview("hello   world\nagain", 8))
	assert.Equal(t, "short", Preview("short", 10))
	assert.Equal(t, "", Preview("anything", 0))
}

func TestEmailRenderer_FormatEmailList(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	er := NewEmailRenderer()
	er.now = func() time.Time { return now }

	msg := &gmail.Message{
		ID:         "m1",
		From:       "alice@example.com",
		FromName:   "Alice",
		Subject:    "Quarterly report",
		ReceivedAt: now.Add(-2 * time.Hour),
		IsStarred:  true,
	}
	row, color := er.FormatEmailList(msg, 80)
	assert.True(t, strings.HasPrefix(row, "●*"), row)
	assert.Contains(t, row, "Alice")
	assert.Contains(t, row, "Quarterly report")
	assert.True(t, strings.HasSuffix(strings.TrimRight(row, " "), "10:00"), row)
	assert.Equal(t, config.DefaultColors().Email.UnreadColor.Color(), color)

	msg.IsRead = true
	_, color = er.FormatEmailList(msg, 80)
	assert.Equal(t, config.DefaultColors().Email.StarredColor.Color(), color)

	msg.IsStarred = false
	msg.Subject = ""
	msg.FromName = ""
	row, color = er.FormatEmailList(msg, 80)
	assert.Contains(t, row, "alice@example.com")
	assert.Contains(t, row, "(no subject)")
	assert.Equal(t, config.DefaultColors().Email.ReadColor.Color(), color)
}

func TestEmailRenderer_FormatHeader(t *testing.T) {
	er := NewEmailRenderer()
	msg := &gmail.Message{
		From:     "alice@example.com",
		FromName: "Alice",
		To:       "bob@example.com",
		Subject:  "Hi",
		LabelIDs: []string{"INBOX"},
	}
	header := er.FormatHeader(msg)
	assert.Contains(t, header, "Subject: Hi\n")
	assert.Contains(t, header, "From: Alice <alice@example.com>\n")
	assert.Contains(t, header, "To: bob@example.com\n")
	assert.Contains(t, header, "Labels: INBOX\n")
	assert.NotContains(t, header, "Date:")
	assert.Empty(t, er.FormatHeader(nil))
}
