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

func TestReplySubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello", "Re: Hello"},
		{"Re: Hello", "Re: Hello"},
		{"RE: Hello", "RE: Hello"},
		{"  re:Hello ", "re:Hello"},
		{"", "Re: "},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplySubject(tt.in))
		})
	}
}

func TestCompositionService_BuildReply(t *testing.T) {
	received := time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local)
	msg := &gmail.Message{
		ID:         "m1",
		ThreadID:   "t1",
		From:       "alice@example.com",
		FromName:   "Alice",
		Subject:    "Lunch",
		Content:    "<p>Are you free?</p><p>Noon works.</p>",
		ReceivedAt: received,
	}
	svc := NewCompositionService(nil, "me@example.com", "Me")

	c := svc.BuildReply(msg, received.Add(time.Hour))
	assert.Equal(t, "alice@example.com", c.To)
	assert.Equal(t, "me@example.com", c.From)
	assert.Equal(t, "Me", c.FromName)
	assert.Equal(t, "Re: Lunch", c.Subject)
	assert.Equal(t, "m1", c.OriginalID)
	assert.Equal(t, "t1", c.ThreadID)
	assert.Equal(t,
		"\n\n---\nOn 3/5/2024 at 2:07:09 PM, Alice wrote:\n\n> Are you free?\n> \n> Noon works.",
		c.Body)

	msg.FromName = ""
	assert.Contains(t, QuoteReply(msg), ", alice@example.com wrote:")
}

func TestCompositionService_Validate(t *testing.T) {
	svc := NewCompositionService(nil, "", "")
	valid := &Composition{To: "a@example.com", From: "b@example.com", Subject: "s", Body: "b"}
	assert.Empty(t, svc.Validate(valid))

	errs := svc.Validate(&Composition{To: "a@example.com"})
	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, "All fields are required", e.Message)
	}

	errs = svc.Validate(&Composition{To: "not-an-email", From: "b@example", Subject: "s", Body: "b"})
	require.Len(t, errs, 2)
	assert.Equal(t, "Please enter valid email addresses", errs[0].Message)
	assert.Equal(t, "to", errs[0].Field)
	assert.Equal(t, "from", errs[1].Field)

	assert.Len(t, svc.Validate(nil), 1)
}

func TestCompositionService_Send(t *testing.T) {
	ctx := context.Background()
	c := &Composition{To: " a@example.com", From: "b@example.com", FromName: "B", Subject: "s", Body: "hello"}
	want := gmail.OutgoingEmail{To: "a@example.com", From: "b@example.com", FromName: "B", Subject: "s", Content: "hello"}

	t.Run("success with default message", func(t *testing.T) {
		sender := &MockEmailSender{}
		sender.On("SendEmail", mock.Anything, want).Return(&gmail.SendResult{Success: true}, nil).Once()
		msg, err := NewCompositionService(sender, "", "").Send(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, "Email sent successfully!", msg)
		sender.AssertExpectations(t)
	})

	t.Run("backend message", func(t *testing.T) {
		sender := &MockEmailSender{}
		sender.On("SendEmail", mock.Anything, want).Return(&gmail.SendResult{Success: true, Message: "Queued"}, nil).Once()
		msg, err := NewCompositionService(sender, "", "").Send(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, "Queued", msg)
	})

	t.Run("backend refusal", func(t *testing.T) {
		sender := &MockEmailSender{}
		sender.On("SendEmail", mock.Anything, want).Return(&gmail.SendResult{Error: "quota exceeded"}, nil).Once()
		_, err := NewCompositionService(sender, "", "").Send(ctx, c)
		assert.EqualError(t, err, "quota exceeded")
	})

	t.Run("transport failure", func(t *testing.T) {
		sender := &MockEmailSender{}
		sender.On("SendEmail", mock.Anything, want).Return(nil, &gmail.FetchError{Op: "send email", Status: 503, Body: "down"}).Once()
		_, err := NewCompositionService(sender, "", "").Send(ctx, c)
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})

	t.Run("invalid composition never sent", func(t *testing.T) {
		sender := &MockEmailSender{}
		_, err := NewCompositionService(sender, "", "").Send(ctx, &Composition{})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Contains(t, err.Error(), "All fields are required")
		sender.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	})

	t.Run("no sender", func(t *testing.T) {
		_, err := NewCompositionService(nil, "", "").Send(ctx, c)
		assert.True(t, errors.Is(err, ErrServiceUnavailable))
	})
}
