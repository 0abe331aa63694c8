package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ajramos/mailrag/internal/gmail"
	"github.com/ajramos/mailrag/internal/render"
	"go.uber.org/zap"
)

const defaultSentMessage = "Email sent successfully!"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CompositionServiceImpl implements CompositionService
type CompositionServiceImpl struct {
	sender   EmailSender
	from     string
	fromName string
	logger   *zap.Logger
}

// NewCompositionService creates a composition service sending as from/fromName
func NewCompositionService(sender EmailSender, from, fromName string) *CompositionServiceImpl {
	return &CompositionServiceImpl{
		sender:   sender,
		from:     strings.TrimSpace(from),
		fromName: strings.TrimSpace(fromName),
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for debug output
func (s *CompositionServiceImpl) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// BuildReply prepares a reply to msg with the original quoted below a
// separator line.
func (s *CompositionServiceImpl) BuildReply(msg *gmail.Message, now time.Time) *Composition {
	if msg == nil {
		return &Composition{From: s.from, FromName: s.fromName}
	}
	return &Composition{
		To:         msg.From,
		From:       s.from,
		FromName:   s.fromName,
		Subject:    ReplySubject(msg.Subject),
		Body:       QuoteReply(msg),
		OriginalID: msg.ID,
		ThreadID:   msg.ThreadID,
	}
}

// ReplySubject prefixes subject with "Re: " unless it already has it
func ReplySubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if len(trimmed) >= 3 && strings.EqualFold(trimmed[:3], "re:") {
		return trimmed
	}
	return "Re: " + trimmed
}

// QuoteReply renders the quoted body of a reply to msg
func QuoteReply(msg *gmail.Message) string {
	received := msg.ReceivedAt.Local()
	var b strings.Builder
	fmt.Fprintf(&b, "\n\n---\nOn %s at %s, %s wrote:\n\n",
		received.Format("1/2/2006"),
		received.Format("3:04:05 PM"),
		msg.DisplayName())
	lines := strings.Split(render.HTMLToText(msg.Content), "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("> ")
		b.WriteString(line)
	}
	return b.String()
}

// Validate checks that every field is present and both addresses are valid
func (s *CompositionServiceImpl) Validate(c *Composition) []ValidationError {
	if c == nil {
		return []ValidationError{{Field: "composition", Message: "All fields are required"}}
	}
	var errs []ValidationError
	required := []struct{ field, value string }{
		{"to", c.To},
		{"from", c.From},
		{"subject", c.Subject},
		{"body", c.Body},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, ValidationError{Field: r.field, Message: "All fields are required"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	if !emailPattern.MatchString(strings.TrimSpace(c.To)) {
		errs = append(errs, ValidationError{Field: "to", Message: "Please enter valid email addresses"})
	}
	if !emailPattern.MatchString(strings.TrimSpace(c.From)) {
		errs = append(errs, ValidationError{Field: "from", Message: "Please enter valid email addresses"})
	}
	return errs
}

// Send validates and delivers the composition through the backend, returning
// the confirmation message.
func (s *CompositionServiceImpl) Send(ctx context.Context, c *Composition) (string, error) {
	if errs := s.Validate(c); len(errs) > 0 {
		return "", fmt.Errorf("%w: %s", ErrInvalidInput, errs[0].Message)
	}
	if s.sender == nil {
		return "", fmt.Errorf("%w: no sender configured", ErrServiceUnavailable)
	}

	res, err := s.sender.SendEmail(ctx, gmail.OutgoingEmail{
		To:       strings.TrimSpace(c.To),
		From:     strings.TrimSpace(c.From),
		FromName: c.FromName,
		Subject:  c.Subject,
		Content:  c.Body,
	})
	if err != nil {
		s.logger.Warn("composition: send failed", zap.String("to", c.To), zap.Error(err))
		return "", fmt.Errorf("failed to send email: %w", classify(err))
	}
	if !res.Success {
		reason := res.Error
		if reason == "" {
			reason = "Failed to send email"
		}
		return "", errors.New(reason)
	}
	if res.Message == "" {
		return defaultSentMessage, nil
	}
	return res.Message, nil
}
