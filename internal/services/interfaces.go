package services

import (
	"context"
	"time"

	"github.com/ajramos/mailrag/internal/db"
	"github.com/ajramos/mailrag/internal/gmail"
)

// MessageRepository handles paged message retrieval and remote updates
type MessageRepository interface {
	FetchFirstPage(ctx context.Context, userID int64, opts QueryOptions) (*MessagePage, error)
	FetchNextPage(ctx context.Context, userID int64, pageToken string, opts QueryOptions) (*MessagePage, error)
	GetMessage(ctx context.Context, userID int64, id string) (*gmail.RawMessage, error)
	MarkAsRead(ctx context.Context, userID int64, id string) error
	ArchiveMessage(ctx context.Context, userID int64, id string) error
}

// UserLookup resolves an account email to a backend user id
type UserLookup interface {
	ResolveUserIDByEmail(ctx context.Context, email string) (int64, error)
}

// IdentityStore persists a resolved backend user id
type IdentityStore interface {
	Get(ctx context.Context) (int64, bool, error)
	Set(ctx context.Context, userID int64) error
}

// IdentityService resolves the backend user id used for mailbox calls
type IdentityService interface {
	Resolve(ctx context.Context) (int64, error)
}

// EmailSender delivers composed emails through the backend
type EmailSender interface {
	SendEmail(ctx context.Context, email gmail.OutgoingEmail) (*gmail.SendResult, error)
}

// CompositionService handles reply drafting, validation and sending
type CompositionService interface {
	BuildReply(msg *gmail.Message, now time.Time) *Composition
	Validate(c *Composition) []ValidationError
	Send(ctx context.Context, c *Composition) (string, error)
}

// GeneratedHistory stores AI-generated drafts
type GeneratedHistory interface {
	Save(ctx context.Context, e *db.GeneratedEmail) (int64, error)
	List(ctx context.Context, accountEmail string, limit int) ([]*db.GeneratedEmail, error)
}

// GenerationService drafts emails with an AI provider
type GenerationService interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
	History(ctx context.Context, limit int) ([]*db.GeneratedEmail, error)
}

// ExportService writes messages to disk
type ExportService interface {
	DefaultPath(msg *gmail.Message) string
	SaveMessage(msg *gmail.Message, path string) error
}

// QueryOptions narrows a page request
type QueryOptions struct {
	MaxResults int
	Query      string
	LabelIDs   []string
}

// MessagePage is one page of raw messages; an empty NextPageToken means the
// listing is exhausted.
type MessagePage struct {
	Messages           []*gmail.RawMessage
	NextPageToken      string
	ResultSizeEstimate int
}

// Composition is an email being written
type Composition struct {
	To         string `json:"to"`
	From       string `json:"from"`
	FromName   string `json:"from_name,omitempty"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	OriginalID string `json:"original_id,omitempty"`
	ThreadID   string `json:"thread_id,omitempty"`
}

// ValidationError represents a validation error for composition
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// GenerationRequest describes an AI draft request
type GenerationRequest struct {
	Category    string
	Subcategory string
	Context     string
	// Prompt overrides the catalog prompt when set
	Prompt string
}

// GenerationResult is a generated draft
type GenerationResult struct {
	ID       int64
	Prompt   string
	Email    string
	Subject  string
	Body     string
	Provider string
	Duration time.Duration
}
