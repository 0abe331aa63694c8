package gmail

import (
	"bytes"
	"strconv"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
)

// Gmail system labels the inbox derives flags from
const (
	LabelUnread  = "UNREAD"
	LabelStarred = "STARRED"
	LabelInbox   = "INBOX"
)

// EpochMillis is an epoch-milliseconds timestamp as sent by the Gmail proxy.
// The backend forwards Gmail's string form ("1700000000000") but some
// deployments emit a bare number, so both are accepted. Anything else decodes
// to zero instead of failing the whole page.
type EpochMillis int64

// UnmarshalJSON accepts a JSON number, a numeric string, null or ""
func (e *EpochMillis) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*e = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		if f, ferr := strconv.ParseFloat(string(data), 64); ferr == nil {
			*e = EpochMillis(int64(f))
			return nil
		}
		*e = 0
		return nil
	}
	*e = EpochMillis(v)
	return nil
}

// MarshalJSON writes the Gmail string form
func (e EpochMillis) MarshalJSON() ([]byte, error) {
	if e == 0 {
		return []byte(`""`), nil
	}
	return []byte(strconv.Quote(strconv.FormatInt(int64(e), 10))), nil
}

// Time converts to time.Time; ok is false when the value is absent
func (e EpochMillis) Time() (time.Time, bool) {
	if e <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(e)), true
}

// RawMessage is a message as returned by the Gmail proxy backend. The
// convenience fields are optional and take precedence over payload headers.
type RawMessage struct {
	ID           string                `json:"id"`
	ThreadID     string                `json:"threadId,omitempty"`
	From         string                `json:"from,omitempty"`
	To           string                `json:"to,omitempty"`
	Subject      string                `json:"subject,omitempty"`
	Snippet      string                `json:"snippet,omitempty"`
	InternalDate EpochMillis           `json:"internalDate,omitempty"`
	LabelIDs     []string              `json:"labelIds,omitempty"`
	Payload      *gmailapi.MessagePart `json:"payload,omitempty"`
}

// Page is one page of the paged messages endpoint
type Page struct {
	Messages           []*RawMessage `json:"messages"`
	NextPageToken      string        `json:"nextPageToken,omitempty"`
	ResultSizeEstimate int           `json:"resultSizeEstimate,omitempty"`
}

// Message is the normalized representation used for display, search,
// filtering and reply composition.
type Message struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"threadId,omitempty"`
	From       string    `json:"from"`
	FromName   string    `json:"fromName,omitempty"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Snippet    string    `json:"snippet,omitempty"`
	Content    string    `json:"content"`
	ReceivedAt time.Time `json:"receivedAt"`
	LabelIDs   []string  `json:"labelIds,omitempty"`
	IsRead     bool      `json:"isRead"`
	IsStarred  bool      `json:"isStarred"`
	IsArchived bool      `json:"isArchived"`
	// Full is set once the complete message (headers and body) was fetched
	Full bool `json:"-"`

	// dateFallback marks ReceivedAt as the fetch time, not a backend timestamp
	dateFallback bool
}

// Clone returns a copy that shares no slices with m
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	if m.LabelIDs != nil {
		out.LabelIDs = append([]string(nil), m.LabelIDs...)
	}
	return &out
}

// DisplayName returns the sender name, falling back to the address
func (m *Message) DisplayName() string {
	if m.FromName != "" {
		return m.FromName
	}
	return m.From
}
