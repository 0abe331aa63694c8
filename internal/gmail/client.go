package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ajramos/mailrag/internal/metrics"
	"github.com/ajramos/mailrag/internal/version"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the EmailRAG backend used when nothing is configured
	DefaultBaseURL = "http://localhost:8000/api/v1"
	// DefaultTimeout bounds every backend call
	DefaultTimeout = 20 * time.Second
	// DefaultPageSize is the advisory page size for list calls
	DefaultPageSize = 20

	maxErrorBody = 64 << 10
)

// Client talks to the EmailRAG backend, which proxies Gmail on behalf of an
// application user.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (e.g. an authenticated one)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-call application timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables request instrumentation
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a backend client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string { return c.baseURL }

// ListOptions selects a page of messages
type ListOptions struct {
	MaxResults int
	PageToken  string
	Query      string
	LabelIDs   []string
}

// ListMessagesPage returns one page of messages for the application user
func (c *Client) ListMessagesPage(ctx context.Context, userID int64, opts ListOptions) (*Page, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultPageSize
	}
	q := url.Values{}
	q.Set("max_results", strconv.Itoa(maxResults))
	if opts.PageToken != "" {
		q.Set("page_token", opts.PageToken)
	}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if len(opts.LabelIDs) > 0 {
		q.Set("label_ids", strings.Join(opts.LabelIDs, ","))
	}

	path := "/emails/google/" + strconv.FormatInt(userID, 10)
	var page Page
	if _, err := c.do(ctx, "list messages page", http.MethodGet, path, q, nil, &page); err != nil {
		return nil, err
	}
	if page.Messages == nil {
		page.Messages = []*RawMessage{}
	}
	return &page, nil
}

// GetMessage fetches the full form of one message
func (c *Client) GetMessage(ctx context.Context, userID int64, messageID string) (*RawMessage, error) {
	path := "/emails/google/" + strconv.FormatInt(userID, 10) + "/messages/" + url.PathEscape(messageID)
	var msg RawMessage
	if _, err := c.do(ctx, "get message", http.MethodGet, path, nil, nil, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		msg.ID = messageID
	}
	return &msg, nil
}

// MarkAsRead clears the UNREAD label on the backend
func (c *Client) MarkAsRead(ctx context.Context, userID int64, messageID string) error {
	q := url.Values{"user_id": {strconv.FormatInt(userID, 10)}}
	_, err := c.do(ctx, "mark as read", http.MethodPut, "/emails/"+url.PathEscape(messageID), q, nil, nil)
	return err
}

// ArchiveMessage removes the message from the backend inbox
func (c *Client) ArchiveMessage(ctx context.Context, userID int64, messageID string) error {
	q := url.Values{"user_id": {strconv.FormatInt(userID, 10)}}
	_, err := c.do(ctx, "archive message", http.MethodPut, "/emails/"+url.PathEscape(messageID)+"/archive", q, nil, nil)
	return err
}

// ResolveUserIDByEmail maps an email address to the backend user id
func (c *Client) ResolveUserIDByEmail(ctx context.Context, email string) (int64, error) {
	q := url.Values{"email": {email}}
	var body map[string]any
	_, err := c.do(ctx, "resolve user", http.MethodGet, "/auth/user/by-email", q, nil, &body)
	if err != nil {
		if fe, ok := IsFetchError(err); ok && fe.Status != 0 {
			return 0, fmt.Errorf("%w: %s", ErrUserNotFound, email)
		}
		return 0, err
	}
	n, ok := body["id"].(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}
	id, err := n.Int64()
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}
	return id, nil
}

// Attachment is a file sent along with an outgoing email
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Content     []byte `json:"content"`
}

// OutgoingEmail is the payload of the send endpoint
type OutgoingEmail struct {
	To          string       `json:"to_email"`
	From        string       `json:"from_email"`
	FromName    string       `json:"from_name,omitempty"`
	Subject     string       `json:"subject"`
	Content     string       `json:"email_content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// SendResult is the backend's answer to a send request
type SendResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendEmail asks the backend to deliver an email
func (c *Client) SendEmail(ctx context.Context, email OutgoingEmail) (*SendResult, error) {
	var body struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if _, err := c.do(ctx, "send email", http.MethodPost, "/emails/send", nil, email, &body); err != nil {
		return nil, err
	}
	res := &SendResult{Message: body.Message, Error: body.Error}
	if body.Success != nil {
		res.Success = *body.Success
	} else {
		// an empty or success-less 2xx body counts as accepted unless it names an error
		res.Success = body.Error == ""
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, &FetchError{Op: op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", version.UserAgent())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	metricOp := strings.ReplaceAll(op, " ", "_")
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		timeout := errors.Is(ctx.Err(), context.DeadlineExceeded)
		outcome := "network_error"
		if timeout {
			outcome = "timeout"
		}
		c.metrics.ObserveRequest(metricOp, 0, outcome, time.Since(start))
		c.logger.Warn("backend request failed",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Bool("timeout", timeout),
			zap.Error(err))
		return 0, &FetchError{Op: op, Timeout: timeout, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.metrics.ObserveRequest(metricOp, resp.StatusCode, "http_error", time.Since(start))
		c.logger.Debug("backend returned error status",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode))
		return resp.StatusCode, &FetchError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
			c.metrics.ObserveRequest(metricOp, resp.StatusCode, "decode_error", time.Since(start))
			return resp.StatusCode, &FetchError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	c.metrics.ObserveRequest(metricOp, resp.StatusCode, "success", time.Since(start))
	c.logger.Debug("backend request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))
	return resp.StatusCode, nil
}
