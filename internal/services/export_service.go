package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ajramos/mailrag/internal/gmail"
	"github.com/emersion/go-message/mail"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportServiceImpl implements ExportService with RFC 5322 .eml files
type ExportServiceImpl struct {
	dir string
}

// NewExportService creates an export service. Relative paths passed to
// SaveMessage resolve against dir.
func NewExportService(dir string) *ExportServiceImpl {
	return &ExportServiceImpl{dir: dir}
}

// DefaultPath returns <dir>/<date>_<subject>_<id>.eml for msg
func (s *ExportServiceImpl) DefaultPath(msg *gmail.Message) string {
	subject := strings.Trim(unsafeFilenameChars.ReplaceAllString(msg.Subject, "_"), "_")
	if len(subject) > 60 {
		subject = subject[:60]
	}
	if subject == "" {
		subject = "message"
	}
	date := "undated"
	if !msg.ReceivedAt.IsZero() {
		date = msg.ReceivedAt.UTC().Format("20060102")
	}
	id := unsafeFilenameChars.ReplaceAllString(msg.ID, "_")
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s_%s.eml", date, subject, id))
}

// SaveMessage writes msg as an .eml file at path
func (s *ExportServiceImpl) SaveMessage(msg *gmail.Message, path string) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidInput)
	}
	if path == "" {
		path = s.DefaultPath(msg)
	} else if !filepath.IsAbs(path) && s.dir != "" {
		path = filepath.Join(s.dir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.eml")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteEML(tmp, msg); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// WriteEML encodes msg as a single-part HTML message
func WriteEML(w io.Writer, msg *gmail.Message) error {
	var h mail.Header
	date := msg.ReceivedAt
	if date.IsZero() {
		date = time.Unix(0, 0)
	}
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Name: msg.FromName, Address: msg.From}})
	if to := strings.TrimSpace(msg.To); to != "" {
		if addrs, err := mail.ParseAddressList(to); err == nil {
			h.SetAddressList("To", addrs)
		} else {
			h.Set("To", to)
		}
	}
	h.SetSubject(msg.Subject)
	if msg.ID != "" {
		h.Set("X-Gmail-Id", msg.ID)
	}
	if len(msg.LabelIDs) > 0 {
		h.Set("X-Gmail-Labels", strings.Join(msg.LabelIDs, ","))
	}
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})

	body, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("failed to write message header: %w", err)
	}
	if _, err := io.WriteString(body, msg.Content); err != nil {
		body.Close()
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := body.Close(); err != nil {
		return fmt.Errorf("failed to write message body: %w", err)
	}
	return nil
}
