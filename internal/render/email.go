package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajramos/mailrag/internal/config"
	"github.com/ajramos/mailrag/internal/gmail"
	"github.com/derailed/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// EmailColorer picks list colors from message state
type EmailColorer struct {
	UnreadColor  tcell.Color
	ReadColor    tcell.Color
	StarredColor tcell.Color
}

// NewEmailColorer creates a new email colorer with default colors
func NewEmailColorer() *EmailColorer {
	ec := &EmailColorer{}
	ec.UpdateFromStyles(config.DefaultColors())
	return ec
}

// UpdateFromStyles updates colors from a theme
func (ec *EmailColorer) UpdateFromStyles(colors *config.ColorsConfig) {
	if colors == nil {
		return
	}
	ec.UnreadColor = colors.Email.UnreadColor.Color()
	ec.ReadColor = colors.Email.ReadColor.Color()
	ec.StarredColor = colors.Email.StarredColor.Color()
}

// Color returns the row color for msg
func (ec *EmailColorer) Color(msg *gmail.Message) tcell.Color {
	switch {
	case msg == nil:
		return tcell.ColorDefault
	case !msg.IsRead:
		return ec.UnreadColor
	case msg.IsStarred:
		return ec.StarredColor
	default:
		return ec.ReadColor
	}
}

// EmailRenderer formats messages for the list and header views
type EmailRenderer struct {
	colorer *EmailColorer
	now     func() time.Time
}

// NewEmailRenderer creates a new email renderer
func NewEmailRenderer() *EmailRenderer {
	return &EmailRenderer{colorer: NewEmailColorer(), now: time.Now}
}

// UpdateFromConfig applies a theme to the renderer
func (er *EmailRenderer) UpdateFromConfig(colors *config.ColorsConfig) {
	er.colorer.UpdateFromStyles(colors)
}

// FormatEmailList formats a message as a fixed-column list row:
// status | sender | subject | date
func (er *EmailRenderer) FormatEmailList(msg *gmail.Message, maxWidth int) (string, tcell.Color) {
	if msg == nil {
		return "", tcell.ColorDefault
	}
	sender := msg.DisplayName()
	if sender == "" {
		sender = "(No sender)"
	}
	subject := msg.Subject
	if subject == "" {
		subject = "(no subject)"
	}

	if maxWidth < 40 {
		maxWidth = 40
	}
	const (
		statusWidth = 2
		senderWidth = 22
		dateWidth   = 6
	)
	// separators: " " after status, " | " twice
	subjectWidth := maxWidth - statusWidth - senderWidth - dateWidth - 7
	if subjectWidth < 10 {
		subjectWidth = 10
	}

	row := fmt.Sprintf("%s %s | %s | %s",
		StatusMarker(msg),
		fitWidth(sender, senderWidth),
		fitWidth(subject, subjectWidth),
		fitWidth(FormatListDate(msg.ReceivedAt, er.now()), dateWidth))
	return row, er.colorer.Color(msg)
}

// FormatHeader returns the header block shown above message content
func (er *EmailRenderer) FormatHeader(msg *gmail.Message) string {
	if msg == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	if msg.FromName != "" {
		fmt.Fprintf(&b, "From: %s <%s>\n", msg.FromName, msg.From)
	} else {
		fmt.Fprintf(&b, "From: %s\n", msg.From)
	}
	if strings.TrimSpace(msg.To) != "" {
		fmt.Fprintf(&b, "To: %s\n", msg.To)
	}
	if !msg.ReceivedAt.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", msg.ReceivedAt.Local().Format("Mon, 02 Jan 2006 15:04:05 -0700"))
	}
	if len(msg.LabelIDs) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(msg.LabelIDs, ", "))
	}
	return b.String()
}

// StatusMarker returns a two-cell marker: unread dot and star
func StatusMarker(msg *gmail.Message) string {
	unread, star := " ", " "
	if !msg.IsRead {
		unread = "●"
	}
	if msg.IsStarred {
		star = "*"
	}
	return unread + star
}

// FormatListDate renders a receipt time for the list: clock time within a
// day, weekday within a week, otherwise month and day.
func FormatListDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon")
	default:
		return t.Format("Jan 2")
	}
}

// Preview flattens text to one line and truncates it to width display cells
func Preview(text string, width int) string {
	if width <= 0 {
		return ""
	}
	flat := strings.Join(strings.Fields(text), " ")
	return runewidth.Truncate(flat, width, "...")
}

// fitWidth truncates and pads on the right to fit a fixed width
func fitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(s, width, "...")
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}
