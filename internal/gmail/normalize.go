package gmail

import (
	"regexp"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
)

const (
	mimeTextHTML  = "text/html"
	mimeTextPlain = "text/plain"

	defaultSubject = "(no subject)"
)

var (
	fromPattern = regexp.MustCompile(`^\s*(.*?)\s*<([^<>]+)>\s*$`)
	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// Normalize converts a raw backend message into a Message using the current
// time as the fallback receive time.
func Normalize(raw *RawMessage) *Message {
	return NormalizeAt(raw, time.Now())
}

// NormalizeAt is Normalize with an explicit fetch time
func NormalizeAt(raw *RawMessage, now time.Time) *Message {
	if raw == nil {
		return nil
	}

	fromHeader := headerValue(raw.From, raw.Payload, "From")
	fromName, fromAddr := ParseFrom(fromHeader)

	subject := headerValue(raw.Subject, raw.Payload, "Subject")
	if subject == "" {
		subject = defaultSubject
	}

	receivedAt, ok := raw.InternalDate.Time()
	if !ok {
		receivedAt = now
	}

	msg := &Message{
		ID:         raw.ID,
		ThreadID:   raw.ThreadID,
		From:       fromAddr,
		FromName:   fromName,
		To:         headerValue(raw.To, raw.Payload, "To"),
		Subject:    subject,
		Snippet:    raw.Snippet,
		Content:    extractContent(raw),
		ReceivedAt: receivedAt,
		IsRead:     !hasLabel(raw.LabelIDs, LabelUnread),
		IsStarred:  hasLabel(raw.LabelIDs, LabelStarred),

		dateFallback: !ok,
	}
	if raw.LabelIDs != nil {
		msg.LabelIDs = append([]string(nil), raw.LabelIDs...)
	}
	return msg
}

// ParseFrom splits a From value of the form `Name <addr>`. A missing or empty
// display name yields name "".
func ParseFrom(value string) (name, addr string) {
	value = strings.TrimSpace(value)
	if m := fromPattern.FindStringSubmatch(value); m != nil {
		name = strings.TrimSpace(strings.ReplaceAll(m[1], `"`, ""))
		return name, strings.TrimSpace(m[2])
	}
	return "", value
}

// Merge reconciles a freshly fetched message into an existing entry with the
// same id. Non-empty fresh fields win; empty ones keep the existing value. A
// fetch-time ReceivedAt and flags from a label-less fetch count as empty.
func Merge(existing, fresh *Message) *Message {
	if existing == nil {
		return fresh.Clone()
	}
	if fresh == nil {
		return existing.Clone()
	}
	out := fresh.Clone()
	out.ThreadID = pick(fresh.ThreadID, existing.ThreadID)
	out.From = pick(fresh.From, existing.From)
	out.FromName = pick(fresh.FromName, existing.FromName)
	out.To = pick(fresh.To, existing.To)
	out.Snippet = pick(fresh.Snippet, existing.Snippet)
	out.Content = pick(fresh.Content, existing.Content)
	if fresh.Subject == "" || (fresh.Subject == defaultSubject && existing.Subject != "") {
		out.Subject = existing.Subject
	}
	if fresh.ReceivedAt.IsZero() || (fresh.dateFallback && !existing.ReceivedAt.IsZero()) {
		out.ReceivedAt = existing.ReceivedAt
		out.dateFallback = existing.dateFallback
	}
	// Flags derive from labels, so a label-less fetch keeps the existing ones
	if fresh.LabelIDs == nil {
		out.LabelIDs = existing.Clone().LabelIDs
		out.IsStarred = existing.IsStarred
		out.IsRead = existing.IsRead
	} else {
		out.IsRead = fresh.IsRead || existing.IsRead
	}
	out.IsArchived = existing.IsArchived
	out.Full = fresh.Full || existing.Full
	return out
}

func pick(fresh, existing string) string {
	if fresh != "" {
		return fresh
	}
	return existing
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// headerValue applies the convenience field > header > "" precedence
func headerValue(convenience string, payload *gmailapi.MessagePart, name string) string {
	if v := strings.TrimSpace(convenience); v != "" {
		return decodeHeader(v)
	}
	if payload == nil {
		return ""
	}
	for _, h := range payload.Headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return decodeHeader(h.Value)
		}
	}
	return ""
}

// mediaType lowercases a MIME type and strips its parameters
func mediaType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// flattenParts collects the leaves of a part tree depth-first
func flattenParts(part *gmailapi.MessagePart, leaves []*gmailapi.MessagePart) []*gmailapi.MessagePart {
	if part == nil {
		return leaves
	}
	if len(part.Parts) == 0 {
		return append(leaves, part)
	}
	for _, child := range part.Parts {
		leaves = flattenParts(child, leaves)
	}
	return leaves
}

func partData(part *gmailapi.MessagePart) string {
	if part == nil || part.Body == nil {
		return ""
	}
	return DecodeBase64URL(part.Body.Data)
}

func extractContent(raw *RawMessage) string {
	var htmlBody, plainBody string
	for _, leaf := range flattenParts(raw.Payload, nil) {
		switch mediaType(leaf.MimeType) {
		case mimeTextHTML:
			if htmlBody == "" {
				htmlBody = partData(leaf)
			}
		case mimeTextPlain:
			if plainBody == "" {
				plainBody = partData(leaf)
			}
		}
		if htmlBody != "" {
			return htmlBody
		}
	}
	if plainBody != "" {
		return wrapPlain(plainBody)
	}

	if raw.Payload != nil {
		if body := partData(raw.Payload); body != "" {
			if mediaType(raw.Payload.MimeType) == mimeTextHTML {
				return body
			}
			return wrapPlain(body)
		}
	}

	return wrapPlain(raw.Snippet)
}

// wrapPlain renders text as an escaped preformatted HTML fragment
func wrapPlain(text string) string {
	if text == "" {
		return ""
	}
	return `<pre style="white-space:pre-wrap">` + htmlEscaper.Replace(text) + `</pre>`
}
