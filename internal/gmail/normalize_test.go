package gmail

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"
)

func enc(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func leaf(mimeType, data string) *gmailapi.MessagePart {
	return &gmailapi.MessagePart{MimeType: mimeType, Body: &gmailapi.MessagePartBody{Data: enc(data)}}
}

func headers(kv ...string) []*gmailapi.MessagePartHeader {
	var out []*gmailapi.MessagePartHeader
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, &gmailapi.MessagePartHeader{Name: kv[i], Value: kv[i+1]})
	}
	return out
}

var fetchTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize_Nil(t *testing.T) {
	assert.Nil(t, Normalize(nil))
}

func TestNormalize_PrefersHTMLOverPlain(t *testing.T) {
	raw := &RawMessage{
		ID: "m1",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*gmailapi.MessagePart{
				leaf("text/plain", "Hi"),
				leaf("text/html", "<p>Hi</p>"),
			},
		},
	}

	msg := NormalizeAt(raw, fetchTime)
	require.NotNil(t, msg)
	assert.Equal(t, "<p>Hi</p>", msg.Content)
}

func TestNormalize_NestedMultipart(t *testing.T) {
	raw := &RawMessage{
		ID: "m2",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmailapi.MessagePart{
						leaf("text/plain", "inner plain"),
						{
							MimeType: "multipart/related",
							Parts:    []*gmailapi.MessagePart{leaf("TEXT/HTML; charset=utf-8", "<b>deep</b>")},
						},
					},
				},
				leaf("application/pdf", "%PDF"),
			},
		},
	}

	assert.Equal(t, "<b>deep</b>", NormalizeAt(raw, fetchTime).Content)
}

func TestNormalize_PlainIsEscapedAndWrapped(t *testing.T) {
	raw := &RawMessage{
		ID:      "m3",
		Payload: &gmailapi.MessagePart{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: enc("a < b & c > d")}},
	}

	assert.Equal(t, `<pre style="white-space:pre-wrap">a &lt; b &amp; c &gt; d</pre>`, NormalizeAt(raw, fetchTime).Content)
}

func TestNormalize_SkipsEmptyAndUndecodableLeaves(t *testing.T) {
	raw := &RawMessage{
		ID: "m4",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*gmailapi.MessagePart{
				{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: "%%%"}},
				{MimeType: "text/html"},
				leaf("text/plain", "fallback"),
			},
		},
	}

	assert.Equal(t, `<pre style="white-space:pre-wrap">fallback</pre>`, NormalizeAt(raw, fetchTime).Content)
}

func TestNormalize_TopLevelBodyFallback(t *testing.T) {
	raw := &RawMessage{
		ID: "m5",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Body:     &gmailapi.MessagePartBody{Data: enc("top level")},
			Parts:    []*gmailapi.MessagePart{leaf("image/png", "png")},
		},
	}

	assert.Equal(t, `<pre style="white-space:pre-wrap">top level</pre>`, NormalizeAt(raw, fetchTime).Content)
}

func TestNormalize_SnippetFallback(t *testing.T) {
	msg := NormalizeAt(&RawMessage{ID: "m6", Snippet: "quick & short"}, fetchTime)
	assert.Equal(t, `<pre style="white-space:pre-wrap">quick &amp; short</pre>`, msg.Content)
	assert.Equal(t, "quick & short", msg.Snippet)

	empty := NormalizeAt(&RawMessage{ID: "m7"}, fetchTime)
	assert.Equal(t, "", empty.Content)
}

func TestNormalize_MalformedPartDoesNotAbort(t *testing.T) {
	raw := &RawMessage{
		ID:      "m8",
		Snippet: "still here",
		Payload: &gmailapi.MessagePart{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: "*bad*"}},
	}

	msg := NormalizeAt(raw, fetchTime)
	require.NotNil(t, msg)
	assert.Contains(t, msg.Content, "still here")
}

func TestNormalize_Headers(t *testing.T) {
	raw := &RawMessage{
		ID: "m9",
		Payload: &gmailapi.MessagePart{
			Headers: headers("FROM", `"Alice Smith" <alice@x.com>`, "to", "bob@y.com", "Subject", "=?UTF-8?Q?Caf=C3=A9?="),
		},
	}

	msg := NormalizeAt(raw, fetchTime)
	assert.Equal(t, "alice@x.com", msg.From)
	assert.Equal(t, "Alice Smith", msg.FromName)
	assert.Equal(t, "bob@y.com", msg.To)
	assert.Equal(t, "Café", msg.Subject)
}

func TestNormalize_ConvenienceFieldsWin(t *testing.T) {
	raw := &RawMessage{
		ID:      "m10",
		From:    "carol@z.com",
		Subject: "Direct",
		Payload: &gmailapi.MessagePart{Headers: headers("From", "other@z.com", "Subject", "Header")},
	}

	msg := NormalizeAt(raw, fetchTime)
	assert.Equal(t, "carol@z.com", msg.From)
	assert.Empty(t, msg.FromName)
	assert.Equal(t, "Direct", msg.Subject)
	assert.Equal(t, "", msg.To)
}

func TestNormalize_DefaultSubject(t *testing.T) {
	assert.Equal(t, "(no subject)", NormalizeAt(&RawMessage{ID: "m11"}, fetchTime).Subject)
}

func TestParseFrom(t *testing.T) {
	tests := []struct {
		in, name, addr string
	}{
		{`"Alice Smith" <alice@x.com>`, "Alice Smith", "alice@x.com"},
		{"Bob <bob@y.com>", "Bob", "bob@y.com"},
		{"<carol@z.com>", "", "carol@z.com"},
		{`"" <dave@z.com>`, "", "dave@z.com"},
		{"  eve@z.com  ", "", "eve@z.com"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, addr := ParseFrom(tt.in)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.addr, addr)
		})
	}
}

func TestNormalize_Labels(t *testing.T) {
	tests := []struct {
		name    string
		labels  []string
		read    bool
		starred bool
	}{
		{"absent", nil, true, false},
		{"unread", []string{"INBOX", "UNREAD"}, false, false},
		{"starred", []string{"STARRED"}, true, true},
		{"both", []string{"UNREAD", "STARRED"}, false, true},
		{"case sensitive", []string{"unread", "starred"}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NormalizeAt(&RawMessage{ID: "x", LabelIDs: tt.labels}, fetchTime)
			assert.Equal(t, tt.read, msg.IsRead)
			assert.Equal(t, tt.starred, msg.IsStarred)
			assert.False(t, msg.IsArchived)
		})
	}
}

func TestNormalize_ReceivedAt(t *testing.T) {
	msg := NormalizeAt(&RawMessage{ID: "a", InternalDate: 1700000000000}, fetchTime)
	assert.Equal(t, time.UnixMilli(1700000000000), msg.ReceivedAt)

	msg = NormalizeAt(&RawMessage{ID: "b"}, fetchTime)
	assert.Equal(t, fetchTime, msg.ReceivedAt)
}

func TestEpochMillis_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want EpochMillis
	}{
		{`{"internalDate":"1700000000000"}`, 1700000000000},
		{`{"internalDate":1700000000000}`, 1700000000000},
		{`{"internalDate":""}`, 0},
		{`{"internalDate":null}`, 0},
		{`{"internalDate":"yesterday"}`, 0},
		{`{}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var raw RawMessage
			require.NoError(t, json.Unmarshal([]byte(tt.in), &raw))
			assert.Equal(t, tt.want, raw.InternalDate)
		})
	}
}

func TestMerge(t *testing.T) {
	existing := &Message{
		ID:         "m1",
		From:       "a@x.com",
		FromName:   "Alice",
		Subject:    "Hello",
		Content:    "<pre>snippet</pre>",
		Snippet:    "snippet",
		ReceivedAt: fetchTime,
		IsRead:     true,
		IsArchived: true,
	}
	fresh := &Message{
		ID:         "m1",
		From:       "a@x.com",
		Subject:    "Hello (full)",
		Content:    "<p>full body</p>",
		ReceivedAt: fetchTime.Add(time.Minute),
		LabelIDs:   []string{"UNREAD", "STARRED"},
		IsRead:     false,
		IsStarred:  true,
		Full:       true,
	}

	merged := Merge(existing, fresh)
	assert.Equal(t, "Alice", merged.FromName, "empty fresh field keeps existing")
	assert.Equal(t, "Hello (full)", merged.Subject, "fresh wins when both present")
	assert.Equal(t, "<p>full body</p>", merged.Content)
	assert.Equal(t, "snippet", merged.Snippet)
	assert.Equal(t, fetchTime.Add(time.Minute), merged.ReceivedAt)
	assert.True(t, merged.IsArchived, "local archive flag kept")
	assert.True(t, merged.IsRead, "optimistic read never regresses")
	assert.True(t, merged.IsStarred)
	assert.True(t, merged.Full)

	// inputs are not mutated
	assert.Equal(t, "Hello", existing.Subject)
	assert.False(t, fresh.IsArchived)
}

func TestMerge_DefaultSubjectDoesNotOverwrite(t *testing.T) {
	merged := Merge(&Message{ID: "m", Subject: "Real"}, &Message{ID: "m", Subject: "(no subject)"})
	assert.Equal(t, "Real", merged.Subject)
}

func TestMerge_LabelLessFetchKeepsFlags(t *testing.T) {
	listed := NormalizeAt(&RawMessage{
		ID:           "m",
		Subject:      "Listed",
		InternalDate: EpochMillis(1700000000000),
		LabelIDs:     []string{"INBOX", "STARRED", "UNREAD"},
	}, fetchTime)
	full := NormalizeAt(&RawMessage{ID: "m", Subject: "s"}, fetchTime)
	require.False(t, full.IsStarred)
	require.True(t, full.IsRead)

	merged := Merge(listed, full)
	assert.Equal(t, []string{"INBOX", "STARRED", "UNREAD"}, merged.LabelIDs)
	assert.True(t, merged.IsStarred)
	assert.False(t, merged.IsRead)
}

func TestMerge_FetchTimeDoesNotReplaceTimestamp(t *testing.T) {
	sent := time.UnixMilli(1700000000000).UTC()
	listed := NormalizeAt(&RawMessage{ID: "m", InternalDate: EpochMillis(1700000000000)}, fetchTime)
	full := NormalizeAt(&RawMessage{ID: "m", Subject: "s"}, fetchTime.Add(time.Hour))
	require.Equal(t, fetchTime.Add(time.Hour), full.ReceivedAt)

	merged := Merge(listed, full)
	assert.True(t, sent.Equal(merged.ReceivedAt), "got %s", merged.ReceivedAt)

	// a real timestamp from the fetch still wins
	dated := NormalizeAt(&RawMessage{ID: "m", InternalDate: EpochMillis(1700000060000)}, fetchTime)
	assert.True(t, sent.Add(time.Minute).Equal(Merge(listed, dated).ReceivedAt))

	// both fallbacks: the existing fetch time is kept
	undated := NormalizeAt(&RawMessage{ID: "m"}, fetchTime)
	assert.Equal(t, fetchTime, Merge(undated, full).ReceivedAt)
}

func TestMerge_NilSides(t *testing.T) {
	m := &Message{ID: "m"}
	assert.Equal(t, m, Merge(nil, m))
	assert.Equal(t, m, Merge(m, nil))
	assert.Nil(t, Merge(nil, nil))
}
