package render

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// LinkRef represents a collected hyperlink reference
type LinkRef struct {
	Index int
	URL   string
	Text  string
}

var plainURLPattern = regexp.MustCompile(`(?i)\bhttps?://[\w\-\._~:/%\?#\[\]@!$&'()*+,;=]+`)

// HTMLToText converts an HTML fragment to plain text. Block elements become
// line breaks, entities are decoded and <pre> content is kept verbatim.
func HTMLToText(htmlStr string) string {
	if strings.TrimSpace(htmlStr) == "" {
		return ""
	}
	text, _, err := renderHTMLToText(htmlStr, false)
	if err != nil {
		return htmlStr
	}
	return text
}

// FormatBody renders message content for the terminal: sanitized text wrapped
// to width followed by a numbered [LINKS] section.
func FormatBody(content string, width int) string {
	text, links, err := renderHTMLToText(content, true)
	if err != nil {
		text = content
	}
	if len(links) == 0 {
		links, text = detectPlainTextLinks(text)
	}
	text = WrapTextPreserving(sanitizeForTerminal(text), width)

	if len(links) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n[LINKS]\n")
	for _, l := range links {
		fmt.Fprintf(&b, "[%d] %s\n", l.Index, l.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

// detectPlainTextLinks finds URLs in plain text and replaces them with [n] references
func detectPlainTextLinks(input string) ([]LinkRef, string) {
	idx := 0
	links := make([]LinkRef, 0, 4)
	replaced := plainURLPattern.ReplaceAllStringFunc(input, func(m string) string {
		idx++
		links = append(links, LinkRef{Index: idx, URL: m, Text: m})
		return fmt.Sprintf("[%d]", idx)
	})
	return links, replaced
}

// sanitizeForTerminal replaces common rich-text glyphs with ASCII-safe equivalents
func sanitizeForTerminal(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\u00a0', '\u202f':
			b.WriteRune(' ')
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u034f', '\u2060', '\u00ad':
			// zero-width, joiners and soft hyphen
		case '\u2000', '\u2001', '\u2002', '\u2003', '\u2004', '\u2005', '\u2006', '\u2007', '\u2008', '\u2009', '\u200a':
			b.WriteRune(' ')
		case '–', '—':
			b.WriteRune('-')
		case '•', '⁃', '▪', '●', '◦':
			b.WriteString("- ")
		case '‘', '’':
			b.WriteRune('\'')
		case '“', '”':
			b.WriteRune('"')
		case '…':
			b.WriteString("...")
		default:
			if unicode.IsControl(r) && r != '\n' && r != '\t' {
				continue
			}
			// symbols classified as So render as tofu in most terminals
			if unicode.Is(unicode.So, r) {
				continue
			}
			b.WriteRune(r)
		}
	}
	return normalizeNewlines(b.String())
}

// renderHTMLToText walks the DOM emitting text. With refs set, anchors are
// rendered as "label [n]" and collected.
func renderHTMLToText(htmlStr string, refs bool) (string, []LinkRef, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return "", nil, err
	}
	var b strings.Builder
	links := make([]LinkRef, 0, 8)
	quoteDepth := 0

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text := n.Data
			if strings.TrimSpace(text) == "" && !strings.Contains(text, "\n") {
				if text != "" {
					b.WriteString(" ")
				}
				return
			}
			if quoteDepth > 0 {
				prefix := strings.Repeat("> ", min(quoteDepth, 3))
				for i, ln := range strings.Split(text, "\n") {
					if i > 0 {
						b.WriteByte('\n')
					}
					b.WriteString(prefix)
					b.WriteString(strings.TrimRightFunc(ln, unicode.IsSpace))
				}
				return
			}
			b.WriteString(text)
			return
		case html.ElementNode:
			switch strings.ToLower(n.Data) {
			case "head", "style", "script", "title", "meta", "link":
				return
			case "br":
				b.WriteByte('\n')
				return
			case "hr":
				b.WriteString("\n-----\n")
				return
			case "p", "h1", "h2", "h3", "h4", "h5", "h6":
				visitChildren(n, visit)
				b.WriteString("\n\n")
				return
			case "div", "section", "tr", "pre":
				visitChildren(n, visit)
				b.WriteString("\n")
				return
			case "td", "th":
				visitChildren(n, visit)
				b.WriteString(" ")
				return
			case "li":
				b.WriteString("- ")
				visitChildren(n, visit)
				b.WriteByte('\n')
				return
			case "blockquote":
				quoteDepth++
				visitChildren(n, visit)
				quoteDepth--
				b.WriteByte('\n')
				return
			case "a":
				href := attr(n, "href")
				var inner strings.Builder
				collectText(&inner, n)
				label := strings.TrimSpace(inner.String())
				if label == "" {
					label = firstNonEmpty(attr(n, "aria-label"), attr(n, "title"), href)
				}
				if refs && href != "" && !strings.HasPrefix(strings.ToLower(href), "mailto:") {
					links = append(links, LinkRef{Index: len(links) + 1, URL: href, Text: label})
					fmt.Fprintf(&b, "%s [%d]", label, len(links))
					return
				}
				b.WriteString(label)
				return
			case "img":
				if alt := attr(n, "alt"); alt != "" {
					b.WriteString("[" + alt + "]")
				}
				return
			}
		}
		visitChildren(n, visit)
	}
	visit(doc)
	return normalizeNewlines(strings.TrimSpace(b.String())), links, nil
}

func visitChildren(n *html.Node, visit func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visit(c)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func collectText(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			if strings.EqualFold(c.Data, "br") {
				b.WriteByte('\n')
				continue
			}
			collectText(b, c)
		}
	}
}

// WrapTextPreserving wraps text to width keeping quote prefixes (> ) on every
// wrapped line. Tokens longer than width (URLs) are never split.
func WrapTextPreserving(input string, width int) string {
	if width <= 0 {
		return input
	}
	lines := strings.Split(normalizeNewlines(input), "\n")
	var out strings.Builder
	for i, line := range lines {
		if i > 0 {
			out.WriteByte('\n')
		}
		prefix := ""
		trimmed := line
		for strings.HasPrefix(trimmed, "> ") {
			prefix += "> "
			trimmed = strings.TrimPrefix(trimmed, "> ")
		}
		tokens := strings.Fields(trimmed)
		if len(tokens) == 0 {
			out.WriteString(strings.TrimRight(prefix, " "))
			continue
		}
		cur := prefix
		for _, tok := range tokens {
			switch {
			case cur == prefix:
				cur += tok
			case displayLen(cur)+1+displayLen(tok) <= width:
				cur += " " + tok
			default:
				out.WriteString(cur)
				out.WriteByte('\n')
				cur = prefix + tok
			}
		}
		out.WriteString(cur)
	}
	return out.String()
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}

func displayLen(s string) int { return len([]rune(s)) }
