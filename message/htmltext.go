package message

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags end a line of extracted text.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "ul": true, "ol": true,
}

// skipTags contribute no text at all.
var skipTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true,
}

// HTMLToText extracts the readable text of an HTML body: tags dropped,
// entities decoded, whitespace collapsed, block elements and <br>
// becoming line breaks.
func HTMLToText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skip := 0
	pendingSpace := false

	writeBreak := func() {
		pendingSpace = false
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
			return b.String()
		case html.TextToken:
			if skip > 0 {
				continue
			}
			for _, r := range string(z.Text()) {
				if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
					pendingSpace = b.Len() > 0 && !strings.HasSuffix(b.String(), "\n")
					continue
				}
				if pendingSpace {
					b.WriteByte(' ')
					pendingSpace = false
				}
				b.WriteRune(r)
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] {
				skip++
				continue
			}
			if tag == "br" {
				b.WriteByte('\n')
				pendingSpace = false
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] {
				if skip > 0 {
					skip--
				}
				continue
			}
			if blockTags[tag] {
				writeBreak()
			}
		}
	}
}

// TextToHTML renders plain text as minimal HTML: characters escaped and
// line breaks kept.
func TextToHTML(src string) string {
	var b strings.Builder
	b.Grow(len(src) + 64)
	for _, r := range src {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\n':
			b.WriteString("<br>\n")
		case '\r':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
