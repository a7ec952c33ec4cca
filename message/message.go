// Package message parses a raw RFC 5322 / MIME message into a tree of
// parts with decoded headers and bodies, flattened into the JMAP view of
// text bodies, HTML bodies and attachments.
//
// Parsing never fails: malformed input degrades to raw headers, opaque
// parts or empty accessors, and the returned Message always covers the
// whole input.
package message

import (
	"strings"
	"unicode"

	"github.com/geoffreyhinton/mailparse_go/header"
	"github.com/geoffreyhinton/mailparse_go/transfer"
)

// PartKind classifies a part's payload.
type PartKind int

const (
	KindBinary PartKind = iota
	KindText
	KindHTML
	KindMessage
	KindMultipart
)

func (k PartKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindHTML:
		return "html"
	case KindMessage:
		return "message"
	case KindMultipart:
		return "multipart"
	default:
		return "binary"
	}
}

// Part is one node of the MIME tree. Parts live in the Message's flat
// vector; Parent and Children are indices into it.
type Part struct {
	ID     int
	Parent int // -1 for the root
	Kind   PartKind

	Headers []header.Field
	MIME    header.MIMEInfo

	// Byte offsets into the input: the whole part and its body.
	RawStart, RawEnd   int
	BodyStart, BodyEnd int

	Children []int

	// CharsetFallback is set when the declared charset was unknown and
	// text decoded as Latin-1.
	CharsetFallback bool

	decoded []byte // transfer-decoded payload, nil when the raw slice serves
	nested  *Message
	msg     *Message
}

// ContentType returns the part's Content-Type, defaulting to text/plain.
func (p *Part) ContentType() *header.ContentType {
	if p.MIME.ContentType != nil {
		return p.MIME.ContentType
	}
	return &header.ContentType{Type: "text", Subtype: "plain"}
}

// DispositionType returns the lowercased Content-Disposition token, or "".
func (p *Part) DispositionType() string {
	if p.MIME.Disposition == nil {
		return ""
	}
	return p.MIME.Disposition.Type
}

// FileName resolves the part's file name: Content-Disposition filename
// first, then the Content-Type name attribute.
func (p *Part) FileName() string {
	if p.MIME.Disposition != nil {
		if fn := p.MIME.Disposition.Attribute("filename"); fn != "" {
			return fn
		}
	}
	return p.ContentType().Attribute("name")
}

// ContentID returns the Content-ID without angle brackets, or "".
func (p *Part) ContentID() string { return p.MIME.ContentID }

// Header returns the part's first header with the given name.
func (p *Part) Header(name string) *header.Field {
	return header.Lookup(p.Headers, name)
}

// Raw returns the undecoded body bytes as a slice of the input.
func (p *Part) Raw() []byte {
	return p.msg.buf[p.BodyStart:p.BodyEnd]
}

// Body returns the transfer-decoded payload. For identity encodings this
// is a slice of the input; otherwise it is the decoded buffer owned by
// the Message.
func (p *Part) Body() []byte {
	if p.decoded != nil {
		return p.decoded
	}
	return p.Raw()
}

// Text returns the body decoded to a Unicode string using the part's
// declared charset. An unknown charset decodes as Latin-1 and sets
// CharsetFallback.
func (p *Part) Text() string {
	label := p.ContentType().Attribute("charset")
	if label == "" {
		label = "utf-8"
	}
	s, known := p.msg.registry().Decode(label, p.Body())
	if !known {
		p.CharsetFallback = true
	}
	return s
}

// Size returns the byte length of the part's decoded payload.
func (p *Part) Size() int { return len(p.Body()) }

// Message lazily parses a message/rfc822 part. The part's own transfer
// encoding is undone first; the parsed submessage is cached. Returns nil
// for any other kind of part.
func (p *Part) Message() *Message {
	if p.Kind != KindMessage {
		return nil
	}
	if p.nested == nil {
		enc := transfer.Parse(p.MIME.TransferEncoding)
		var buf []byte
		switch {
		case enc == transfer.Identity:
			buf = p.Raw()
		case p.msg.mutable:
			buf = transfer.DecodeInPlace(enc, p.Raw())
		default:
			buf = transfer.Decode(enc, p.Raw())
		}
		opts := p.msg.opts
		p.nested = ParseWithOptions(buf, opts)
	}
	return p.nested
}

// Message is a parsed message: the flat part vector plus the flattened
// JMAP body lists. Parts[0] is the root.
type Message struct {
	Parts []*Part

	// TextBodyIDs, HTMLBodyIDs and AttachmentIDs are part indices in
	// document order, per the RFC 8621 4.1.4 rules.
	TextBodyIDs   []int
	HTMLBodyIDs   []int
	AttachmentIDs []int

	buf     []byte
	mutable bool
	opts    Options
	disp    *header.Dispatcher
}

// Parse parses a message with default options. The buffer is borrowed for
// the lifetime of the Message and is never written to.
func Parse(buf []byte) *Message {
	return ParseWithOptions(buf, DefaultOptions())
}

// ParseWithOptions is Parse with explicit options.
func ParseWithOptions(buf []byte, opts Options) *Message {
	return parse(buf, opts, false)
}

// ParseMutable parses a message it may rewrite in place: Base64 and
// Quoted-Printable payloads are decoded into the input buffer and the
// Message holds slices into the rewritten ranges.
func ParseMutable(buf []byte, opts Options) *Message {
	return parse(buf, opts, true)
}

// Root returns the root part.
func (m *Message) Root() *Part { return m.Parts[0] }

// Header returns the root part's first header with the given name.
func (m *Message) Header(name string) *header.Field {
	return header.Lookup(m.Root().Headers, name)
}

func (m *Message) addressHeader(name string) *header.AddressList {
	f := m.Header(name)
	if f == nil {
		return nil
	}
	if list, ok := f.Value.(header.AddressList); ok {
		return &list
	}
	return nil
}

// From returns the From addresses, or nil when absent.
func (m *Message) From() *header.AddressList { return m.addressHeader("From") }

// To returns the To addresses, or nil when absent.
func (m *Message) To() *header.AddressList { return m.addressHeader("To") }

// Cc returns the Cc addresses, or nil when absent.
func (m *Message) Cc() *header.AddressList { return m.addressHeader("Cc") }

// Bcc returns the Bcc addresses, or nil when absent.
func (m *Message) Bcc() *header.AddressList { return m.addressHeader("Bcc") }

// ReplyTo returns the Reply-To addresses, or nil when absent.
func (m *Message) ReplyTo() *header.AddressList { return m.addressHeader("Reply-To") }

// Sender returns the Sender addresses, or nil when absent.
func (m *Message) Sender() *header.AddressList { return m.addressHeader("Sender") }

// Subject returns the decoded Subject, or "".
func (m *Message) Subject() string {
	if f := m.Header("Subject"); f != nil {
		return f.Text()
	}
	return ""
}

// Date returns the parsed Date header, or nil.
func (m *Message) Date() *header.DateTime {
	if f := m.Header("Date"); f != nil {
		if dt, ok := f.Value.(*header.DateTime); ok {
			return dt
		}
	}
	return nil
}

// MessageID returns the Message-ID without brackets, or "".
func (m *Message) MessageID() string {
	if ids := m.idHeader("Message-ID"); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// References returns the References ids, oldest first.
func (m *Message) References() []string { return m.idHeader("References") }

// InReplyTo returns the In-Reply-To ids.
func (m *Message) InReplyTo() []string { return m.idHeader("In-Reply-To") }

func (m *Message) idHeader(name string) []string {
	if f := m.Header(name); f != nil {
		if ids, ok := f.Value.(header.MessageIDs); ok {
			return ids
		}
	}
	return nil
}

// TextBodiesLen returns the number of text body views.
func (m *Message) TextBodiesLen() int { return len(m.TextBodyIDs) }

// HTMLBodiesLen returns the number of HTML body views.
func (m *Message) HTMLBodiesLen() int { return len(m.HTMLBodyIDs) }

// AttachmentsLen returns the number of attachments.
func (m *Message) AttachmentsLen() int { return len(m.AttachmentIDs) }

// BodyText returns the i-th text body as a Unicode string. When the body
// only exists as HTML it is converted to text on the fly.
func (m *Message) BodyText(i int) string {
	if i < 0 || i >= len(m.TextBodyIDs) {
		return ""
	}
	p := m.Parts[m.TextBodyIDs[i]]
	if p.Kind == KindHTML && m.opts.HTMLToTextInline {
		return HTMLToText(p.Text())
	}
	return p.Text()
}

// BodyHTML returns the i-th HTML body. When the body only exists as plain
// text it is converted to simple HTML on the fly.
func (m *Message) BodyHTML(i int) string {
	if i < 0 || i >= len(m.HTMLBodyIDs) {
		return ""
	}
	p := m.Parts[m.HTMLBodyIDs[i]]
	if p.Kind == KindText {
		return TextToHTML(p.Text())
	}
	return p.Text()
}

// Attachment returns the i-th attachment part, or nil.
func (m *Message) Attachment(i int) *Part {
	if i < 0 || i >= len(m.AttachmentIDs) {
		return nil
	}
	return m.Parts[m.AttachmentIDs[i]]
}

// Preview returns up to 256 runes of the first text body with whitespace
// collapsed, for list views.
func (m *Message) Preview() string {
	if len(m.TextBodyIDs) == 0 {
		return ""
	}
	var b strings.Builder
	space := false
	count := 0
	for _, r := range m.BodyText(0) {
		if unicode.IsSpace(r) {
			space = b.Len() > 0
			continue
		}
		if space {
			if count >= 255 {
				// No room for both the space and the next rune.
				break
			}
			b.WriteByte(' ')
			space = false
			count++
		}
		b.WriteRune(r)
		count++
		if count >= 256 {
			break
		}
	}
	return b.String()
}

// ThreadName returns the Subject with the RFC 5256 base-subject prefixes
// (Re:, Fwd:, bracketed tags) stripped repeatedly until a fixpoint.
func (m *Message) ThreadName() string {
	return StripSubjectPrefixes(m.Subject())
}

// StripSubjectPrefixes removes reply and forward markers from a subject
// until none remain.
func StripSubjectPrefixes(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		orig := s
		lower := strings.ToLower(s)
		switch {
		case strings.HasPrefix(lower, "re:"):
			s = strings.TrimSpace(s[3:])
		case strings.HasPrefix(lower, "fw:"):
			s = strings.TrimSpace(s[3:])
		case strings.HasPrefix(lower, "fwd:"):
			s = strings.TrimSpace(s[4:])
		case strings.HasPrefix(s, "["):
			if end := strings.IndexByte(s, ']'); end >= 0 {
				s = strings.TrimSpace(s[end+1:])
			}
		}
		if strings.HasSuffix(strings.ToLower(s), "(fwd)") {
			s = strings.TrimSpace(s[:len(s)-5])
		}
		if s == orig {
			return s
		}
	}
}
