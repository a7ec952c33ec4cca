package message

import (
	"github.com/geoffreyhinton/mailparse_go/charset"
	"github.com/geoffreyhinton/mailparse_go/header"
	"github.com/geoffreyhinton/mailparse_go/stream"
	"github.com/geoffreyhinton/mailparse_go/transfer"
)

func parse(buf []byte, opts Options, mutable bool) *Message {
	m := &Message{buf: buf, opts: opts, mutable: mutable}
	m.disp = header.NewDispatcher(opts.Charset)
	m.disp.DecodeCommentWords = opts.DecodeCommentEncodedWords
	m.disp.TolerateEightBit = opts.TolerateEightBitHeaders
	if m.opts.MaxDepth <= 0 {
		m.opts.MaxDepth = DefaultOptions().MaxDepth
	}
	m.parsePart(0, len(buf), -1, 0)
	m.classify()
	return m
}

func (m *Message) registry() *charset.Registry {
	if m.opts.Charset != nil {
		return m.opts.Charset
	}
	return charset.Default
}

// parsePart reads the header block and body of the part spanning
// buf[start:end], appends it to the flat vector and recurses into
// multipart children. It returns the part's id.
func (m *Message) parsePart(start, end, parent, depth int) int {
	p := &Part{
		ID:       len(m.Parts),
		Parent:   parent,
		RawStart: start,
		RawEnd:   end,
		msg:      m,
	}
	m.Parts = append(m.Parts, p)

	s := stream.NewAt(m.buf[:end], start)
	p.Headers, p.MIME = m.disp.ReadHeader(s)
	p.BodyStart, p.BodyEnd = s.Pos(), end

	ct := p.MIME.ContentType
	if ct == nil {
		ct = &header.ContentType{Type: "text", Subtype: "plain"}
		p.MIME.ContentType = ct
	}

	if depth >= m.opts.MaxDepth {
		// Nesting cap: anything deeper is an opaque attachment.
		m.opts.Logger.V(1).Info("depth cap reached, part degraded to binary",
			"part", p.ID, "depth", depth)
		p.Kind = KindBinary
		m.decodeLeaf(p)
		return p.ID
	}

	switch {
	case ct.IsMultipart():
		boundary := ct.Attribute("boundary")
		if boundary == "" {
			// No boundary: the body is unstructured, treat as text/plain.
			p.MIME.ContentType = &header.ContentType{Type: "text", Subtype: "plain"}
			p.Kind = KindText
			m.decodeLeaf(p)
			return p.ID
		}
		p.Kind = KindMultipart
		m.walkMultipart(p, boundary, depth)
	case ct.IsMessage():
		p.Kind = KindMessage
		if !m.opts.LazyNestedMessages {
			p.Message()
		}
	default:
		switch ct.FullType() {
		case "text/plain":
			p.Kind = KindText
		case "text/html":
			p.Kind = KindHTML
		default:
			p.Kind = KindBinary
		}
		m.decodeLeaf(p)
	}
	return p.ID
}

// decodeLeaf applies the transfer encoding to a leaf body. Identity
// encodings keep the raw slice; Base64 and Quoted-Printable decode in
// place when the caller offered the buffer mutably, into a fresh buffer
// otherwise.
func (m *Message) decodeLeaf(p *Part) {
	enc := transfer.Parse(p.MIME.TransferEncoding)
	if enc == transfer.Identity {
		return
	}
	raw := m.buf[p.BodyStart:p.BodyEnd]
	if m.mutable {
		p.decoded = transfer.DecodeInPlace(enc, raw)
	} else {
		p.decoded = transfer.Decode(enc, raw)
	}
}

// walkMultipart scans for boundary delimiter lines within the body of p
// and parses each enclosed part. The preamble before the first delimiter
// and the epilogue after the closing one stay inside the parent's raw
// range but produce no parts. An unterminated part closes at the parent's
// end.
func (m *Message) walkMultipart(p *Part, boundary string, depth int) {
	delim := []byte("--" + boundary)

	match, _, closing := m.findDelimiter(p.BodyStart, p.BodyEnd, delim)
	if match < 0 {
		// The declared boundary never occurs. The body is opaque.
		m.opts.Logger.V(1).Info("boundary not found in multipart body",
			"part", p.ID, "boundary", boundary)
		return
	}
	childStart := m.skipDelimiterLine(match+len(delim), p.BodyEnd)
	if closing {
		return
	}

	for {
		next, lineEnd, closing := m.findDelimiter(childStart, p.BodyEnd, delim)
		if next < 0 {
			// Unterminated: the child is closed at the parent's end.
			id := m.parsePart(childStart, p.BodyEnd, p.ID, depth+1)
			p.Children = append(p.Children, id)
			return
		}
		id := m.parsePart(childStart, lineEnd, p.ID, depth+1)
		p.Children = append(p.Children, id)
		childStart = m.skipDelimiterLine(next+len(delim), p.BodyEnd)
		if closing {
			// Bytes after the closing delimiter are the epilogue.
			return
		}
	}
}

// findDelimiter locates the next boundary delimiter line at or after
// from. A match must sit at the start of a line and be followed by
// whitespace, a line end, or the "--" closing marker; anything else is a
// different boundary and the scan continues. lineEnd is the offset where
// the terminator preceding the delimiter begins (the end of the previous
// part's body).
func (m *Message) findDelimiter(from, to int, delim []byte) (match, lineEnd int, closing bool) {
	for from <= to {
		match, lineEnd = stream.IndexLine(m.buf, from, to, delim)
		if match < 0 {
			return -1, -1, false
		}
		rest := m.buf[match+len(delim) : to]
		if len(rest) >= 2 && rest[0] == '-' && rest[1] == '-' {
			return match, lineEnd, true
		}
		if len(rest) == 0 || rest[0] == '\r' || rest[0] == '\n' || rest[0] == ' ' || rest[0] == '\t' {
			return match, lineEnd, false
		}
		// A longer boundary shares this prefix; resume at the next line so
		// the at-start-of-region tolerance in IndexLine stays sound.
		from = m.skipDelimiterLine(match+1, to)
	}
	return -1, -1, false
}

// skipDelimiterLine advances past the rest of a delimiter line, including
// its terminator.
func (m *Message) skipDelimiterLine(pos, end int) int {
	for pos < end && m.buf[pos] != '\n' && m.buf[pos] != '\r' {
		pos++
	}
	if pos < end && m.buf[pos] == '\r' {
		pos++
	}
	if pos < end && m.buf[pos] == '\n' {
		pos++
	}
	return pos
}
