// Package stream provides a forward-only cursor over a raw message buffer.
//
// All reads return subslices of the underlying buffer; nothing is copied
// unless a header line is folded, in which case the unfolded line has to be
// assembled into a fresh buffer.
package stream

import "bytes"

// Stream is a cursor over a byte buffer. Line terminators may be LF, CR or
// CRLF; all three end a physical line.
type Stream struct {
	buf []byte
	pos int
}

// New returns a Stream positioned at the start of buf.
func New(buf []byte) *Stream {
	return &Stream{buf: buf}
}

// NewAt returns a Stream over buf positioned at pos.
func NewAt(buf []byte, pos int) *Stream {
	return &Stream{buf: buf, pos: pos}
}

// Buf returns the underlying buffer.
func (s *Stream) Buf() []byte { return s.buf }

// Pos returns the current offset into the buffer.
func (s *Stream) Pos() int { return s.pos }

// Len returns the total buffer length.
func (s *Stream) Len() int { return len(s.buf) }

// EOF reports whether the cursor is at the end of the buffer.
func (s *Stream) EOF() bool { return s.pos >= len(s.buf) }

// Peek returns the byte at the cursor without advancing. ok is false at EOF.
func (s *Stream) Peek() (b byte, ok bool) {
	if s.pos >= len(s.buf) {
		return 0, false
	}
	return s.buf[s.pos], true
}

// PeekAt returns the byte at offset n past the cursor.
func (s *Stream) PeekAt(n int) (b byte, ok bool) {
	if s.pos+n >= len(s.buf) {
		return 0, false
	}
	return s.buf[s.pos+n], true
}

// Advance moves the cursor forward by n bytes, clamped to the buffer end.
func (s *Stream) Advance(n int) {
	s.pos += n
	if s.pos > len(s.buf) {
		s.pos = len(s.buf)
	}
}

// Mark returns the current position for a later Rewind.
func (s *Stream) Mark() int { return s.pos }

// Rewind moves the cursor back to a position previously returned by Mark.
func (s *Stream) Rewind(mark int) { s.pos = mark }

// ReadLine reads one physical line and advances past its terminator. The
// returned slice excludes the terminator. ok is false when the cursor was
// already at EOF.
func (s *Stream) ReadLine() (line []byte, ok bool) {
	if s.pos >= len(s.buf) {
		return nil, false
	}
	start := s.pos
	i := s.pos
	for i < len(s.buf) {
		c := s.buf[i]
		if c == '\n' {
			line = s.buf[start:i]
			s.pos = i + 1
			return line, true
		}
		if c == '\r' {
			line = s.buf[start:i]
			if i+1 < len(s.buf) && s.buf[i+1] == '\n' {
				s.pos = i + 2
			} else {
				s.pos = i + 1
			}
			return line, true
		}
		i++
	}
	line = s.buf[start:]
	s.pos = len(s.buf)
	return line, true
}

// ReadLogicalLine reads a header line, transparently joining continuation
// lines that begin with SP or HTAB. Each fold (terminator plus the leading
// whitespace of the continuation) collapses to a single SP; whitespace
// inside each physical line is preserved. The result aliases the buffer
// whenever the line was not folded.
func (s *Stream) ReadLogicalLine() (line []byte, ok bool) {
	first, ok := s.ReadLine()
	if !ok {
		return nil, false
	}
	if !s.atFold() {
		return first, true
	}
	// Folded: assemble into a new buffer.
	joined := make([]byte, len(first), len(first)+64)
	copy(joined, first)
	for s.atFold() {
		cont, _ := s.ReadLine()
		joined = append(joined, ' ')
		joined = append(joined, trimLeadingWSP(cont)...)
	}
	return joined, true
}

// atFold reports whether the next physical line is a header continuation.
// A continuation starts with SP or HTAB and contains at least one
// non-whitespace byte; a whitespace-only line ends the header block.
func (s *Stream) atFold() bool {
	if s.pos >= len(s.buf) {
		return false
	}
	c := s.buf[s.pos]
	if c != ' ' && c != '\t' {
		return false
	}
	for i := s.pos; i < len(s.buf); i++ {
		switch s.buf[i] {
		case ' ', '\t':
		case '\r', '\n':
			return false
		default:
			return true
		}
	}
	return false
}

// SkipEmptyLine consumes one empty physical line if the cursor is at one,
// reporting whether it did.
func (s *Stream) SkipEmptyLine() bool {
	if s.pos >= len(s.buf) {
		return false
	}
	switch s.buf[s.pos] {
	case '\n':
		s.pos++
		return true
	case '\r':
		if s.pos+1 < len(s.buf) && s.buf[s.pos+1] == '\n' {
			s.pos += 2
		} else {
			s.pos++
		}
		return true
	}
	return false
}

// IndexLine returns the offset of the first occurrence of needle at the
// start of a line within buf[from:to], together with the offset where that
// line's preceding terminator begins (equal to the match offset when the
// match is at from). It returns -1, -1 when there is no such occurrence.
func IndexLine(buf []byte, from, to int, needle []byte) (match, lineEnd int) {
	search := buf[from:to]
	off := 0
	for {
		i := bytes.Index(search[off:], needle)
		if i < 0 {
			return -1, -1
		}
		abs := from + off + i
		if pre, ok := lineStart(buf, from, abs); ok {
			return abs, pre
		}
		off += i + 1
	}
}

// lineStart reports whether pos is at the beginning of a line within the
// region starting at from, and returns the offset where the preceding
// terminator (CRLF or bare LF/CR) begins.
func lineStart(buf []byte, from, pos int) (termStart int, ok bool) {
	if pos == from {
		return pos, true
	}
	switch buf[pos-1] {
	case '\n':
		if pos-2 >= from && buf[pos-2] == '\r' {
			return pos - 2, true
		}
		return pos - 1, true
	case '\r':
		return pos - 1, true
	}
	return 0, false
}

func trimLeadingWSP(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t') {
		i++
	}
	return b[i:]
}
