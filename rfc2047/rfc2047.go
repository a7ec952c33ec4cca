// Package rfc2047 recognizes and decodes =?charset?enc?text?= encoded-words
// in header values.
//
// A candidate is accepted only when it matches the full shape with an
// encoded text of at most 75 characters; anything else passes through
// verbatim. A word with an unknown charset label is read as Latin-1; no
// input ever produces an error.
package rfc2047

import (
	"strings"

	"github.com/geoffreyhinton/mailparse_go/charset"
	"github.com/geoffreyhinton/mailparse_go/transfer"
)

// maxEncodedText caps the encoded text of a single word.
const maxEncodedText = 75

// Word is one parsed encoded-word before charset decoding.
type Word struct {
	Charset string // charset label, e.g. "ISO-8859-1"
	Lang    string // optional RFC 2231 language tag
	Enc     byte   // 'q' or 'b', lowercased
	Text    []byte // raw encoded text between the 3rd and 4th "?"
}

// Parse attempts to read one encoded-word at the start of b. n is the
// number of bytes consumed. ok is false when b does not start with a
// well-shaped word.
func Parse(b []byte) (w Word, n int, ok bool) {
	if len(b) < 8 || b[0] != '=' || b[1] != '?' {
		return w, 0, false
	}
	i := 2
	// charset, optionally followed by *lang
	start := i
	for i < len(b) && b[i] != '?' {
		c := b[i]
		if c <= ' ' || c >= 0x7f {
			return w, 0, false
		}
		i++
	}
	if i >= len(b) || i == start {
		return w, 0, false
	}
	label := string(b[start:i])
	if star := strings.IndexByte(label, '*'); star >= 0 {
		w.Lang = label[star+1:]
		label = label[:star]
		if label == "" {
			return w, 0, false
		}
	}
	w.Charset = label
	i++
	// single-letter encoding
	if i+1 >= len(b) || b[i+1] != '?' {
		return w, 0, false
	}
	switch b[i] {
	case 'q', 'Q':
		w.Enc = 'q'
	case 'b', 'B':
		w.Enc = 'b'
	default:
		return w, 0, false
	}
	i += 2
	// encoded text, up to "?=". SP and HTAB are tolerated inside (they
	// appear when a word was folded across lines); CR and LF are not.
	start = i
	for {
		if i >= len(b) || i-start > maxEncodedText {
			return w, 0, false
		}
		c := b[i]
		if c == '?' {
			if i+1 < len(b) && b[i+1] == '=' {
				break
			}
			return w, 0, false
		}
		if c == '\r' || c == '\n' {
			return w, 0, false
		}
		i++
	}
	w.Text = b[start:i]
	return w, i + 2, true
}

// Decoder decodes encoded-words against a charset registry.
type Decoder struct {
	Charset *charset.Registry
}

// Registry returns the charset registry the decoder resolves labels with.
func (d *Decoder) Registry() *charset.Registry { return d.registry() }

// registry returns the configured registry or the package default.
func (d *Decoder) registry() *charset.Registry {
	if d != nil && d.Charset != nil {
		return d.Charset
	}
	return charset.Default
}

// DecodeWord charset-decodes a single parsed word. ok is false when the
// charset label was unknown and the Latin-1 fallback was applied.
func (d *Decoder) DecodeWord(w Word) (string, bool) {
	return d.registry().Decode(w.Charset, w.decodeBytes())
}

// DecodeRun decodes a run of adjacent encoded-words. Consecutive words
// sharing a charset and encoding concatenate their decoded bytes before
// charset decoding, so multibyte sequences split across words survive.
func (d *Decoder) DecodeRun(words []Word) (string, bool) {
	reg := d.registry()
	var out strings.Builder
	allKnown := true
	for i := 0; i < len(words); {
		j := i + 1
		raw := words[i].decodeBytes()
		for j < len(words) &&
			words[j].Enc == words[i].Enc &&
			charset.Normalize(words[j].Charset) == charset.Normalize(words[i].Charset) {
			raw = append(raw, words[j].decodeBytes()...)
			j++
		}
		s, known := reg.Decode(words[i].Charset, raw)
		if !known {
			allKnown = false
		}
		out.WriteString(s)
		i = j
	}
	return out.String(), allKnown
}

// decodeBytes applies the Q or B layer, leaving charset decoding to the
// caller.
func (w Word) decodeBytes() []byte {
	if w.Enc == 'b' {
		return transfer.DecodeBase64(w.Text)
	}
	return decodeQ(w.Text)
}

// decodeQ is the RFC 2047 flavor of quoted-printable: "_" is SP, "=XX" is
// a hex pair, invalid escapes pass through.
func decodeQ(src []byte) []byte {
	dst := make([]byte, 0, len(src))
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '_':
			dst = append(dst, ' ')
			i++
		case c == '=' && i+2 < len(src) && isHex(src[i+1]) && isHex(src[i+2]):
			dst = append(dst, unhex(src[i+1])<<4|unhex(src[i+2]))
			i += 3
		default:
			dst = append(dst, c)
			i++
		}
	}
	return dst
}

// DecodeText decodes an unfolded unstructured header value: encoded-words
// are replaced by their decoded text, whitespace strictly between two
// encoded-words is dropped, and whitespace next to ordinary tokens is
// preserved. A decoded word appended directly after ordinary text is
// separated from it by a single space.
func (d *Decoder) DecodeText(b []byte) string {
	s, _ := d.decodeText(b)
	return s
}

// DecodeTextKnown is DecodeText plus a flag reporting whether every
// charset label in the value resolved without the Latin-1 fallback.
func (d *Decoder) DecodeTextKnown(b []byte) (string, bool) {
	return d.decodeText(b)
}

func (d *Decoder) decodeText(b []byte) (string, bool) {
	var out strings.Builder
	allKnown := true
	lastEncoded := false
	wsStart, wsEnd := 0, 0 // pending whitespace run, empty when equal

	flushWS := func() {
		out.Write(b[wsStart:wsEnd])
		wsStart, wsEnd = 0, 0
	}

	i := 0
	for i < len(b) {
		c := b[i]
		if c == ' ' || c == '\t' {
			if wsStart == wsEnd {
				wsStart, wsEnd = i, i
			}
			wsEnd++
			i++
			continue
		}
		if c == '=' && i+1 < len(b) && b[i+1] == '?' {
			words, n := parseRun(b[i:])
			if n > 0 {
				decoded, known := d.DecodeRun(words)
				if !known {
					allKnown = false
				}
				if lastEncoded {
					// Whitespace between two encoded-words vanishes.
					wsStart, wsEnd = 0, 0
				} else if wsEnd > wsStart {
					flushWS()
				} else if out.Len() > 0 {
					out.WriteByte(' ')
				}
				out.WriteString(decoded)
				lastEncoded = true
				i += n
				continue
			}
		}
		// Ordinary text: flush pending whitespace verbatim and copy up to
		// the next whitespace or encoded-word candidate.
		if wsEnd > wsStart {
			flushWS()
		}
		j := i
		for j < len(b) {
			c := b[j]
			if c == ' ' || c == '\t' {
				break
			}
			if c == '=' && j+1 < len(b) && b[j+1] == '?' && j > i {
				if _, _, ok := Parse(b[j:]); ok {
					break
				}
			}
			j++
		}
		out.Write(b[i:j])
		lastEncoded = false
		i = j
	}
	return out.String(), allKnown
}

// parseRun reads a maximal sequence of encoded-words separated only by
// whitespace, returning the words and the bytes consumed up to the end of
// the last word.
func parseRun(b []byte) ([]Word, int) {
	var words []Word
	consumed := 0
	i := 0
	for {
		w, n, ok := Parse(b[i:])
		if !ok {
			break
		}
		words = append(words, w)
		i += n
		consumed = i
		// Look past whitespace for another word.
		j := i
		for j < len(b) && (b[j] == ' ' || b[j] == '\t') {
			j++
		}
		if j+1 < len(b) && b[j] == '=' && b[j+1] == '?' {
			if _, _, ok := Parse(b[j:]); ok {
				i = j
				continue
			}
		}
		break
	}
	return words, consumed
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'F' || c >= 'a' && c <= 'f'
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}
