// Package charset resolves MIME charset labels to decoders that turn raw
// bytes into Unicode strings.
//
// UTF-8, US-ASCII and ISO-8859-1 are built in. Every other label is served
// through golang.org/x/text, with a caller-pluggable decoder hook taking
// precedence. An unknown label falls back to ISO-8859-1 so that no input
// ever fails to decode.
package charset

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeFunc converts bytes tagged with a charset label into a Unicode
// string. It must be pure and must not panic. ok is false when the label is
// not supported, in which case the registry falls back to ISO-8859-1.
type DecodeFunc func(label string, b []byte) (s string, ok bool)

// Registry resolves charset labels. The zero value is ready to use.
type Registry struct {
	// Custom, when set, is consulted for every label that is not one of
	// the built-in charsets.
	Custom DecodeFunc
}

// Default is the registry used by the package-level Decode.
var Default = &Registry{}

// Decode converts b to a Unicode string using Default.
func Decode(label string, b []byte) (string, bool) {
	return Default.Decode(label, b)
}

// Decode converts b to a Unicode string according to label. ok is false
// when the label was unknown and the Latin-1 fallback was applied; the
// returned string is usable either way.
func (r *Registry) Decode(label string, b []byte) (s string, ok bool) {
	switch Normalize(label) {
	case "utf8":
		return decodeUTF8(b), true
	case "usascii", "ascii", "ansix341968", "646":
		return decodeASCII(b), true
	case "iso88591", "latin1", "l1", "cp819", "iso8859":
		return decodeLatin1(b), true
	}
	if r.Custom != nil {
		if s, ok := r.Custom(label, b); ok {
			return s, true
		}
	}
	if e := lookup(label); e != nil {
		if s, ok := decodeWith(e, b); ok {
			return s, true
		}
	}
	return decodeLatin1(b), false
}

// Known reports whether label resolves without the Latin-1 fallback. The
// Custom hook is not consulted.
func (r *Registry) Known(label string) bool {
	switch Normalize(label) {
	case "utf8", "usascii", "ascii", "ansix341968", "646",
		"iso88591", "latin1", "l1", "cp819", "iso8859":
		return true
	}
	return lookup(label) != nil
}

// Normalize lowercases a charset label and strips the punctuation that
// aliases commonly disagree on, so that "UTF_8", "utf-8" and "utf8" all
// compare equal.
func Normalize(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		case c == '-' || c == '_' || c == ' ' || c == ':':
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// encodings maps normalized labels to x/text encodings for the label sets
// seen in real mail that ianaindex does not resolve under these spellings.
var encodings = map[string]encoding.Encoding{
	"iso88592":  charmap.ISO8859_2,
	"iso88593":  charmap.ISO8859_3,
	"iso88594":  charmap.ISO8859_4,
	"iso88595":  charmap.ISO8859_5,
	"iso88596":  charmap.ISO8859_6,
	"iso88597":  charmap.ISO8859_7,
	"iso88598":  charmap.ISO8859_8,
	"iso88599":  charmap.ISO8859_9,
	"iso885910": charmap.ISO8859_10,
	"iso885913": charmap.ISO8859_13,
	"iso885914": charmap.ISO8859_14,
	"iso885915": charmap.ISO8859_15,
	"latin9":    charmap.ISO8859_15,
	"iso885916": charmap.ISO8859_16,
	"koi8r":     charmap.KOI8R,
	"koi8u":     charmap.KOI8U,
	"cp1250":    charmap.Windows1250,
	"cp1251":    charmap.Windows1251,
	"cp1252":    charmap.Windows1252,
	"cp1253":    charmap.Windows1253,
	"cp1254":    charmap.Windows1254,
	"cp1255":    charmap.Windows1255,
	"cp1256":    charmap.Windows1256,
	"cp1257":    charmap.Windows1257,
	"cp1258":    charmap.Windows1258,
	"windows1250": charmap.Windows1250,
	"windows1251": charmap.Windows1251,
	"windows1252": charmap.Windows1252,
	"windows1253": charmap.Windows1253,
	"windows1254": charmap.Windows1254,
	"windows1255": charmap.Windows1255,
	"windows1256": charmap.Windows1256,
	"windows1257": charmap.Windows1257,
	"windows1258": charmap.Windows1258,
	"windows874":  charmap.Windows874,
	"tis620":      charmap.Windows874,
	"cp850":       charmap.CodePage850,
	"cp437":       charmap.CodePage437,
	"macintosh":   charmap.Macintosh,
	"shiftjis":    japanese.ShiftJIS,
	"sjis":        japanese.ShiftJIS,
	"cp932":       japanese.ShiftJIS,
	"eucjp":       japanese.EUCJP,
	"iso2022jp":   japanese.ISO2022JP,
	"euckr":       korean.EUCKR,
	"ksc56011987": korean.EUCKR,
	"cp949":       korean.EUCKR,
	"gb2312":      simplifiedchinese.GBK,
	"gbk":         simplifiedchinese.GBK,
	"gb18030":     simplifiedchinese.GB18030,
	"big5":        traditionalchinese.Big5,
	"utf16":       unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	"utf16le":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf16be":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

func lookup(label string) encoding.Encoding {
	if e, ok := encodings[Normalize(label)]; ok {
		return e
	}
	// Anything else goes through the IANA index under its wire spelling.
	e, err := ianaindex.MIME.Encoding(strings.TrimSpace(label))
	if err != nil || e == nil {
		return nil
	}
	return e
}

func decodeWith(e encoding.Encoding, b []byte) (string, bool) {
	out, _, err := transform.Bytes(e.NewDecoder(), b)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func decodeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

func decodeASCII(b []byte) string {
	var s strings.Builder
	s.Grow(len(b))
	for _, c := range b {
		if c < 0x80 {
			s.WriteByte(c)
		} else {
			s.WriteRune('�')
		}
	}
	return s.String()
}

func decodeLatin1(b []byte) string {
	var s strings.Builder
	s.Grow(len(b))
	for _, c := range b {
		s.WriteRune(rune(c))
	}
	return s.String()
}
