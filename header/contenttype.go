package header

import (
	"sort"
	"strings"

	"github.com/geoffreyhinton/mailparse_go/rfc2047"
)

// ContentType is a parsed Content-Type or Content-Disposition value. For
// dispositions, Type holds the disposition token and Subtype is empty.
type ContentType struct {
	Type       string            `json:"type" bson:"type"`
	Subtype    string            `json:"subtype,omitempty" bson:"subtype,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" bson:"attributes,omitempty"`
}

// FullType returns "type/subtype", or just the type when there is no
// subtype.
func (c *ContentType) FullType() string {
	if c.Subtype == "" {
		return c.Type
	}
	return c.Type + "/" + c.Subtype
}

// Attribute returns the named attribute; names are case-insensitive.
func (c *ContentType) Attribute(name string) string {
	return c.Attributes[strings.ToLower(name)]
}

// IsMultipart reports whether the type is multipart/*.
func (c *ContentType) IsMultipart() bool { return c.Type == "multipart" }

// IsMessage reports whether the type is message/rfc822 or message/global.
func (c *ContentType) IsMessage() bool {
	return c.Type == "message" && (c.Subtype == "rfc822" || c.Subtype == "global")
}

// ctParam is one raw parameter before RFC 2231 assembly.
type ctParam struct {
	base    string // name with any *N / * suffix stripped, lowercased
	index   int    // continuation index, 0 for `name*=`
	cont    bool   // had an *N continuation suffix
	encoded bool   // had a trailing *, value is charset'lang'pct-data
	value   string
}

// ParseContentType parses a Content-Type or Content-Disposition value.
// Parameters follow RFC 2045 with RFC 2231 continuations and
// charset-tagged values. A missing or empty value yields text/plain.
func ParseContentType(value []byte, dec *rfc2047.Decoder) *ContentType {
	s := &ctScanner{buf: value}
	ct := &ContentType{}

	s.skipCFWS()
	ct.Type = strings.ToLower(s.readToken("/;"))
	if s.peek() == '/' {
		s.pos++
		ct.Subtype = strings.ToLower(strings.TrimSpace(s.readToken(";")))
	}
	ct.Type = strings.TrimSpace(ct.Type)
	if ct.Type == "" {
		ct.Type, ct.Subtype = "text", "plain"
	}

	var params []ctParam
	for !s.eof() {
		if s.peek() != ';' {
			s.pos++
			continue
		}
		s.pos++
		s.skipCFWS()
		name := strings.ToLower(strings.TrimSpace(s.readToken("=;")))
		if name == "" {
			continue
		}
		var val string
		if s.peek() == '=' {
			s.pos++
			s.skipCFWS()
			if s.peek() == '"' {
				val = s.readQuoted()
			} else {
				val = strings.TrimSpace(s.readToken(";"))
			}
		}
		params = append(params, splitParamName(name, val))
	}

	if len(params) > 0 {
		ct.Attributes = assembleParams(params, dec)
	}
	return ct
}

// splitParamName recognizes the RFC 2231 name*N and name*N* suffixes.
func splitParamName(name, value string) ctParam {
	p := ctParam{base: name, value: value}
	if strings.HasSuffix(name, "*") {
		p.encoded = true
		name = name[:len(name)-1]
		p.base = name
	}
	if star := strings.LastIndexByte(name, '*'); star >= 0 {
		idx := 0
		digits := name[star+1:]
		valid := digits != ""
		for i := 0; i < len(digits); i++ {
			if digits[i] < '0' || digits[i] > '9' {
				valid = false
				break
			}
			idx = idx*10 + int(digits[i]-'0')
		}
		if valid {
			p.base = name[:star]
			p.index = idx
			p.cont = true
		}
	}
	return p
}

// assembleParams joins continuations in numeric order, percent-decodes and
// charset-decodes tagged values, and decodes encoded-words in filename
// attributes for compatibility with senders that use RFC 2047 there.
func assembleParams(params []ctParam, dec *rfc2047.Decoder) map[string]string {
	attrs := make(map[string]string)
	order := []string{}
	grouped := make(map[string][]ctParam)
	for _, p := range params {
		if _, seen := grouped[p.base]; !seen {
			order = append(order, p.base)
		}
		grouped[p.base] = append(grouped[p.base], p)
	}

	for _, base := range order {
		segs := grouped[base]
		if _, dup := attrs[base]; dup {
			continue
		}
		plain := true
		for _, seg := range segs {
			if seg.cont || seg.encoded {
				plain = false
				break
			}
		}
		if plain {
			// Repeated plain parameters: the first occurrence wins.
			attrs[base] = decodeParamWords(base, segs[0].value, dec)
			continue
		}
		sort.SliceStable(segs, func(i, j int) bool { return segs[i].index < segs[j].index })

		// The charset declared on segment 0 governs every encoded segment
		// of the parameter.
		label := ""
		var raw []byte
		for i, seg := range segs {
			v := seg.value
			if seg.encoded {
				if i == 0 {
					if l, _, rest, ok := splitCharsetTag(v); ok {
						label, v = l, rest
					}
				}
				raw = append(raw, pctDecode(v)...)
			} else {
				raw = append(raw, v...)
			}
		}
		if label == "" {
			label = "utf-8"
		}
		decoded, _ := dec.Registry().Decode(label, raw)
		attrs[base] = decoded
	}
	return attrs
}

// splitCharsetTag splits charset'lang'data.
func splitCharsetTag(v string) (label, lang, rest string, ok bool) {
	first := strings.IndexByte(v, '\'')
	if first < 0 {
		return "", "", v, false
	}
	second := strings.IndexByte(v[first+1:], '\'')
	if second < 0 {
		return "", "", v, false
	}
	second += first + 1
	return v[:first], v[first+1 : second], v[second+1:], true
}

// pctDecode resolves %XX escapes, passing invalid ones through.
func pctDecode(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		if s[i] == '%' && i+2 < len(s) && isHexByte(s[i+1]) && isHexByte(s[i+2]) {
			out = append(out, unhexByte(s[i+1])<<4|unhexByte(s[i+2]))
			i += 3
			continue
		}
		out = append(out, s[i])
		i++
	}
	return out
}

// decodeParamWords decodes RFC 2047 words inside name-ish parameter
// values. Boundary and other structural attributes are left untouched.
func decodeParamWords(base, value string, dec *rfc2047.Decoder) string {
	switch base {
	case "name", "filename":
		if strings.Contains(value, "=?") {
			return dec.DecodeText([]byte(value))
		}
	}
	return value
}

// ctScanner is a minimal cursor for Content-Type syntax.
type ctScanner struct {
	buf []byte
	pos int
}

func (s *ctScanner) eof() bool { return s.pos >= len(s.buf) }

func (s *ctScanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.buf[s.pos]
}

// skipCFWS passes over whitespace and comments.
func (s *ctScanner) skipCFWS() {
	for !s.eof() {
		c := s.buf[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			s.pos++
		case c == '(':
			depth := 1
			s.pos++
			for !s.eof() && depth > 0 {
				switch s.buf[s.pos] {
				case '\\':
					s.pos++
				case '(':
					depth++
				case ')':
					depth--
				}
				s.pos++
			}
		default:
			return
		}
	}
}

// readToken reads until a stop byte, whitespace-trimmed by callers, with
// comments skipped.
func (s *ctScanner) readToken(stop string) string {
	var b strings.Builder
	for !s.eof() {
		c := s.buf[s.pos]
		if strings.IndexByte(stop, c) >= 0 {
			break
		}
		if c == '(' {
			s.skipCFWS()
			continue
		}
		b.WriteByte(c)
		s.pos++
	}
	return b.String()
}

// readQuoted reads a quoted-string value with backslash escapes removed.
func (s *ctScanner) readQuoted() string {
	var b strings.Builder
	s.pos++ // opening quote
	for !s.eof() {
		c := s.buf[s.pos]
		if c == '\\' && s.pos+1 < len(s.buf) {
			b.WriteByte(s.buf[s.pos+1])
			s.pos += 2
			continue
		}
		if c == '"' {
			s.pos++
			break
		}
		b.WriteByte(c)
		s.pos++
	}
	return b.String()
}

func isHexByte(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'F' || c >= 'a' && c <= 'f'
}

func unhexByte(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}
