package header

import (
	"strings"
	"unicode/utf8"

	"github.com/geoffreyhinton/mailparse_go/charset"
	"github.com/geoffreyhinton/mailparse_go/rfc2047"
	"github.com/geoffreyhinton/mailparse_go/stream"
)

// Value is the tagged union of structured header values. Consumers switch
// on the concrete type.
type Value interface{ headerValue() }

// Text is an unstructured value with encoded-words decoded and folds
// collapsed.
type Text string

// Raw holds the bytes of a header that could not be parsed.
type Raw []byte

// MessageIDs is the value of Message-ID, In-Reply-To, References and
// Content-ID headers: ids without their angle brackets.
type MessageIDs []string

// Keywords is a parsed Keywords header.
type Keywords []string

func (Text) headerValue()         {}
func (Raw) headerValue()          {}
func (MessageIDs) headerValue()   {}
func (Keywords) headerValue()     {}
func (AddressList) headerValue()  {}
func (*ContentType) headerValue() {}
func (*DateTime) headerValue()    {}
func (*Received) headerValue()    {}

// Field is one header as it appeared on the wire: name case preserved,
// value parsed into the union.
type Field struct {
	Name  string
	Raw   []byte
	Value Value
}

// Is reports whether the field has the given name, case-insensitively.
func (f *Field) Is(name string) bool { return strings.EqualFold(f.Name, name) }

// Text returns the value as a string when it is textual, else "".
func (f *Field) Text() string {
	if t, ok := f.Value.(Text); ok {
		return string(t)
	}
	return ""
}

// parserClass selects the structured parser for a header name.
type parserClass int

const (
	classText parserClass = iota
	classAddress
	classDate
	classContentType
	classMessageIDs
	classKeywords
	classReceived
)

// headerClasses maps lowercased header names to parsers. Unlisted headers
// parse as unstructured text.
var headerClasses = map[string]parserClass{
	"from":              classAddress,
	"to":                classAddress,
	"cc":                classAddress,
	"bcc":               classAddress,
	"reply-to":          classAddress,
	"sender":            classAddress,
	"resent-from":       classAddress,
	"resent-to":         classAddress,
	"resent-cc":         classAddress,
	"resent-bcc":        classAddress,
	"resent-sender":     classAddress,
	"date":              classDate,
	"resent-date":       classDate,
	"content-type":      classContentType,
	"content-disposition": classContentType,
	"message-id":        classMessageIDs,
	"resent-message-id": classMessageIDs,
	"in-reply-to":       classMessageIDs,
	"references":        classMessageIDs,
	"content-id":        classMessageIDs,
	"keywords":          classKeywords,
	"received":          classReceived,
}

// Dispatcher parses header blocks, tracking the MIME-relevant headers so
// the structure walker does not need a second pass.
type Dispatcher struct {
	Registry           *charset.Registry
	DecodeCommentWords bool
	TolerateEightBit   bool

	dec rfc2047.Decoder
}

// NewDispatcher returns a Dispatcher with the given registry (nil for the
// package default) and the default behavior flags.
func NewDispatcher(reg *charset.Registry) *Dispatcher {
	d := &Dispatcher{
		Registry:           reg,
		DecodeCommentWords: true,
		TolerateEightBit:   true,
	}
	d.dec = rfc2047.Decoder{Charset: reg}
	return d
}

func (d *Dispatcher) decoder() *rfc2047.Decoder {
	d.dec.Charset = d.Registry
	return &d.dec
}

// MIMEInfo carries the MIME-structural headers of one part.
type MIMEInfo struct {
	ContentType      *ContentType
	Disposition      *ContentType
	TransferEncoding string
	ContentID        string
	HasMIMEVersion   bool
}

// ReadHeader reads one header block from s, stopping after the empty line
// that terminates it (or at EOF). Header order is preserved; the MIMEInfo
// reflects the first Content-Type seen, later duplicates being ignored.
func (d *Dispatcher) ReadHeader(s *stream.Stream) ([]Field, MIMEInfo) {
	var fields []Field
	var info MIMEInfo
	for {
		if s.SkipEmptyLine() {
			break
		}
		line, ok := s.ReadLogicalLine()
		if !ok {
			break
		}
		if len(trimWSP(line)) == 0 {
			// A whitespace-only line ends the header block too.
			break
		}
		f := d.ParseField(line)
		fields = append(fields, f)

		name := strings.ToLower(f.Name)
		switch name {
		case "content-type":
			if ct, ok := f.Value.(*ContentType); ok && info.ContentType == nil {
				info.ContentType = ct
			}
		case "content-disposition":
			if ct, ok := f.Value.(*ContentType); ok && info.Disposition == nil {
				info.Disposition = ct
			}
		case "content-transfer-encoding":
			if info.TransferEncoding == "" {
				info.TransferEncoding = strings.ToLower(strings.TrimSpace(f.Text()))
			}
		case "content-id":
			if ids, ok := f.Value.(MessageIDs); ok && len(ids) > 0 && info.ContentID == "" {
				info.ContentID = ids[0]
			}
		case "mime-version":
			info.HasMIMEVersion = true
		}
	}
	return fields, info
}

// ParseField splits one unfolded header line into name and parsed value.
// A line without a colon is stored raw.
func (d *Dispatcher) ParseField(line []byte) Field {
	colon := -1
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == ':' {
			colon = i
			break
		}
		// RFC 5322: field names are printable ASCII except colon.
		if c <= ' ' || c >= 0x7f {
			break
		}
	}
	if colon <= 0 {
		return Field{Raw: line, Value: Raw(line)}
	}
	name := string(line[:colon])
	value := line[colon+1:]
	for len(value) > 0 && (value[0] == ' ' || value[0] == '\t') {
		value = value[1:]
	}
	return Field{Name: name, Raw: value, Value: d.parseValue(name, value)}
}

func (d *Dispatcher) parseValue(name string, value []byte) Value {
	switch headerClasses[strings.ToLower(name)] {
	case classAddress:
		tk := NewTokenizer(value, d.decoder(), d.DecodeCommentWords)
		return ParseAddressList(tk)
	case classDate:
		if dt := ParseDate(value); dt != nil {
			return dt
		}
		return Raw(value)
	case classContentType:
		return ParseContentType(value, d.decoder())
	case classMessageIDs:
		return parseMessageIDs(value)
	case classKeywords:
		return d.parseKeywords(value)
	case classReceived:
		return ParseReceived(value)
	default:
		return Text(d.DecodeValue(value))
	}
}

// DecodeValue decodes an unstructured header value: encoded-words plus a
// final pass making the result valid UTF-8. With eight-bit tolerance (RFC
// 6532) stray high bytes are taken as UTF-8 and invalid sequences become
// U+FFFD; without it they are read as Latin-1.
func (d *Dispatcher) DecodeValue(value []byte) string {
	s := d.decoder().DecodeText(value)
	if utf8.ValidString(s) {
		return s
	}
	if d.TolerateEightBit {
		return strings.ToValidUTF8(s, "�")
	}
	out, _ := d.decoder().Registry().Decode("iso-8859-1", []byte(s))
	return out
}

func trimWSP(b []byte) []byte {
	i, j := 0, len(b)
	for i < j && (b[i] == ' ' || b[i] == '\t') {
		i++
	}
	for j > i && (b[j-1] == ' ' || b[j-1] == '\t') {
		j--
	}
	return b[i:j]
}

// parseMessageIDs collects the <...> ids of the value; with none present,
// the trimmed value is taken as a single bare id.
func parseMessageIDs(value []byte) MessageIDs {
	var ids MessageIDs
	i := 0
	for i < len(value) {
		if value[i] == '<' {
			j := i + 1
			for j < len(value) && value[j] != '>' {
				j++
			}
			if j < len(value) {
				id := strings.TrimSpace(string(value[i+1 : j]))
				if id != "" {
					ids = append(ids, id)
				}
				i = j + 1
				continue
			}
		}
		i++
	}
	if ids == nil {
		if v := strings.TrimSpace(string(value)); v != "" {
			ids = MessageIDs{v}
		}
	}
	return ids
}

// parseKeywords splits on unquoted commas, decoding each keyword.
func (d *Dispatcher) parseKeywords(value []byte) Keywords {
	var kws Keywords
	start := 0
	flush := func(end int) {
		kw := strings.TrimSpace(d.DecodeValue(value[start:end]))
		if kw != "" {
			kws = append(kws, kw)
		}
	}
	quoted := false
	for i := 0; i < len(value); i++ {
		switch {
		case value[i] == '\\':
			i++
		case value[i] == '"':
			quoted = !quoted
		case value[i] == ',' && !quoted:
			flush(i)
			start = i + 1
		}
	}
	flush(len(value))
	return kws
}

// Lookup returns the first field with the given name, case-insensitively.
func Lookup(fields []Field, name string) *Field {
	for i := range fields {
		if fields[i].Is(name) {
			return &fields[i]
		}
	}
	return nil
}

// LookupAll returns every field with the given name, in wire order.
func LookupAll(fields []Field, name string) []*Field {
	var out []*Field
	for i := range fields {
		if fields[i].Is(name) {
			out = append(out, &fields[i])
		}
	}
	return out
}
