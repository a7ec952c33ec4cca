package codec

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/geoffreyhinton/mailparse_go/header"
	"github.com/geoffreyhinton/mailparse_go/message"
)

// BodyStructureOptions configures the BODYSTRUCTURE rendering.
type BodyStructureOptions struct {
	UpperCaseKeys bool // upper-case types, subtypes and parameter names
	Body          bool // skip extension fields (BODY instead of BODYSTRUCTURE)
}

// BodyStructure renders the part tree of a parsed message as the nested
// list structure of an IMAP BODYSTRUCTURE response.
func BodyStructure(m *message.Message, options *BodyStructureOptions) interface{} {
	if options == nil {
		options = &BodyStructureOptions{}
	}
	return partStructure(m, m.Root(), options)
}

func partStructure(m *message.Message, p *message.Part, options *BodyStructureOptions) interface{} {
	switch p.Kind {
	case message.KindMultipart:
		return multipartStructure(m, p, options)
	case message.KindText, message.KindHTML:
		result := basicFields(p, options)
		result = append(result, lineCount(p.Body()))
		if !options.Body {
			result = append(result, extensionFields(p, options)...)
		}
		return result
	case message.KindMessage:
		result := basicFields(p, options)
		nested := p.Message()
		result = append(result, Envelope(nested))
		result = append(result, partStructure(nested, nested.Root(), options))
		result = append(result, lineCount(p.Body()))
		if !options.Body {
			result = append(result, extensionFields(p, options)...)
		}
		return result
	default:
		result := basicFields(p, options)
		if !options.Body {
			result = append(result, extensionFields(p, options)...)
		}
		return result
	}
}

func multipartStructure(m *message.Message, p *message.Part, options *BodyStructureOptions) []interface{} {
	result := make([]interface{}, 0, len(p.Children)+2)
	if len(p.Children) > 0 {
		for _, c := range p.Children {
			result = append(result, partStructure(m, m.Parts[c], options))
		}
	} else {
		result = append(result, []interface{}{})
	}

	subtype := p.ContentType().Subtype
	if subtype == "" {
		subtype = "mixed"
	}
	if options.UpperCaseKeys {
		subtype = strings.ToUpper(subtype)
	}
	result = append(result, subtype)
	result = append(result, paramList(p.ContentType(), options))

	if !options.Body {
		// Multipart extension fields carry no MD5.
		result = append(result, extensionFields(p, options)[1:]...)
	}
	return result
}

// basicFields lists the fields every non-multipart part starts with: type,
// subtype, parameters, id, description, encoding and size.
func basicFields(p *message.Part, options *BodyStructureOptions) []interface{} {
	ct := p.ContentType()
	bodyType, bodySubtype := ct.Type, ct.Subtype
	if bodyType == "" {
		bodyType = "text"
	}
	if bodySubtype == "" {
		bodySubtype = "plain"
	}
	encoding := p.MIME.TransferEncoding
	if encoding == "" {
		encoding = "7bit"
	}
	if options.UpperCaseKeys {
		bodyType = strings.ToUpper(bodyType)
		bodySubtype = strings.ToUpper(bodySubtype)
		encoding = strings.ToUpper(encoding)
	}

	var contentID interface{}
	if id := p.ContentID(); id != "" {
		contentID = "<" + id + ">"
	}
	var description interface{}
	if f := p.Header("Content-Description"); f != nil {
		description = f.Text()
	}

	return []interface{}{
		bodyType,
		bodySubtype,
		paramList(ct, options),
		contentID,
		description,
		encoding,
		len(p.Raw()),
	}
}

// extensionFields lists MD5, disposition, language and location.
func extensionFields(p *message.Part, options *BodyStructureOptions) []interface{} {
	var md5 interface{}
	if f := p.Header("Content-MD5"); f != nil {
		md5 = f.Text()
	}

	var disposition interface{}
	if p.MIME.Disposition != nil {
		value := p.MIME.Disposition.Type
		if options.UpperCaseKeys {
			value = strings.ToUpper(value)
		}
		disposition = []interface{}{value, paramList(p.MIME.Disposition, options)}
	}

	var language interface{}
	if f := p.Header("Content-Language"); f != nil {
		langs := strings.FieldsFunc(f.Text(), func(r rune) bool {
			return r == ',' || r == ' '
		})
		if len(langs) == 1 {
			language = langs[0]
		} else if len(langs) > 1 {
			language = langs
		}
	}

	var location interface{}
	if f := p.Header("Content-Location"); f != nil {
		location = f.Text()
	}

	return []interface{}{md5, disposition, language, location}
}

func paramList(ct *header.ContentType, options *BodyStructureOptions) interface{} {
	if len(ct.Attributes) == 0 {
		return nil
	}
	params := make([]interface{}, 0, len(ct.Attributes)*2)
	for _, key := range sortedKeys(ct.Attributes) {
		name := key
		if options.UpperCaseKeys {
			name = strings.ToUpper(name)
		}
		params = append(params, name, ct.Attributes[key])
	}
	return params
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lineCount(body []byte) int {
	if len(body) == 0 {
		return 0
	}
	return bytes.Count(body, []byte{'\n'}) + 1
}

// Envelope renders the ten-element IMAP ENVELOPE of a message.
func Envelope(m *message.Message) []interface{} {
	if m == nil {
		return []interface{}{nil, nil, nil, nil, nil, nil, nil, nil, nil, nil}
	}
	envelope := make([]interface{}, 10)
	if f := m.Header("Date"); f != nil {
		envelope[0] = string(f.Raw)
	}
	if s := m.Subject(); s != "" {
		envelope[1] = s
	}
	envelope[2] = envelopeAddresses(m.From())
	envelope[3] = envelopeAddresses(m.Sender())
	envelope[4] = envelopeAddresses(m.ReplyTo())
	envelope[5] = envelopeAddresses(m.To())
	envelope[6] = envelopeAddresses(m.Cc())
	envelope[7] = envelopeAddresses(m.Bcc())
	if ids := m.InReplyTo(); len(ids) > 0 {
		envelope[8] = "<" + ids[0] + ">"
	}
	if id := m.MessageID(); id != "" {
		envelope[9] = "<" + id + ">"
	}
	return envelope
}

// envelopeAddresses converts mailboxes to the IMAP address quads.
func envelopeAddresses(list *header.AddressList) interface{} {
	if list == nil {
		return nil
	}
	flat := list.Flat()
	if len(flat) == 0 {
		return nil
	}
	result := make([]interface{}, len(flat))
	for i, addr := range flat {
		mailbox, host := addr.Address, ""
		if at := strings.LastIndexByte(addr.Address, '@'); at >= 0 {
			mailbox, host = addr.Address[:at], addr.Address[at+1:]
		}
		var name interface{}
		if addr.Name != "" {
			name = addr.Name
		}
		var hostVal interface{}
		if host != "" {
			hostVal = host
		}
		result[i] = []interface{}{name, nil, mailbox, hostVal}
	}
	return result
}

// Serialize renders an envelope or body structure as the parenthesized
// IMAP wire form.
func Serialize(structure interface{}) string {
	return serializeValue(structure)
}

func serializeValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "NIL"
	case string:
		return fmt.Sprintf("\"%s\"", strings.ReplaceAll(v, "\"", "\\\""))
	case int:
		return strconv.Itoa(v)
	case []string:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = serializeValue(item)
		}
		return "(" + strings.Join(parts, " ") + ")"
	case []interface{}:
		if len(v) == 0 {
			return "NIL"
		}
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = serializeValue(item)
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return fmt.Sprintf("\"%v\"", v)
	}
}
