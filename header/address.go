package header

import (
	"strings"

	"github.com/geoffreyhinton/mailparse_go/rfc2047"
)

// Addr is a single mailbox. Empty strings stand for absent fields: a bare
// address has no Name, and a comment-only pseudo entry has no Address.
type Addr struct {
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Address string `json:"address,omitempty" bson:"address,omitempty"`
}

// Group is a named list of mailboxes.
type Group struct {
	Name      string `json:"name,omitempty" bson:"name,omitempty"`
	Addresses []Addr `json:"addresses" bson:"addresses"`
}

// AddressList is the parsed form of an address header. At most one of the
// two slices is set: Groups whenever any group syntax appeared at the top
// level (loose addresses are then wrapped in anonymous groups), Addresses
// otherwise. A value with no mailbox and no group leaves both nil.
type AddressList struct {
	Addresses []Addr  `json:"addresses,omitempty" bson:"addresses,omitempty"`
	Groups    []Group `json:"groups,omitempty" bson:"groups,omitempty"`
}

// IsGroups reports whether the list is in group form.
func (l *AddressList) IsGroups() bool { return l.Groups != nil }

// Flat returns every mailbox in order, regardless of form. Comment-only
// pseudo entries (no address) are skipped.
func (l *AddressList) Flat() []Addr {
	var out []Addr
	if l.Groups == nil {
		for _, a := range l.Addresses {
			if a.Address != "" {
				out = append(out, a)
			}
		}
		return out
	}
	for _, g := range l.Groups {
		for _, a := range g.Addresses {
			if a.Address != "" {
				out = append(out, a)
			}
		}
	}
	return out
}

// First returns the first mailbox with an address, or a zero Addr.
func (l *AddressList) First() Addr {
	flat := l.Flat()
	if len(flat) == 0 {
		return Addr{}
	}
	return flat[0]
}

// addrParser consumes a token stream and produces an AddressList.
type addrParser struct {
	tk *Tokenizer

	sawGroup        bool
	groups          []Group  // parsed groups and anonymous runs, in order
	run             []Addr   // loose addresses since the last group
	flat            []Addr   // every loose address, for the no-group result
	pendingComments []string // comments lifted out of an angle-addr
}

// ParseAddressList parses an address header value. The grammar is the
// tolerant superset described by RFC 5322 with obsolete forms: groups,
// name-addr, bare addr-specs, comments merging into display names, and
// stray material degrading to pseudo entries rather than errors.
func ParseAddressList(tk *Tokenizer) AddressList {
	p := &addrParser{tk: tk}
	p.parse()
	if !p.sawGroup {
		return AddressList{Addresses: p.flat}
	}
	p.flushRun()
	return AddressList{Groups: p.groups}
}

func (p *addrParser) parse() {
	for {
		switch p.tk.Peek().Kind {
		case TEOF:
			return
		case TSpecial:
			if c := p.tk.Peek().Ch; c == ',' || c == ';' {
				p.tk.Next()
				continue
			}
		}
		p.parseElement(false)
	}
}

// flushRun turns the pending loose addresses into an anonymous group.
func (p *addrParser) flushRun() {
	if len(p.run) > 0 {
		p.groups = append(p.groups, Group{Addresses: p.run})
		p.run = nil
	}
}

// collector gathers the tokens of one mailbox or group prefix.
type collector struct {
	phrase   []Token  // atoms, quoted strings, encoded words, dots
	comments []string // decoded comment texts, in order
	angle    string   // addr-spec from <...>, once seen
	hasAngle bool
	first    int // byte offset of the first non-comment token, -1 if none
	last     int // byte offset past the last non-comment token
	spans    [][2]int // comment spans inside [first,last), to cut out
}

func newCollector() collector { return collector{first: -1} }

func (c *collector) addComment(tok Token) {
	if strings.TrimSpace(tok.Text) != "" {
		c.comments = append(c.comments, strings.TrimSpace(tok.Text))
	}
	if c.first >= 0 {
		c.spans = append(c.spans, [2]int{tok.Start, tok.End})
	}
}

func (c *collector) addToken(tok Token) {
	c.phrase = append(c.phrase, tok)
	if c.first < 0 {
		c.first = tok.Start
	}
	c.last = tok.End
}

// parseElement parses one address (group or mailbox) until an unquoted ','
// or ';' at the current level. inGroup suppresses nested group starts.
func (p *addrParser) parseElement(inGroup bool) {
	col := newCollector()
	for {
		tok := p.tk.Peek()
		switch tok.Kind {
		case TEOF:
			p.finishMailbox(col, inGroup)
			return
		case TComment:
			p.tk.Next()
			col.addComment(tok)
		case TSpecial:
			switch tok.Ch {
			case ',':
				p.tk.Next()
				p.finishMailbox(col, inGroup)
				return
			case ';':
				if inGroup {
					// leave the terminator for the group loop
					p.finishMailbox(col, inGroup)
					return
				}
				p.tk.Next()
				p.finishMailbox(col, inGroup)
				return
			case ':':
				if !inGroup {
					p.tk.Next()
					p.parseGroup(col)
					return
				}
				p.tk.Next()
				col.addToken(tok)
			case '<':
				p.tk.Next()
				col.angle, col.hasAngle = p.parseAngle(), true
			default:
				p.tk.Next()
				col.addToken(tok)
			}
		default:
			p.tk.Next()
			col.addToken(tok)
		}
	}
}

// parseGroup parses the mailbox list of a group whose display name tokens
// are already collected.
func (p *addrParser) parseGroup(nameCol collector) {
	p.sawGroup = true
	p.flushRun()

	g := Group{
		Name:      mergeName(phraseText(p.tk, nameCol.phrase), nameCol.comments),
		Addresses: []Addr{},
	}
	for {
		tok := p.tk.Peek()
		if tok.Kind == TEOF {
			break
		}
		if tok.Kind == TSpecial && tok.Ch == ';' {
			p.tk.Next()
			break
		}
		if tok.Kind == TSpecial && tok.Ch == ',' {
			p.tk.Next()
			continue
		}
		before := len(p.run)
		p.parseElement(true)
		// parseElement in group mode appends to run; move to the group.
		g.Addresses = append(g.Addresses, p.run[before:]...)
		p.run = p.run[:before]
	}
	p.groups = append(p.groups, g)
}

// parseAngle consumes tokens up to '>' and reconstructs the addr-spec from
// the raw bytes, cutting out comments (their texts are queued in
// pendingComments, which finishMailbox merges into the display name) and
// trimming outer whitespace.
func (p *addrParser) parseAngle() string {
	start := -1
	end := -1
	var cuts [][2]int
	for {
		tok := p.tk.Peek()
		if tok.Kind == TEOF {
			break
		}
		if tok.Kind == TSpecial && tok.Ch == '>' {
			p.tk.Next()
			break
		}
		p.tk.Next()
		if tok.Kind == TComment {
			cuts = append(cuts, [2]int{tok.Start, tok.End})
			p.pendingComments = append(p.pendingComments, strings.TrimSpace(tok.Text))
		}
		if start < 0 {
			start = tok.Start
		}
		end = tok.End
	}
	if start < 0 {
		return ""
	}
	return cutSpans(p.tk.Buf(), start, end, cuts)
}

// finishMailbox turns the collected tokens into an Addr and appends it to
// the current run.
func (p *addrParser) finishMailbox(col collector, inGroup bool) {
	comments := append(col.comments, p.pendingComments...)
	p.pendingComments = nil

	if !col.hasAngle && col.first < 0 {
		// Nothing but comments (or nothing at all). A trailing comment
		// becomes a pseudo entry carrying only a name.
		if len(comments) > 0 {
			p.run = append(p.run, Addr{Name: strings.Join(comments, " ")})
			if !inGroup {
				p.flat = append(p.flat, Addr{Name: strings.Join(comments, " ")})
			}
		}
		return
	}

	var a Addr
	if col.hasAngle {
		a.Address = col.angle
		a.Name = mergeName(phraseText(p.tk, col.phrase), comments)
	} else if qs, ok := singleQuotedString(col.phrase); ok {
		// A quoted display-name with no angle form. When it looks like an
		// addr-spec both fields carry it, mirroring observed behavior.
		a.Name = mergeName(qs, comments)
		if strings.ContainsRune(qs, '@') {
			a.Address = qs
		}
	} else {
		raw := cutSpans(p.tk.Buf(), col.first, col.last, col.spans)
		a.Address = raw
		a.Name = mergeName("", comments)
	}
	p.run = append(p.run, a)
	if !inGroup {
		p.flat = append(p.flat, a)
	}
}

// singleQuotedString reports whether the phrase is exactly one
// quoted-string token and returns its text.
func singleQuotedString(phrase []Token) (string, bool) {
	if len(phrase) == 1 && phrase[0].Kind == TQuotedString {
		return phrase[0].Text, true
	}
	return "", false
}

// phraseText joins display-name tokens: words separated by single spaces,
// dots attached to the preceding word, adjacent encoded-words collapsed
// per RFC 2047.
func phraseText(tk *Tokenizer, phrase []Token) string {
	var parts []string
	i := 0
	for i < len(phrase) {
		tok := phrase[i]
		switch tok.Kind {
		case TSpecial:
			if tok.Ch == '.' && len(parts) > 0 {
				parts[len(parts)-1] += "."
			}
			i++
		case TEncodedWord:
			var words []rfc2047.Word
			for i < len(phrase) && phrase[i].Kind == TEncodedWord {
				words = append(words, phrase[i].Word)
				i++
			}
			s, _ := tk.dec.DecodeRun(words)
			parts = append(parts, s)
		default:
			if len(parts) > 0 && !tok.WSBefore && strings.HasSuffix(parts[len(parts)-1], ".") {
				parts[len(parts)-1] += tok.Text
			} else {
				parts = append(parts, tok.Text)
			}
			i++
		}
	}
	return strings.Join(parts, " ")
}

// mergeName merges comment texts into a display name: appended in
// parentheses when a name exists, joined bare otherwise.
func mergeName(name string, comments []string) string {
	if len(comments) == 0 {
		return name
	}
	if name == "" {
		return strings.Join(comments, " ")
	}
	var b strings.Builder
	b.WriteString(name)
	for _, c := range comments {
		b.WriteString(" (")
		b.WriteString(c)
		b.WriteByte(')')
	}
	return b.String()
}

// String renders the mailbox in RFC 5322 form, quoting the display name
// when it is not a plain phrase.
func (a Addr) String() string {
	if a.Address == "" {
		if a.Name == "" {
			return ""
		}
		return "(" + a.Name + ")"
	}
	if a.Name == "" {
		return "<" + a.Address + ">"
	}
	return quotePhrase(a.Name) + " <" + a.Address + ">"
}

// String renders the group in RFC 5322 form.
func (g Group) String() string {
	var b strings.Builder
	if g.Name != "" {
		b.WriteString(quotePhrase(g.Name))
	}
	b.WriteString(": ")
	for i, a := range g.Addresses {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteString(";")
	return b.String()
}

// String renders the list in RFC 5322 form, suitable for reparsing.
func (l AddressList) String() string {
	var parts []string
	if l.Groups != nil {
		for _, g := range l.Groups {
			parts = append(parts, g.String())
		}
	} else {
		for _, a := range l.Addresses {
			parts = append(parts, a.String())
		}
	}
	return strings.Join(parts, ", ")
}

// quotePhrase quotes a display name unless every word is a plain atom.
func quotePhrase(s string) string {
	plain := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c >= 0x80 ||
			c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			strings.IndexByte("!#$%&'*+-/=?^_`{|}~", c) >= 0 {
			continue
		}
		plain = false
		break
	}
	if plain {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

// cutSpans returns buf[start:end] with the given spans removed and outer
// whitespace trimmed.
func cutSpans(buf []byte, start, end int, spans [][2]int) string {
	var b strings.Builder
	pos := start
	for _, sp := range spans {
		if sp[0] < pos || sp[1] > end {
			continue
		}
		b.Write(buf[pos:sp[0]])
		pos = sp[1]
	}
	b.Write(buf[pos:end])
	return strings.TrimSpace(b.String())
}
