package message

import "strings"

// classify flattens the part tree into the text body, HTML body and
// attachment lists following the RFC 8621 4.1.4 rules: depth-first order,
// multipart/alternative choosing per-list, inline media staying visible,
// and one-sided alternatives mirrored so both views exist.
func (m *Message) classify() {
	if len(m.Parts) == 0 {
		return
	}
	m.classifyPart(0, false)
}

func (m *Message) classifyPart(id int, inAlternative bool) {
	p := m.Parts[id]
	switch p.Kind {
	case KindMultipart:
		sub := p.ContentType().Subtype
		alt := sub == "alternative"
		textBefore, htmlBefore := len(m.TextBodyIDs), len(m.HTMLBodyIDs)
		for _, c := range p.Children {
			m.classifyPart(c, inAlternative || alt)
		}
		if alt {
			// Cross-feed: when only one side of the alternative produced
			// entries, mirror them so consumers always see both views.
			// The conversion itself happens lazily in BodyText/BodyHTML.
			textAdded := m.TextBodyIDs[textBefore:]
			htmlAdded := m.HTMLBodyIDs[htmlBefore:]
			if len(textAdded) > 0 && len(htmlAdded) == 0 {
				m.HTMLBodyIDs = append(m.HTMLBodyIDs, textAdded...)
			} else if len(htmlAdded) > 0 && len(textAdded) == 0 {
				m.TextBodyIDs = append(m.TextBodyIDs, htmlAdded...)
			}
		}
	case KindMessage:
		// Nested messages surface as attachments; their content is
		// reachable through Part.Message.
		m.AttachmentIDs = append(m.AttachmentIDs, id)
	default:
		if !m.isInlineCandidate(p) {
			m.AttachmentIDs = append(m.AttachmentIDs, id)
			return
		}
		switch p.Kind {
		case KindText:
			m.TextBodyIDs = append(m.TextBodyIDs, id)
		case KindHTML:
			m.HTMLBodyIDs = append(m.HTMLBodyIDs, id)
		default:
			// Inline media stays visible to clients as an attachment.
			m.AttachmentIDs = append(m.AttachmentIDs, id)
		}
	}
}

// isInlineCandidate applies the leaf rules: the disposition must not be
// attachment, the media type must be text/plain, text/html or inline
// media, and the part must either open its container or sit in a
// container that is not multipart/related while being media or nameless.
func (m *Message) isInlineCandidate(p *Part) bool {
	if p.DispositionType() == "attachment" {
		return false
	}
	ft := p.ContentType().FullType()
	media := strings.HasPrefix(ft, "image/") ||
		strings.HasPrefix(ft, "audio/") ||
		strings.HasPrefix(ft, "video/")
	if ft != "text/plain" && ft != "text/html" && !media {
		return false
	}
	if m.isFirstChild(p) {
		return true
	}
	if m.parentSubtype(p) == "related" {
		return false
	}
	return media || p.FileName() == ""
}

// isFirstChild reports whether p opens its container (or is the root).
func (m *Message) isFirstChild(p *Part) bool {
	if p.Parent < 0 {
		return true
	}
	parent := m.Parts[p.Parent]
	return len(parent.Children) > 0 && parent.Children[0] == p.ID
}

// parentSubtype returns the multipart subtype of the direct container.
func (m *Message) parentSubtype(p *Part) string {
	if p.Parent < 0 {
		return ""
	}
	return m.Parts[p.Parent].ContentType().Subtype
}
