// Package codec serializes parsed messages: a flat document for JSON and
// BSON consumers, and the IMAP ENVELOPE / BODYSTRUCTURE renderings used by
// mailbox servers.
package codec

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/geoffreyhinton/mailparse_go/header"
	"github.com/geoffreyhinton/mailparse_go/message"
)

// Document is the serializable projection of a parsed message. The schema
// follows the data model directly; part payloads are included only for
// attachments, the body lists carrying decoded strings.
type Document struct {
	MessageID  string   `json:"messageId,omitempty" bson:"messageId,omitempty"`
	InReplyTo  []string `json:"inReplyTo,omitempty" bson:"inReplyTo,omitempty"`
	References []string `json:"references,omitempty" bson:"references,omitempty"`

	Subject    string `json:"subject,omitempty" bson:"subject,omitempty"`
	ThreadName string `json:"threadName,omitempty" bson:"threadName,omitempty"`
	Preview    string `json:"preview,omitempty" bson:"preview,omitempty"`

	From    *header.AddressList `json:"from,omitempty" bson:"from,omitempty"`
	Sender  *header.AddressList `json:"sender,omitempty" bson:"sender,omitempty"`
	ReplyTo *header.AddressList `json:"replyTo,omitempty" bson:"replyTo,omitempty"`
	To      *header.AddressList `json:"to,omitempty" bson:"to,omitempty"`
	Cc      *header.AddressList `json:"cc,omitempty" bson:"cc,omitempty"`
	Bcc     *header.AddressList `json:"bcc,omitempty" bson:"bcc,omitempty"`

	Date *time.Time `json:"date,omitempty" bson:"date,omitempty"`
	Size int        `json:"size" bson:"size"`

	Headers []HeaderDoc `json:"headers,omitempty" bson:"headers,omitempty"`
	Parts   []PartDoc   `json:"parts" bson:"parts"`

	TextBodies  []string        `json:"textBodies,omitempty" bson:"textBodies,omitempty"`
	HTMLBodies  []string        `json:"htmlBodies,omitempty" bson:"htmlBodies,omitempty"`
	Attachments []AttachmentDoc `json:"attachments,omitempty" bson:"attachments,omitempty"`
}

// HeaderDoc is one root header in wire order.
type HeaderDoc struct {
	Name  string `json:"name" bson:"name"`
	Value string `json:"value" bson:"value"`
}

// PartDoc describes one node of the part tree.
type PartDoc struct {
	ID          int    `json:"id" bson:"id"`
	Parent      int    `json:"parent" bson:"parent"`
	Kind        string `json:"kind" bson:"kind"`
	ContentType string `json:"contentType" bson:"contentType"`
	Disposition string `json:"disposition,omitempty" bson:"disposition,omitempty"`
	FileName    string `json:"fileName,omitempty" bson:"fileName,omitempty"`
	ContentID   string `json:"contentId,omitempty" bson:"contentId,omitempty"`
	RawStart    int    `json:"rawStart" bson:"rawStart"`
	RawEnd      int    `json:"rawEnd" bson:"rawEnd"`
	Size        int    `json:"size" bson:"size"`
	Children    []int  `json:"children,omitempty" bson:"children,omitempty"`
}

// AttachmentDoc is attachment metadata plus the decoded payload.
type AttachmentDoc struct {
	PartID           int    `json:"partId" bson:"partId"`
	FileName         string `json:"fileName,omitempty" bson:"fileName,omitempty"`
	ContentType      string `json:"contentType" bson:"contentType"`
	Disposition      string `json:"disposition,omitempty" bson:"disposition,omitempty"`
	TransferEncoding string `json:"transferEncoding,omitempty" bson:"transferEncoding,omitempty"`
	ContentID        string `json:"contentId,omitempty" bson:"contentId,omitempty"`
	Size             int    `json:"size" bson:"size"`
	Data             []byte `json:"data,omitempty" bson:"data,omitempty"`
}

// BuildDocument projects a parsed message onto the Document schema.
// withData includes decoded attachment payloads.
func BuildDocument(m *message.Message, withData bool) *Document {
	root := m.Root()
	doc := &Document{
		MessageID:  m.MessageID(),
		InReplyTo:  m.InReplyTo(),
		References: m.References(),
		Subject:    m.Subject(),
		ThreadName: m.ThreadName(),
		Preview:    m.Preview(),
		From:       m.From(),
		Sender:     m.Sender(),
		ReplyTo:    m.ReplyTo(),
		To:         m.To(),
		Cc:         m.Cc(),
		Bcc:        m.Bcc(),
		Size:       root.RawEnd - root.RawStart,
	}
	if dt := m.Date(); dt != nil {
		t := dt.Time()
		doc.Date = &t
	}
	for _, f := range root.Headers {
		if f.Name == "" {
			continue
		}
		doc.Headers = append(doc.Headers, HeaderDoc{Name: f.Name, Value: string(f.Raw)})
	}
	for _, p := range m.Parts {
		doc.Parts = append(doc.Parts, PartDoc{
			ID:          p.ID,
			Parent:      p.Parent,
			Kind:        p.Kind.String(),
			ContentType: p.ContentType().FullType(),
			Disposition: p.DispositionType(),
			FileName:    p.FileName(),
			ContentID:   p.ContentID(),
			RawStart:    p.RawStart,
			RawEnd:      p.RawEnd,
			Size:        p.Size(),
			Children:    p.Children,
		})
	}
	for i := 0; i < m.TextBodiesLen(); i++ {
		doc.TextBodies = append(doc.TextBodies, m.BodyText(i))
	}
	for i := 0; i < m.HTMLBodiesLen(); i++ {
		doc.HTMLBodies = append(doc.HTMLBodies, m.BodyHTML(i))
	}
	for i := 0; i < m.AttachmentsLen(); i++ {
		p := m.Attachment(i)
		att := AttachmentDoc{
			PartID:           p.ID,
			FileName:         p.FileName(),
			ContentType:      p.ContentType().FullType(),
			Disposition:      p.DispositionType(),
			TransferEncoding: p.MIME.TransferEncoding,
			ContentID:        p.ContentID(),
			Size:             p.Size(),
		}
		if withData {
			att.Data = p.Body()
		}
		doc.Attachments = append(doc.Attachments, att)
	}
	return doc
}

// MarshalJSON serializes the message document as JSON.
func MarshalJSON(m *message.Message) ([]byte, error) {
	return json.Marshal(BuildDocument(m, false))
}

// MarshalBSON serializes the message document in the compact binary form.
func MarshalBSON(m *message.Message) ([]byte, error) {
	return bson.Marshal(BuildDocument(m, false))
}

// UnmarshalJSON reads a Document back from JSON.
func UnmarshalJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UnmarshalBSON reads a Document back from BSON.
func UnmarshalBSON(data []byte) (*Document, error) {
	var doc Document
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
