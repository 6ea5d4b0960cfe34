package core

import "encoding/json"

// AttachmentKind tags how an Attachment's bytes are reachable.
type AttachmentKind string

const (
	AttachmentLocal  AttachmentKind = "local"
	AttachmentRemote AttachmentKind = "remote"
	AttachmentMemory AttachmentKind = "memory"
)

// Attachment is a named binary resource: a local path, a remote URL, or
// in-memory bytes, with optional MIME type and filename. Transport (actually
// fetching/staging the bytes) is a collaborator outside this module; the
// core only carries the handle.
type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	Path     string         `json:"path,omitempty"`
	URL      string         `json:"url,omitempty"`
	Data     []byte         `json:"data,omitempty"`
	MIME     string         `json:"mime,omitempty"`
	Filename string         `json:"filename,omitempty"`
}

// ParticipantDescriptor is a directory entry for a dialogue participant,
// carried as a Payload content item so an agent can be told who else is
// present without a full Persona.
type ParticipantDescriptor struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description,omitempty"`
}

// Message is a dialogue turn with attribution, carried as a Payload content item.
type Message struct {
	Speaker  Speaker                `json:"speaker"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// contentKind tags which field of contentItem is populated.
type contentKind int

const (
	contentText contentKind = iota
	contentMessage
	contentAttachment
	contentParticipants
)

// contentItem is the tagged union backing Payload's ordered content sequence.
type contentItem struct {
	kind         contentKind
	text         string
	message      Message
	attachment   Attachment
	participants []ParticipantDescriptor
}

// Payload is an immutable, cheaply cloneable ordered sequence of content
// items. Cloning never deep-copies the backing slice; Clone shares it.
type Payload struct {
	items []contentItem
}

// NewPayload returns an empty payload.
func NewPayload() Payload {
	return Payload{}
}

// WithText returns a new payload with an anonymous Text item appended.
func (p Payload) WithText(text string) Payload {
	return Payload{items: append(copyItems(p.items), contentItem{kind: contentText, text: text})}
}

// WithMessage returns a new payload with a Message item appended.
func (p Payload) WithMessage(msg Message) Payload {
	return Payload{items: append(copyItems(p.items), contentItem{kind: contentMessage, message: msg})}
}

// WithAttachment returns a new payload with an Attachment item appended.
func (p Payload) WithAttachment(a Attachment) Payload {
	return Payload{items: append(copyItems(p.items), contentItem{kind: contentAttachment, attachment: a})}
}

// WithParticipants returns a new payload with a Participants directory item appended.
func (p Payload) WithParticipants(list []ParticipantDescriptor) Payload {
	return Payload{items: append(copyItems(p.items), contentItem{kind: contentParticipants, participants: list})}
}

// copyItems gives WithX value semantics for the exported API while letting
// Clone (below) share the backing array when no mutation is intended.
func copyItems(items []contentItem) []contentItem {
	out := make([]contentItem, len(items))
	copy(out, items)
	return out
}

// Clone returns a shallow copy sharing the same backing array; per the data
// model's ownership rule, cloning a Payload never deep-copies content.
func (p Payload) Clone() Payload {
	return Payload{items: p.items}
}

// Len returns the number of content items, in order.
func (p Payload) Len() int { return len(p.items) }

// ToText extracts only Text items, joined with "\n", in order. Lossless
// within the Text variant, total-loss across variants.
func (p Payload) ToText() string {
	var parts []string
	for _, it := range p.items {
		if it.kind == contentText {
			parts = append(parts, it.text)
		}
	}
	return joinLines(parts)
}

func joinLines(parts []string) string {
	out := ""
	for i, s := range parts {
		if i > 0 {
			out += "\n"
		}
		out += s
	}
	return out
}

// ToMessages extracts only Message items, in order.
func (p Payload) ToMessages() []Message {
	var out []Message
	for _, it := range p.items {
		if it.kind == contentMessage {
			out = append(out, it.message)
		}
	}
	return out
}

// Attachments extracts only Attachment items, in order.
func (p Payload) Attachments() []Attachment {
	var out []Attachment
	for _, it := range p.items {
		if it.kind == contentAttachment {
			out = append(out, it.attachment)
		}
	}
	return out
}

// HasAttachments reports whether Attachments() would be non-empty.
func (p Payload) HasAttachments() bool {
	for _, it := range p.items {
		if it.kind == contentAttachment {
			return true
		}
	}
	return false
}

// Participants extracts only Participants directory items, flattened in order.
func (p Payload) Participants() []ParticipantDescriptor {
	var out []ParticipantDescriptor
	for _, it := range p.items {
		if it.kind == contentParticipants {
			out = append(out, it.participants...)
		}
	}
	return out
}

// payloadItemJSON is the wire shape used by MarshalJSON/UnmarshalJSON below.
type payloadItemJSON struct {
	Type         string                  `json:"type"`
	Text         string                  `json:"text,omitempty"`
	Message      *Message                `json:"message,omitempty"`
	Attachment   *Attachment             `json:"attachment,omitempty"`
	Participants []ParticipantDescriptor `json:"participants,omitempty"`
}

// MarshalJSON renders the payload as an ordered array of tagged content items.
func (p Payload) MarshalJSON() ([]byte, error) {
	out := make([]payloadItemJSON, 0, len(p.items))
	for _, it := range p.items {
		switch it.kind {
		case contentText:
			out = append(out, payloadItemJSON{Type: "text", Text: it.text})
		case contentMessage:
			m := it.message
			out = append(out, payloadItemJSON{Type: "message", Message: &m})
		case contentAttachment:
			a := it.attachment
			out = append(out, payloadItemJSON{Type: "attachment", Attachment: &a})
		case contentParticipants:
			out = append(out, payloadItemJSON{Type: "participants", Participants: it.participants})
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reconstructs a payload from its MarshalJSON form.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw []payloadItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	items := make([]contentItem, 0, len(raw))
	for _, r := range raw {
		switch r.Type {
		case "text":
			items = append(items, contentItem{kind: contentText, text: r.Text})
		case "message":
			if r.Message != nil {
				items = append(items, contentItem{kind: contentMessage, message: *r.Message})
			}
		case "attachment":
			if r.Attachment != nil {
				items = append(items, contentItem{kind: contentAttachment, attachment: *r.Attachment})
			}
		case "participants":
			items = append(items, contentItem{kind: contentParticipants, participants: r.Participants})
		}
	}
	p.items = items
	return nil
}
