package webhook

import "encoding/json"

// Envelope is the nested provider notification: entry[].changes[].value.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the changes for one business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is a single notification for one phone number.
type Change struct {
	Field string       `json:"field"`
	Value *ChangeValue `json:"value"`
}

// ChangeValue carries the messages and statuses for one phone number.
// Items stay raw so one malformed item does not fail its siblings.
type ChangeValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         Metadata          `json:"metadata"`
	Contacts         []ProfileContact  `json:"contacts"`
	Messages         []json.RawMessage `json:"messages"`
	Statuses         []json.RawMessage `json:"statuses"`
}

// Metadata identifies the business number that received the notification.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// ProfileContact is the sender profile delivered next to messages.
type ProfileContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is an inbound message item. The flat test shape uses the same
// fields at the top level plus event_type.
type Message struct {
	EventType   string          `json:"event_type,omitempty"`
	ID          string          `json:"id"`
	From        string          `json:"from"`
	To          string          `json:"to,omitempty"`
	Timestamp   json.RawMessage `json:"timestamp,omitempty"`
	Type        string          `json:"type"`
	Text        *TextBody       `json:"text,omitempty"`
	Image       *Media          `json:"image,omitempty"`
	Video       *Media          `json:"video,omitempty"`
	Document    *Media          `json:"document,omitempty"`
	Audio       *Media          `json:"audio,omitempty"`
	Sticker     *Media          `json:"sticker,omitempty"`
	Location    *Location       `json:"location,omitempty"`
	Contacts    json.RawMessage `json:"contacts,omitempty"`
	Interactive *Interactive    `json:"interactive,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

// Media is an inbound media attachment reference.
type Media struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// Interactive is the reply to a list or button prompt.
type Interactive struct {
	Type        string      `json:"type"`
	ButtonReply *ReplyValue `json:"button_reply,omitempty"`
	ListReply   *ReplyValue `json:"list_reply,omitempty"`

	raw json.RawMessage
}

func (i *Interactive) UnmarshalJSON(data []byte) error {
	type plain Interactive
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = Interactive(p)
	i.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Data returns the interactive object as delivered, including reply types
// this package does not model (nfm_reply and the like).
func (i *Interactive) Data() json.RawMessage {
	if i == nil {
		return nil
	}
	if len(i.raw) > 0 {
		return i.raw
	}
	data, _ := json.Marshal(i)
	return data
}

type ReplyValue struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Status is a delivery status update for an outbound message.
type Status struct {
	EventType   string          `json:"event_type,omitempty"`
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Timestamp   json.RawMessage `json:"timestamp,omitempty"`
	RecipientID string          `json:"recipient_id,omitempty"`
	To          string          `json:"to,omitempty"`
	Error       *StatusError    `json:"error,omitempty"`
	Errors      []StatusError   `json:"errors,omitempty"`
}

type StatusError struct {
	Code    int    `json:"code,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorMessage returns the first error text carried by the status, if any.
func (s Status) ErrorMessage() string {
	if s.Error != nil && s.Error.Message != "" {
		return s.Error.Message
	}
	for _, e := range s.Errors {
		if e.Message != "" {
			return e.Message
		}
		if e.Title != "" {
			return e.Title
		}
	}
	return ""
}

// reply returns the selection carried by an interactive item.
func (i *Interactive) reply() (kind string, value *ReplyValue) {
	if i == nil {
		return "", nil
	}
	switch {
	case i.Type == "list_reply" && i.ListReply != nil:
		return "list_reply", i.ListReply
	case i.Type == "button_reply" && i.ButtonReply != nil:
		return "button_reply", i.ButtonReply
	case i.ListReply != nil:
		return "list_reply", i.ListReply
	case i.ButtonReply != nil:
		return "button_reply", i.ButtonReply
	}
	return i.Type, nil
}

// inferType picks the message type from the payload field present.
func (m *Message) inferType() string {
	switch {
	case m.Interactive != nil:
		return "interactive"
	case m.Text != nil:
		return "text"
	case m.Image != nil:
		return "image"
	case m.Video != nil:
		return "video"
	case m.Document != nil:
		return "document"
	case m.Audio != nil:
		return "audio"
	case m.Sticker != nil:
		return "sticker"
	case m.Location != nil:
		return "location"
	case len(m.Contacts) > 0 && string(m.Contacts) != "null":
		return "contacts"
	}
	return "unknown"
}

func lookupName(contacts []ProfileContact, from string) string {
	for _, c := range contacts {
		if c.WaID == from {
			return c.Profile.Name
		}
	}
	return ""
}
