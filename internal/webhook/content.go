package webhook

import (
	"encoding/json"
	"strings"
)

const unknownContact = "Unknown"

// Content projects a message into the JSON document stored with it.
func Content(msg *Message, raw json.RawMessage, contactName string) json.RawMessage {
	content := map[string]any{}
	switch msg.Type {
	case "text":
		if msg.Text != nil {
			content["text"] = msg.Text.Body
		}
	case "image":
		mediaFields(content, msg.Image, true, false)
	case "video":
		mediaFields(content, msg.Video, true, false)
	case "document":
		mediaFields(content, msg.Document, true, true)
	case "audio":
		mediaFields(content, msg.Audio, false, false)
	case "sticker":
		mediaFields(content, msg.Sticker, false, false)
	case "location":
		if loc := msg.Location; loc != nil {
			content["latitude"] = loc.Latitude
			content["longitude"] = loc.Longitude
			setString(content, "locationName", loc.Name)
			setString(content, "address", loc.Address)
		}
	case "contacts":
		if len(msg.Contacts) > 0 {
			content["contacts"] = msg.Contacts
		}
	default:
		if len(raw) > 0 {
			content["rawData"] = raw
		}
	}

	name := strings.TrimSpace(contactName)
	if name == "" {
		name = unknownContact
	}
	content["contactName"] = name

	out, err := json.Marshal(content)
	if err != nil {
		return json.RawMessage(`{"contactName":"` + unknownContact + `"}`)
	}
	return out
}

func mediaFields(content map[string]any, m *Media, caption, filename bool) {
	if m == nil {
		return
	}
	setString(content, "id", m.ID)
	setString(content, "mimeType", m.MimeType)
	setString(content, "sha256", m.SHA256)
	if caption {
		setString(content, "caption", m.Caption)
	}
	if filename {
		setString(content, "filename", m.Filename)
	}
}

func setString(content map[string]any, key, value string) {
	if value != "" {
		content[key] = value
	}
}
