package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/botpe-relay/internal/accounts"
	"github.com/wolfman30/botpe-relay/internal/events"
)

// ErrUnrecognized is returned for bodies that match neither wire shape.
var ErrUnrecognized = errors.New("webhook: unrecognized payload shape")

// Item is one normalized webhook item plus the wire value it came from.
type Item struct {
	Event   events.Inbound
	Message *Message
	Status  *Status
}

// Batch is the result of normalizing one webhook body. Skipped holds the
// per-item failures; the remaining items are still dispatched.
type Batch struct {
	Items   []Item
	Skipped []error
}

var knownMessageTypes = map[string]bool{
	"text": true, "image": true, "video": true, "document": true, "audio": true,
	"sticker": true, "location": true, "contacts": true, "interactive": true,
	"button": true, "reaction": true, "order": true, "system": true, "unsupported": true,
}

type shapeProbe struct {
	Entry     json.RawMessage `json:"entry"`
	EventType string          `json:"event_type"`
	Type      string          `json:"type"`
	From      string          `json:"from"`
}

// Normalize turns a webhook body into canonical items. routeAccount is the
// account bound to the endpoint the body arrived on.
func Normalize(body []byte, routeAccount string, reg *accounts.Registry, now time.Time) (Batch, error) {
	var probe shapeProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		return Batch{}, fmt.Errorf("webhook: decode body: %w", err)
	}
	if hasEntries(probe.Entry) {
		return normalizeEnvelope(body, routeAccount, reg, now)
	}
	return normalizeFlat(body, probe, routeAccount, reg, now)
}

func hasEntries(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "[")
}

func normalizeEnvelope(body []byte, routeAccount string, reg *accounts.Registry, now time.Time) (Batch, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Batch{}, fmt.Errorf("webhook: decode envelope: %w", err)
	}
	var batch Batch
	for ei, entry := range env.Entry {
		for ci, change := range entry.Changes {
			value := change.Value
			if value == nil {
				continue
			}
			to := value.Metadata.PhoneNumberID
			account := resolveAccount(reg, to, routeAccount)
			for mi, raw := range value.Messages {
				var msg Message
				if err := json.Unmarshal(raw, &msg); err != nil {
					batch.Skipped = append(batch.Skipped, fmt.Errorf("entry %d change %d message %d: %w", ei, ci, mi, err))
					continue
				}
				msg.To = to
				name := lookupName(value.Contacts, msg.From)
				item, err := messageItem(&msg, raw, account, name, now)
				if err != nil {
					batch.Skipped = append(batch.Skipped, fmt.Errorf("entry %d change %d message %d: %w", ei, ci, mi, err))
					continue
				}
				batch.Items = append(batch.Items, item)
			}
			for si, raw := range value.Statuses {
				var st Status
				if err := json.Unmarshal(raw, &st); err != nil {
					batch.Skipped = append(batch.Skipped, fmt.Errorf("entry %d change %d status %d: %w", ei, ci, si, err))
					continue
				}
				item, err := statusItem(&st, raw, account, to, now)
				if err != nil {
					batch.Skipped = append(batch.Skipped, fmt.Errorf("entry %d change %d status %d: %w", ei, ci, si, err))
					continue
				}
				batch.Items = append(batch.Items, item)
			}
		}
	}
	return batch, nil
}

func normalizeFlat(body []byte, probe shapeProbe, routeAccount string, reg *accounts.Registry, now time.Time) (Batch, error) {
	kind := strings.ToLower(strings.TrimSpace(probe.EventType))
	if kind == "" {
		kind = strings.ToLower(strings.TrimSpace(probe.Type))
		// A bare message with no event kind, e.g. {"from":..,"type":"text"}.
		if knownMessageTypes[kind] && kind != "interactive" && probe.From != "" {
			kind = "message"
		}
	}

	switch kind {
	case "message", "messages", "interactive":
		var msg Message
		if err := json.Unmarshal(body, &msg); err != nil {
			return Batch{}, fmt.Errorf("webhook: decode message: %w", err)
		}
		msgType := strings.ToLower(strings.TrimSpace(msg.Type))
		if kind == "interactive" {
			msgType = "interactive"
		} else if !knownMessageTypes[msgType] {
			msgType = msg.inferType()
		}
		msg.Type = msgType
		account := resolveAccount(reg, msg.To, routeAccount)
		var profiles []ProfileContact
		if msgType != "contacts" {
			_ = json.Unmarshal(msg.Contacts, &profiles)
		}
		item, err := messageItem(&msg, json.RawMessage(body), account, lookupName(profiles, msg.From), now)
		if err != nil {
			return Batch{Skipped: []error{err}}, nil
		}
		return Batch{Items: []Item{item}}, nil
	case "status", "statuses", "message_status":
		var st Status
		if err := json.Unmarshal(body, &st); err != nil {
			return Batch{}, fmt.Errorf("webhook: decode status: %w", err)
		}
		account := resolveAccount(reg, st.To, routeAccount)
		item, err := statusItem(&st, json.RawMessage(body), account, st.To, now)
		if err != nil {
			return Batch{Skipped: []error{err}}, nil
		}
		return Batch{Items: []Item{item}}, nil
	}
	return Batch{}, fmt.Errorf("%w: event type %q", ErrUnrecognized, kind)
}

func messageItem(msg *Message, raw json.RawMessage, account, contactName string, now time.Time) (Item, error) {
	if strings.TrimSpace(msg.From) == "" {
		return Item{}, errors.New("message has no sender")
	}
	if msg.Type == "" {
		msg.Type = msg.inferType()
	}
	evt := events.Inbound{
		ID:          msg.ID,
		Account:     account,
		From:        msg.From,
		To:          msg.To,
		Kind:        events.KindMessage,
		Type:        msg.Type,
		Timestamp:   events.NormalizeTimestamp(msg.Timestamp, now),
		ContactName: contactName,
		Payload:     append(json.RawMessage(nil), raw...),
	}
	switch msg.Type {
	case "interactive":
		evt.Kind = events.KindInteractive
		kind, value := msg.Interactive.reply()
		evt.Reply = &events.Reply{Kind: kind}
		if value != nil {
			evt.Reply.ID = value.ID
			evt.Reply.Title = value.Title
		}
	case "text":
		if msg.Text != nil {
			evt.Text = msg.Text.Body
		}
	case "location":
		if msg.Location != nil {
			evt.Location = &events.Coordinates{
				Latitude:  msg.Location.Latitude,
				Longitude: msg.Location.Longitude,
				Name:      msg.Location.Name,
				Address:   msg.Location.Address,
			}
		}
	}
	return Item{Event: evt, Message: msg}, nil
}

func statusItem(st *Status, raw json.RawMessage, account, to string, now time.Time) (Item, error) {
	if strings.TrimSpace(st.ID) == "" {
		return Item{}, errors.New("status has no message id")
	}
	evt := events.Inbound{
		ID:           st.ID,
		Account:      account,
		From:         st.RecipientID,
		To:           to,
		Kind:         events.KindStatus,
		Type:         "status",
		Timestamp:    events.NormalizeTimestamp(st.Timestamp, now),
		Status:       st.Status,
		ErrorMessage: st.ErrorMessage(),
		Payload:      append(json.RawMessage(nil), raw...),
	}
	return Item{Event: evt, Status: st}, nil
}

func resolveAccount(reg *accounts.Registry, to, routeAccount string) string {
	if acct, err := reg.Resolve(to, routeAccount); err == nil {
		return acct.ID
	}
	return routeAccount
}
