package botpe

import (
	"context"
	"errors"
	"strings"
)

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string, previewURL bool) (*MessageResponse, error) {
	return c.SendMessage(ctx, MessageRequest{
		To:   to,
		Type: "text",
		Text: &Text{Body: body, PreviewURL: previewURL},
	})
}

// SendImage sends an image by media id or link.
func (c *Client) SendImage(ctx context.Context, to string, image Media) (*MessageResponse, error) {
	if err := image.validate(); err != nil {
		return nil, err
	}
	return c.SendMessage(ctx, MessageRequest{To: to, Type: "image", Image: &image})
}

// SendVideo sends a video by media id or link.
func (c *Client) SendVideo(ctx context.Context, to string, video Media) (*MessageResponse, error) {
	if err := video.validate(); err != nil {
		return nil, err
	}
	return c.SendMessage(ctx, MessageRequest{To: to, Type: "video", Video: &video})
}

// SendDocument sends a document, optionally with caption and filename.
func (c *Client) SendDocument(ctx context.Context, to string, document Media) (*MessageResponse, error) {
	if err := document.validate(); err != nil {
		return nil, err
	}
	return c.SendMessage(ctx, MessageRequest{To: to, Type: "document", Document: &document})
}

// SendAudio sends an audio clip. Captions are not supported for audio.
func (c *Client) SendAudio(ctx context.Context, to string, audio Media) (*MessageResponse, error) {
	if err := audio.validate(); err != nil {
		return nil, err
	}
	audio.Caption, audio.Filename = "", ""
	return c.SendMessage(ctx, MessageRequest{To: to, Type: "audio", Audio: &audio})
}

// SendSticker sends a sticker.
func (c *Client) SendSticker(ctx context.Context, to string, sticker Media) (*MessageResponse, error) {
	if err := sticker.validate(); err != nil {
		return nil, err
	}
	sticker.Caption, sticker.Filename = "", ""
	return c.SendMessage(ctx, MessageRequest{To: to, Type: "sticker", Sticker: &sticker})
}

// SendLocation sends a static location pin.
func (c *Client) SendLocation(ctx context.Context, to string, loc Location) (*MessageResponse, error) {
	return c.SendMessage(ctx, MessageRequest{To: to, Type: "location", Location: &loc})
}

// SendContacts shares one or more contact cards.
func (c *Client) SendContacts(ctx context.Context, to string, contacts []Contact) (*MessageResponse, error) {
	if len(contacts) == 0 {
		return nil, errors.New("botpe: at least one contact is required")
	}
	return c.SendMessage(ctx, MessageRequest{To: to, Type: "contacts", Contacts: contacts})
}

// SendList sends an interactive list message.
func (c *Client) SendList(ctx context.Context, to string, list ListMessage) (*MessageResponse, error) {
	if len(list.Sections) == 0 {
		return nil, errors.New("botpe: list requires at least one section")
	}
	in := &Interactive{
		Type: InteractiveList,
		Body: &Body{Text: list.Body},
		Action: Action{
			Button:   list.ButtonText,
			Sections: list.Sections,
		},
	}
	if list.Header != "" {
		in.Header = &Header{Type: "text", Text: list.Header}
	}
	if list.Footer != "" {
		in.Footer = &Footer{Text: list.Footer}
	}
	return c.sendInteractive(ctx, to, in)
}

// SendButtons sends reply buttons. A media header turns it into a buttons-with-media message.
func (c *Client) SendButtons(ctx context.Context, to string, msg ButtonsMessage) (*MessageResponse, error) {
	if len(msg.Buttons) == 0 {
		return nil, errors.New("botpe: at least one button is required")
	}
	buttons := make([]ReplyButton, 0, len(msg.Buttons))
	for _, b := range msg.Buttons {
		buttons = append(buttons, ReplyButton{Type: "reply", Reply: b})
	}
	in := &Interactive{
		Type:   InteractiveButton,
		Header: msg.Header,
		Body:   &Body{Text: msg.Body},
		Action: Action{Buttons: buttons},
	}
	if msg.Footer != "" {
		in.Footer = &Footer{Text: msg.Footer}
	}
	return c.sendInteractive(ctx, to, in)
}

// SendCatalog opens the business catalog.
func (c *Client) SendCatalog(ctx context.Context, to, body, footer, thumbnailRetailerID string) (*MessageResponse, error) {
	in := &Interactive{
		Type:   InteractiveCatalog,
		Action: Action{Name: InteractiveCatalog},
	}
	if body != "" {
		in.Body = &Body{Text: body}
	}
	if footer != "" {
		in.Footer = &Footer{Text: footer}
	}
	if thumbnailRetailerID != "" {
		in.Action.Parameters = CatalogParameters{ThumbnailProductRetailerID: thumbnailRetailerID}
	}
	return c.sendInteractive(ctx, to, in)
}

// SendLocationRequest asks the user to share their location.
func (c *Client) SendLocationRequest(ctx context.Context, to, body string) (*MessageResponse, error) {
	return c.sendInteractive(ctx, to, &Interactive{
		Type:   InteractiveLocationRequest,
		Body:   &Body{Text: body},
		Action: Action{Name: "send_location"},
	})
}

// SendCTAURL sends a message with a single URL button.
func (c *Client) SendCTAURL(ctx context.Context, to string, msg CTAURLMessage) (*MessageResponse, error) {
	if strings.TrimSpace(msg.URL) == "" || strings.TrimSpace(msg.DisplayText) == "" {
		return nil, errors.New("botpe: cta url and display text are required")
	}
	in := &Interactive{
		Type:   InteractiveCTAURL,
		Header: msg.Header,
		Body:   &Body{Text: msg.Body},
		Action: Action{
			Name:       InteractiveCTAURL,
			Parameters: CTAParameters{DisplayText: msg.DisplayText, URL: msg.URL},
		},
	}
	if msg.Footer != "" {
		in.Footer = &Footer{Text: msg.Footer}
	}
	return c.sendInteractive(ctx, to, in)
}

// SendVoiceCall sends a voice call request button. ttlMinutes and payload are optional.
func (c *Client) SendVoiceCall(ctx context.Context, to, body, displayText string, ttlMinutes int, payload string) (*MessageResponse, error) {
	return c.sendInteractive(ctx, to, &Interactive{
		Type: InteractiveVoiceCall,
		Body: &Body{Text: body},
		Action: Action{
			Name: InteractiveVoiceCall,
			Parameters: VoiceCallParameters{
				DisplayText: displayText,
				TTLMinutes:  ttlMinutes,
				Payload:     payload,
			},
		},
	})
}

func (c *Client) sendInteractive(ctx context.Context, to string, in *Interactive) (*MessageResponse, error) {
	return c.SendMessage(ctx, MessageRequest{To: to, Type: "interactive", Interactive: in})
}

func (m Media) validate() error {
	if strings.TrimSpace(m.ID) == "" && strings.TrimSpace(m.Link) == "" {
		return errors.New("botpe: media id or link is required")
	}
	return nil
}
