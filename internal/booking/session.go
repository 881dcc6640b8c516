package booking

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/botpe-relay/internal/events"
)

// PromptKind tags the last prompt sent so invalid input can be re-prompted in kind.
type PromptKind string

const (
	PromptList            PromptKind = "list"
	PromptLocationRequest PromptKind = "location_request"
	PromptCTA             PromptKind = "cta_url"
)

// Session is the in-progress booking conversation for one user.
type Session struct {
	Identity    string `json:"identity"`
	AccountID   string `json:"account_id"`
	Stage       Stage  `json:"stage"`
	DisplayName string `json:"display_name"`
	FirstName   string `json:"first_name"`
	// Selections is keyed by the Selection* constants; each key is written once.
	Selections     map[string]string   `json:"selections"`
	Location       *events.Coordinates `json:"location,omitempty"`
	LastPromptKind PromptKind          `json:"last_prompt_kind"`
	// Offered maps row ids of the last list sent to their titles.
	Offered   map[string]string `json:"offered,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Selections = copyMap(s.Selections)
	out.Offered = copyMap(s.Offered)
	if s.Location != nil {
		loc := *s.Location
		out.Location = &loc
	}
	return &out
}

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Names derives the greeting names from a contact display name.
func Names(contactName string) (full, first string) {
	full = strings.TrimSpace(contactName)
	if full == "" {
		full = "there"
	}
	first = strings.Fields(full)[0]
	return full, first
}

// SessionStore holds one session per user identity.
type SessionStore interface {
	Get(ctx context.Context, identity string) (*Session, bool, error)
	Put(ctx context.Context, identity string, session *Session) error
	Delete(ctx context.Context, identity string) error
	Has(ctx context.Context, identity string) (bool, error)
}
