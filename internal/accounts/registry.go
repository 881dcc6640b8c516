// Package accounts tracks the business accounts the relay serves.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/botpe-relay/internal/botpe"
)

// ErrUnknownAccount is returned when no registered account matches.
var ErrUnknownAccount = errors.New("accounts: unknown account")

// Messenger is the outbound surface the booking bot uses. *botpe.Client satisfies it.
type Messenger interface {
	SendList(ctx context.Context, to string, list botpe.ListMessage) (*botpe.MessageResponse, error)
	SendLocationRequest(ctx context.Context, to, body string) (*botpe.MessageResponse, error)
	SendCTAURL(ctx context.Context, to string, msg botpe.CTAURLMessage) (*botpe.MessageResponse, error)
}

// Account is one business phone number with its credentials and bot setting.
type Account struct {
	ID            string
	PhoneNumberID string
	// Bot marks the account whose inbound messages drive the booking flow.
	Bot    bool
	Client Messenger
}

// Registry resolves inbound deliveries to accounts.
type Registry struct {
	order   []*Account
	byID    map[string]*Account
	byPhone map[string]*Account
}

// NewRegistry validates and indexes the given accounts. At most one may run the bot.
func NewRegistry(accounts ...*Account) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]*Account, len(accounts)),
		byPhone: make(map[string]*Account, len(accounts)),
	}
	bots := 0
	for _, acct := range accounts {
		if acct == nil {
			continue
		}
		id := strings.TrimSpace(acct.ID)
		if id == "" {
			return nil, errors.New("accounts: account id is required")
		}
		if _, dup := r.byID[id]; dup {
			return nil, fmt.Errorf("accounts: duplicate account id %q", id)
		}
		if phone := strings.TrimSpace(acct.PhoneNumberID); phone != "" {
			if _, dup := r.byPhone[phone]; dup {
				return nil, fmt.Errorf("accounts: duplicate phone number id %q", phone)
			}
			r.byPhone[phone] = acct
		}
		if acct.Bot {
			bots++
		}
		r.byID[id] = acct
		r.order = append(r.order, acct)
	}
	if bots > 1 {
		return nil, errors.New("accounts: only one account may run the booking bot")
	}
	return r, nil
}

// Lookup returns the account registered under id.
func (r *Registry) Lookup(id string) (*Account, error) {
	if r == nil {
		return nil, ErrUnknownAccount
	}
	acct, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, id)
	}
	return acct, nil
}

// Resolve picks the account an inbound delivery belongs to. The business
// number in the payload wins; otherwise the account bound to the route is used.
func (r *Registry) Resolve(to, routeAccountID string) (*Account, error) {
	if r == nil {
		return nil, ErrUnknownAccount
	}
	if acct, ok := r.byPhone[strings.TrimSpace(to)]; ok && to != "" {
		return acct, nil
	}
	return r.Lookup(routeAccountID)
}

// BotAccount returns the account running the booking bot, if any.
func (r *Registry) BotAccount() (*Account, bool) {
	if r == nil {
		return nil, false
	}
	for _, acct := range r.order {
		if acct.Bot {
			return acct, true
		}
	}
	return nil, false
}

// All returns accounts in registration order.
func (r *Registry) All() []*Account {
	if r == nil {
		return nil
	}
	out := make([]*Account, len(r.order))
	copy(out, r.order)
	return out
}
