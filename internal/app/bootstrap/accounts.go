package bootstrap

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/wolfman30/botpe-relay/internal/accounts"
	"github.com/wolfman30/botpe-relay/internal/botpe"
	appconfig "github.com/wolfman30/botpe-relay/internal/config"
	"github.com/wolfman30/botpe-relay/pkg/logging"
)

// BuildAccounts creates one BotPe client per configured phone number and
// registers them as the primary and secondary accounts. httpClient may be nil.
func BuildAccounts(cfg *appconfig.Config, httpClient *http.Client, logger *logging.Logger) (*accounts.Registry, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	numbers := []struct {
		id, phoneNumberID, token string
	}{
		{appconfig.PrimaryAccountID, cfg.PhoneNumberID, cfg.Token},
		{appconfig.SecondaryAccountID, cfg.PhoneNumberID2, cfg.Token2},
	}

	list := make([]*accounts.Account, 0, len(numbers))
	for _, n := range numbers {
		client, err := botpe.New(botpe.Config{
			BaseURL:       cfg.BaseURL,
			Version:       cfg.APIVersion,
			PhoneNumberID: n.phoneNumberID,
			Token:         n.token,
			Timeout:       cfg.APITimeout,
			HTTPClient:    httpClient,
			Logger:        logger.Component("botpe." + n.id),
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %s account: %w", n.id, err)
		}
		list = append(list, &accounts.Account{
			ID:            n.id,
			PhoneNumberID: n.phoneNumberID,
			Bot:           cfg.BotAccount == n.id,
			Client:        client,
		})
	}

	registry, err := accounts.NewRegistry(list...)
	if err != nil {
		return nil, err
	}
	if bot, ok := registry.BotAccount(); ok {
		logger.Info("booking bot enabled", "account", bot.ID, "phone_number_id", bot.PhoneNumberID)
	} else {
		logger.Info("booking bot disabled")
	}
	return registry, nil
}
