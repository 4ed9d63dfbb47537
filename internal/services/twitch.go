package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/nicklaw5/helix/v2"
)

// TwitchOptions configures a [TwitchDirectory].
type TwitchOptions struct {
	ClientID     string
	ClientSecret string
	// AppAccessToken skips the client-credentials request when set.
	AppAccessToken string
	APIBaseURL     string
	HTTPClient     *http.Client
	Logger         *log.Logger
}

// TwitchDirectory looks up chat logins through the Helix users endpoint.
type TwitchDirectory struct {
	client *helix.Client
	logger *log.Logger

	mu       sync.Mutex
	hasToken bool
}

// NewTwitchDirectory creates the Helix client without contacting Twitch.
func NewTwitchDirectory(opts TwitchOptions) (*TwitchDirectory, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: twitch client id and secret are required", shared.ErrMissingCredentials)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	hopts := &helix.Options{
		ClientID:       opts.ClientID,
		ClientSecret:   opts.ClientSecret,
		AppAccessToken: opts.AppAccessToken,
		APIBaseURL:     opts.APIBaseURL,
	}
	if opts.HTTPClient != nil {
		hopts.HTTPClient = opts.HTTPClient
	}

	client, err := helix.NewClient(hopts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	return &TwitchDirectory{
		client:   client,
		logger:   shared.WithLogger(opts.Logger, "component", "helix"),
		hasToken: opts.AppAccessToken != "",
	}, nil
}

// Exists reports whether login names a Twitch account. A rejected app token is renewed once.
func (d *TwitchDirectory) Exists(ctx context.Context, login string) (bool, error) {
	login = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(login), "@"))
	if login == "" {
		return false, fmt.Errorf("%w: empty login", shared.ErrMissingArgument)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if !d.hasToken {
			if err := d.requestToken(); err != nil {
				return false, err
			}
		}

		resp, err := d.client.GetUsers(&helix.UsersParams{Logins: []string{login}})
		if err != nil {
			return false, fmt.Errorf("%w: helix users: %v", shared.ErrAPIRequest, err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized && attempt == 0:
			d.logger.Info("app access token rejected, requesting a new one")
			d.hasToken = false
			continue
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return false, fmt.Errorf("%w: helix users %d: %s", shared.ErrServiceUnavailable, resp.StatusCode, resp.ErrorMessage)
		case resp.StatusCode != http.StatusOK:
			return false, fmt.Errorf("%w: helix users %d: %s", shared.ErrAPIRequest, resp.StatusCode, resp.ErrorMessage)
		}

		for _, u := range resp.Data.Users {
			if strings.EqualFold(u.Login, login) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("%w: helix rejected a fresh app access token", shared.ErrAuthFailed)
}

func (d *TwitchDirectory) requestToken() error {
	resp, err := d.client.RequestAppAccessToken([]string{})
	if err != nil {
		return fmt.Errorf("%w: app access token: %v", shared.ErrAuthFailed, err)
	}
	if resp.StatusCode != http.StatusOK || resp.Data.AccessToken == "" {
		return fmt.Errorf("%w: app access token %d: %s", shared.ErrAuthFailed, resp.StatusCode, resp.ErrorMessage)
	}

	d.client.SetAppAccessToken(resp.Data.AccessToken)
	d.hasToken = true
	d.logger.Debug("app access token acquired")
	return nil
}
