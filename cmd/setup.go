package main

import (
	"context"
	"errors"
	"strings"

	"github.com/desertthunder/chatdj/internal/chat"
	"github.com/desertthunder/chatdj/internal/models"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the example configuration to the given path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Configuration written to %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify client_id and client_secret (or CHATDJ_SPOTIFY_* in .env)\n")
	r.writePlain("2. Set credentials.twitch bot_username, oauth_token and channel\n")
	r.writePlain("3. Run 'chatdj run'\n")
	return nil
}

// ConfigCheck reports missing credentials and shows who may use each chat command.
func (r *Runner) ConfigCheck(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config
	var errs []error

	r.writePlainHeader("Credentials")
	for _, check := range []struct {
		name string
		fn   func() error
	}{
		{"Spotify", cfg.ValidateSpotify},
		{"Twitch chat", cfg.ValidateChat},
	} {
		if err := check.fn(); err != nil {
			errs = append(errs, err)
			r.writePlain("✗ %s: %v\n", check.name, err)
		} else {
			r.writePlain("✓ %s\n", check.name)
		}
	}
	if cfg.HasHelix() {
		r.writePlain("✓ Twitch Helix (ban targets are verified)\n")
	} else {
		r.writePlain("- Twitch Helix not configured (ban targets are not verified)\n")
	}

	r.writePlainln("")
	r.writePlainHeader("Commands")
	c := cfg.Commands
	for _, spec := range []models.CommandSpec{c.Queue, c.Blacklist, c.Unblacklist, c.Ban, c.Unban} {
		r.writePlain("%s%-14s %s\n", c.Prefix, spec.Verb, roles(spec))
	}

	return errors.Join(errs...)
}

func roles(spec models.CommandSpec) string {
	if spec.AllowEveryone() {
		return "everyone"
	}
	var who []string
	for _, s := range []chat.Sender{
		{Name: "mod", Moderator: true},
		{Name: "vip", VIP: true},
		{Name: "sub", Subscriber: true},
	} {
		if chat.Allowed(spec, s) {
			who = append(who, s.Name)
		}
	}
	return "broadcaster, " + strings.Join(who, ", ")
}
