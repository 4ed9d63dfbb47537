package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/chatdj/internal/services"
	"github.com/urfave/cli/v3"
)

// Auth runs the Spotify authorization flow once and prints what the player is doing.
//
// Starts the local callback listener, opens the browser and waits for the redirect.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	r.setupLocale()

	if err := r.config.ValidateSpotify(); err != nil {
		return err
	}

	session, err := r.newSession(cmd.Bool("no-browser"))
	if err != nil {
		return err
	}
	defer session.Close()

	attempt, err := session.StartAuthorization(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("waiting for authorization", "callback", attempt.CallbackAddr)
	if err := attempt.Wait(ctx); err != nil {
		return err
	}

	tok, _ := session.Current()
	r.writePlainln("✓ Authorization successful")
	r.writePlain("Token expires at %s\n", tok.Expiry().Local().Format("15:04:05"))

	spotify := services.NewSpotifyService(services.SpotifyOptions{
		HTTPClient: session.Client(nil),
		Retrier:    session,
		Logger:     r.logger,
	})

	track, err := spotify.CurrentlyPlaying(ctx)
	if err != nil {
		return fmt.Errorf("authorized, but reading the player failed: %w", err)
	}
	if track == nil {
		return r.writePlain("Nothing is playing right now\n")
	}

	playing, err := spotify.IsPlaying(ctx)
	if err != nil {
		return fmt.Errorf("authorized, but reading the player failed: %w", err)
	}
	state := "paused"
	if playing {
		state = "playing"
	}
	return r.writePlain("Current track: %s (%s)\n", track.Label(), state)
}
