package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/chatdj/internal/repositories"
	"github.com/desertthunder/chatdj/internal/services"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/urfave/cli/v3"
)

var blacklistKinds = []repositories.BlacklistKind{
	repositories.TrackBlacklist,
	repositories.ArtistBlacklist,
	repositories.UserBlacklist,
}

// BlacklistList prints one or all blacklists.
func (r *Runner) BlacklistList(ctx context.Context, cmd *cli.Command) error {
	kinds := blacklistKinds
	if arg := cmd.StringArg("kind"); arg != "" {
		kind, err := repositories.ParseBlacklistKind(arg)
		if err != nil {
			return err
		}
		kinds = []repositories.BlacklistKind{kind}
	}

	store, err := r.openBlacklist()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make(map[repositories.BlacklistKind][]string, len(kinds))
		for _, kind := range kinds {
			out[kind] = store.List(kind)
		}
		return r.writeJSON(out, true)
	}

	for _, kind := range kinds {
		ids := store.List(kind)
		r.writePlainHeader(fmt.Sprintf("%s blacklist (%d)", kind, len(ids)))
		for _, id := range ids {
			r.writePlain("  %s\n", id)
		}
	}
	return nil
}

// BlacklistAdd adds an entry while the bot is offline.
func (r *Runner) BlacklistAdd(ctx context.Context, cmd *cli.Command) error {
	return r.editBlacklist(cmd, true)
}

// BlacklistRemove removes an entry while the bot is offline.
func (r *Runner) BlacklistRemove(ctx context.Context, cmd *cli.Command) error {
	return r.editBlacklist(cmd, false)
}

func (r *Runner) editBlacklist(cmd *cli.Command, add bool) error {
	kind, err := repositories.ParseBlacklistKind(cmd.StringArg("kind"))
	if err != nil {
		return err
	}
	id, err := blacklistID(kind, cmd.StringArg("value"))
	if err != nil {
		return err
	}

	store, err := r.openBlacklist()
	if err != nil {
		return err
	}
	set, err := store.Set(kind)
	if err != nil {
		return err
	}

	if add {
		changed, err := set.Add(id)
		if err != nil {
			return err
		}
		if !changed {
			return r.writePlain("%s %s is already blacklisted\n", kind, id)
		}
		return r.writePlain("✓ Added %s %s\n", kind, id)
	}

	changed, err := set.Remove(id)
	if err != nil {
		return err
	}
	if !changed {
		return r.writePlain("%s %s is not blacklisted\n", kind, id)
	}
	return r.writePlain("✓ Removed %s %s\n", kind, id)
}

// blacklistID accepts a bare ID or a Spotify link of the matching kind; users are taken as given.
func blacklistID(kind repositories.BlacklistKind, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s value", shared.ErrMissingArgument, kind)
	}
	if kind == repositories.UserBlacklist {
		return value, nil
	}

	ref, ok := services.ParseSpotifyURL(value)
	if !ok {
		return value, nil
	}
	if ref.Kind != string(kind) || ref.ID == "" {
		return "", fmt.Errorf("%w: %q is not a Spotify %s link", shared.ErrInvalidArgument, value, kind)
	}
	return ref.ID, nil
}
