package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chatdj/internal/locale"
	"github.com/desertthunder/chatdj/internal/models"
	"github.com/desertthunder/chatdj/internal/repositories"
	"github.com/desertthunder/chatdj/internal/services"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/desertthunder/chatdj/internal/telemetry"
	"github.com/desertthunder/chatdj/internal/ui"
)

const (
	rejectPrefix  = "❌ "
	recentIDLimit = 512
)

// Enqueuer submits a resolved track on behalf of a chat user.
type Enqueuer interface {
	Enqueue(ctx context.Context, track models.Track, requestedBy string) error
}

// Blacklist is the subset of the blacklist store chat commands use.
type Blacklist interface {
	IsUserBlacklisted(name string) bool
	AddTrack(id string) (bool, error)
	RemoveTrack(id string) (bool, error)
	AddArtist(id string) (bool, error)
	RemoveArtist(id string) (bool, error)
	BanUser(name string) (bool, error)
	UnbanUser(name string) (bool, error)
}

type command int

const (
	cmdQueue command = iota
	cmdBlacklist
	cmdUnblacklist
	cmdBan
	cmdUnban
)

// RouterOptions configures a [Router].
type RouterOptions struct {
	Commands  shared.CommandsConfig
	Catalog   services.Catalog
	Gateway   Enqueuer
	Blacklist Blacklist
	// Directory is optional; when set, ban targets must be real accounts.
	Directory  services.UserDirectory
	Replier    Replier
	Notifier   ui.Notifier
	Translator locale.Translator
	Logger     *log.Logger
}

// Router parses chat commands, checks permissions and runs them. Every handled command produces
// exactly one chat reply and one operator notification.
type Router struct {
	commands  shared.CommandsConfig
	catalog   services.Catalog
	gateway   Enqueuer
	blacklist Blacklist
	directory services.UserDirectory
	replier   Replier
	notifier  ui.Notifier
	tr        locale.Translator
	logger    *log.Logger
	seen      *recentIDs
}

func NewRouter(opts RouterOptions) *Router {
	if opts.Notifier == nil {
		opts.Notifier = ui.Nop
	}
	if opts.Translator == nil {
		opts.Translator = locale.NewCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Router{
		commands:  opts.Commands,
		catalog:   opts.Catalog,
		gateway:   opts.Gateway,
		blacklist: opts.Blacklist,
		directory: opts.Directory,
		replier:   opts.Replier,
		notifier:  opts.Notifier,
		tr:        opts.Translator,
		logger:    shared.WithLogger(opts.Logger, "component", "chat"),
		seen:      newRecentIDs(recentIDLimit),
	}
}

// reply is the outcome of a command.
type reply struct {
	text     string
	rejected bool
	severity ui.Severity
	result   string // metrics outcome label
}

func (r *Router) ok(severity ui.Severity, key string, params locale.Params) reply {
	return reply{text: r.tr.T(key, params), severity: severity, result: "ok"}
}

func (r *Router) reject(result, key string, params locale.Params) reply {
	return reply{text: r.tr.T(key, params), rejected: true, severity: ui.Warning, result: result}
}

// Handle processes one chat line. Lines without the prefix, from banned users, repeated
// deliveries and commands the sender may not use are dropped without a reply.
func (r *Router) Handle(ctx context.Context, msg Message) {
	prefix := r.commands.Prefix
	if prefix == "" || !strings.HasPrefix(msg.Text, prefix) {
		return
	}
	if r.blacklist != nil && r.blacklist.IsUserBlacklisted(msg.Sender.Name) {
		r.logger.Debug("ignoring banned user", "user", msg.Sender.Name)
		return
	}
	if msg.ID != "" && !r.seen.add(msg.ID) {
		r.logger.Debug("duplicate chat delivery", "id", msg.ID)
		return
	}

	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}
	verb := strings.ToLower(strings.TrimPrefix(fields[0], prefix))
	cmd, spec, ok := r.lookup(verb)
	if !ok {
		return
	}
	if !Allowed(spec, msg.Sender) {
		r.logger.Debug("command not permitted", "user", msg.Sender.Name, "verb", verb)
		telemetry.CountCommand(verb, "denied")
		return
	}

	args := fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Text), fields[0]))
	usage := locale.Params{"PREFIX": prefix, "VERB": spec.Verb}

	var out reply
	switch cmd {
	case cmdQueue:
		out = r.queue(ctx, msg, rest, usage)
	case cmdBlacklist:
		out = r.editBlacklist(ctx, args, true, usage)
	case cmdUnblacklist:
		out = r.editBlacklist(ctx, args, false, usage)
	case cmdBan:
		out = r.ban(ctx, msg, args, usage)
	case cmdUnban:
		out = r.unban(args, usage)
	}
	r.respond(msg, verb, out)
}

func (r *Router) lookup(verb string) (command, models.CommandSpec, bool) {
	c := r.commands
	for _, entry := range []struct {
		cmd  command
		spec models.CommandSpec
	}{
		{cmdQueue, c.Queue},
		{cmdBlacklist, c.Blacklist},
		{cmdUnblacklist, c.Unblacklist},
		{cmdBan, c.Ban},
		{cmdUnban, c.Unban},
	} {
		if entry.spec.Verb != "" && strings.EqualFold(entry.spec.Verb, verb) {
			return entry.cmd, entry.spec, true
		}
	}
	return 0, models.CommandSpec{}, false
}

func (r *Router) respond(msg Message, verb string, out reply) {
	text := out.text
	if out.rejected {
		text = rejectPrefix + text
	}
	if r.replier != nil {
		r.replier.Say(msg.Channel, text)
	}
	r.notifier.Notify(msg.Sender.Label()+": "+text, out.severity)
	r.logger.Info("command handled", "verb", verb, "user", msg.Sender.Name, "outcome", out.result)
	telemetry.CountCommand(verb, out.result)
}

func (r *Router) queue(ctx context.Context, msg Message, query string, usage locale.Params) reply {
	if query == "" {
		return r.reject("usage", locale.KeyQueueMissingArgument, usage)
	}

	track, err := r.catalog.ResolveTrack(ctx, query)
	if err != nil {
		return r.lookupFailure(err, locale.KeyTrackNotFound)
	}

	err = r.gateway.Enqueue(ctx, track, msg.Sender.Name)
	switch {
	case err == nil:
		return r.ok(ui.Success, locale.KeyQueueSuccess, trackParams(track))
	case errors.Is(err, shared.ErrTrackBlacklisted):
		return r.reject("track_blacklisted", locale.KeyTrackBlacklisted, trackParams(track))
	case errors.Is(err, shared.ErrArtistBlacklisted):
		return r.reject("artist_blacklisted", locale.KeyArtistBlacklisted, trackParams(track))
	case errors.Is(err, shared.ErrExplicitBlocked):
		return r.reject("explicit", locale.KeyExplicitBlocked, trackParams(track))
	case shared.IsAuthFailure(err):
		r.logger.Warn("queue failed, spotify not connected", "user", msg.Sender.Name, "error", err)
		return r.reject("not_authenticated", locale.KeyNotAuthenticated, nil)
	default:
		r.logger.Error("queue failed", "user", msg.Sender.Name, "track", track.ID, "error", err)
		out := r.reject("failed", locale.KeyQueueFailure, trackParams(track))
		out.severity = ui.Error
		return out
	}
}

func (r *Router) editBlacklist(ctx context.Context, args []string, add bool, usage locale.Params) reply {
	usageKey := locale.KeyUnblacklistUsage
	if add {
		usageKey = locale.KeyBlacklistUsage
	}
	if len(args) < 2 {
		return r.reject("usage", usageKey, usage)
	}
	kind, err := repositories.ParseBlacklistKind(args[0])
	if err != nil || kind == repositories.UserBlacklist {
		return r.reject("usage", usageKey, usage)
	}

	switch kind {
	case repositories.TrackBlacklist:
		track, err := r.resolveTrackRef(ctx, args[1])
		if err != nil {
			return r.lookupFailure(err, locale.KeyTrackNotFound)
		}
		params := trackParams(track)
		if add {
			return r.mutation(r.blacklist.AddTrack(track.ID))(
				locale.KeyBlacklistTrackSuccess, locale.KeyBlacklistTrackExists, params)
		}
		return r.mutation(r.blacklist.RemoveTrack(track.ID))(
			locale.KeyUnblacklistTrack, locale.KeyUnblacklistTrackAbsent, params)
	default:
		artist, err := r.resolveArtistRef(ctx, args[1])
		if err != nil {
			return r.lookupFailure(err, locale.KeyArtistNotFound)
		}
		params := locale.Params{"ARTIST": artist.Name}
		if add {
			return r.mutation(r.blacklist.AddArtist(artist.ID))(
				locale.KeyBlacklistArtistSuccess, locale.KeyBlacklistArtistExists, params)
		}
		return r.mutation(r.blacklist.RemoveArtist(artist.ID))(
			locale.KeyUnblacklistArtist, locale.KeyUnblacklistArtistAbsent, params)
	}
}

// mutation maps a store result onto the success, redundant and failure replies.
func (r *Router) mutation(changed bool, err error) func(okKey, redundantKey string, params locale.Params) reply {
	return func(okKey, redundantKey string, params locale.Params) reply {
		switch {
		case err != nil:
			r.logger.Error("failed to persist blacklist", "error", err)
			out := r.reject("failed", locale.KeyInternalError, nil)
			out.severity = ui.Error
			return out
		case !changed:
			return r.reject("redundant", redundantKey, params)
		default:
			return r.ok(ui.Moderation, okKey, params)
		}
	}
}

func (r *Router) ban(ctx context.Context, msg Message, args []string, usage locale.Params) reply {
	if len(args) == 0 || NormalizeUser(args[0]) == "" {
		return r.reject("usage", locale.KeyBanUsage, usage)
	}
	target := NormalizeUser(args[0])
	params := locale.Params{"TARGET": target}

	if target == channelOwner(msg.Channel) {
		return r.reject("streamer", locale.KeyBanStreamer, params)
	}
	if r.blacklist.IsUserBlacklisted(target) {
		return r.reject("redundant", locale.KeyBanExists, params)
	}

	if r.directory != nil {
		exists, err := r.directory.Exists(ctx, target)
		switch {
		case err != nil:
			// An unreachable directory must not block moderation.
			r.logger.Warn("could not verify ban target, banning anyway", "target", target, "error", err)
		case !exists:
			return r.reject("unknown_user", locale.KeyBanUnknownUser, params)
		}
	}

	return r.mutation(r.blacklist.BanUser(target))(locale.KeyBanSuccess, locale.KeyBanExists, params)
}

func (r *Router) unban(args []string, usage locale.Params) reply {
	if len(args) == 0 || NormalizeUser(args[0]) == "" {
		return r.reject("usage", locale.KeyUnbanUsage, usage)
	}
	target := NormalizeUser(args[0])
	params := locale.Params{"TARGET": target}
	return r.mutation(r.blacklist.UnbanUser(target))(locale.KeyUnbanSuccess, locale.KeyUnbanNotFound, params)
}

// lookupFailure turns a catalog error into a refusal.
func (r *Router) lookupFailure(err error, notFoundKey string) reply {
	switch {
	case shared.IsNotFound(err):
		return r.reject("not_found", notFoundKey, nil)
	case shared.IsAuthFailure(err):
		r.logger.Warn("lookup failed, spotify not connected", "error", err)
		return r.reject("not_authenticated", locale.KeyNotAuthenticated, nil)
	default:
		r.logger.Error("lookup failed", "error", err)
		out := r.reject("failed", locale.KeyInternalError, nil)
		out.severity = ui.Error
		return out
	}
}

// resolveTrackRef accepts a track link, a track URI or a bare ID.
func (r *Router) resolveTrackRef(ctx context.Context, value string) (models.Track, error) {
	id, err := refID(value, "track", shared.ErrTrackNotFound)
	if err != nil {
		return models.Track{}, err
	}
	return r.catalog.LookupTrack(ctx, id)
}

// resolveArtistRef accepts an artist link, an artist URI or a bare ID.
func (r *Router) resolveArtistRef(ctx context.Context, value string) (models.Artist, error) {
	id, err := refID(value, "artist", shared.ErrArtistNotFound)
	if err != nil {
		return models.Artist{}, err
	}
	return r.catalog.LookupArtist(ctx, id)
}

func refID(value, kind string, notFound error) (string, error) {
	ref, ok := services.ParseSpotifyURL(value)
	if !ok {
		return value, nil
	}
	if ref.Kind != kind || ref.ID == "" {
		return "", notFound
	}
	return ref.ID, nil
}

func trackParams(t models.Track) locale.Params {
	return locale.Params{"SONG": t.Name, "ARTIST": t.Artist.Name}
}
