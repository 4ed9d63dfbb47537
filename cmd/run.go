package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/chatdj/internal/auth"
	"github.com/desertthunder/chatdj/internal/chat"
	"github.com/desertthunder/chatdj/internal/nowplaying"
	"github.com/desertthunder/chatdj/internal/repositories"
	"github.com/desertthunder/chatdj/internal/server"
	"github.com/desertthunder/chatdj/internal/services"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/desertthunder/chatdj/internal/tasks"
	"github.com/desertthunder/chatdj/internal/telemetry"
	"github.com/desertthunder/chatdj/internal/ui"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 5 * time.Second

// Run wires every component and blocks until the context is cancelled (Ctrl-C).
//
// Spotify and chat failures are reported and leave the rest running; only local setup errors
// (unreadable snapshots, a busy overlay port) stop the command.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	r.setupLocale()
	cfg := r.config

	if err := cfg.ValidateSpotify(); err != nil {
		r.notifier.Notify(err.Error(), ui.Error)
		return err
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing(cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName, cmd.Root().Version, r.logger)
	if err != nil {
		r.logger.Warn("tracing disabled", "error", err)
		shutdownTracing = func() {}
	}
	defer shutdownTracing()

	blacklist, err := r.openBlacklist()
	if err != nil {
		return err
	}
	history, err := r.openHistory()
	if err != nil {
		return err
	}

	publisher, overlay, err := r.startOverlay()
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		overlay.stop(stopCtx)
		// Stale data must never be served after exit.
		if err := publisher.Clear(); err != nil {
			r.logger.Error("failed to clear now playing", "error", err)
		}
	}()

	session, err := r.newSession(cmd.Bool("no-browser"))
	if err != nil {
		return err
	}
	defer session.Close()

	spotify := services.NewSpotifyService(services.SpotifyOptions{
		HTTPClient: session.Client(nil),
		Retrier:    session,
		Logger:     r.logger,
	})

	pending := tasks.NewPendingRequestMap()
	gateway := tasks.NewQueueGateway(tasks.GatewayOptions{
		Blacklist:     blacklist,
		Player:        spotify,
		Pending:       pending,
		BlockExplicit: cfg.Playback.BlockExplicit,
		Logger:        r.logger,
	})
	poller := tasks.NewPoller(tasks.PollerOptions{
		Player:     spotify,
		Session:    session,
		Pending:    pending,
		History:    history,
		Publisher:  publisher,
		Interval:   cfg.Playback.PollInterval(),
		Notifier:   r.notifier,
		Translator: r.translator,
		Logger:     r.logger,
	})
	defer poller.Stop()

	session.OnStateChange(func(connected bool) {
		if connected {
			poller.Start(ctx)
			return
		}
		// The hook can run inside a poll tick, which Stop would wait for.
		go func() {
			poller.Stop()
			if ctx.Err() == nil {
				r.authorize(ctx, session)
			}
		}()
	})
	r.authorize(ctx, session)

	if !cmd.Bool("no-chat") {
		client, err := r.startChat(spotify, gateway, blacklist)
		if err != nil {
			r.logger.Error("chat disabled", "error", err)
			r.notifier.Notify(err.Error(), ui.Error)
		} else {
			defer client.Stop()
		}
	}

	r.logger.Info("chatdj running", "overlay", "http://"+overlay.listener.Addr()+"/nowplaying/")
	<-ctx.Done()
	r.logger.Info("shutting down")
	return nil
}

func (r *Runner) newSession(noBrowser bool) (*auth.Session, error) {
	cfg := r.config
	opts := auth.Options{
		ClientID:     cfg.Credentials.Spotify.ClientID,
		ClientSecret: cfg.Credentials.Spotify.ClientSecret,
		RedirectURL:  cfg.Credentials.Spotify.RedirectURI,
		ListenAddr:   cfg.Auth.Addr(),
		Timeout:      cfg.Auth.Timeout(),
		Notifier:     r.notifier,
		Translator:   r.translator,
		Logger:       r.logger,
	}
	if noBrowser {
		opts.OpenBrowser = func(string) error { return nil }
	}

	session, err := auth.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify session: %w", err)
	}
	return session, nil
}

// authorize starts an attempt and logs its outcome in the background. A busy callback port or an
// attempt already in flight is reported and otherwise ignored.
func (r *Runner) authorize(ctx context.Context, session *auth.Session) {
	attempt, err := session.StartAuthorization(ctx)
	if err != nil {
		if !errors.Is(err, shared.ErrAuthInProgress) {
			r.logger.Error("authorization not started", "error", err)
		}
		return
	}

	go func() {
		if err := attempt.Wait(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("spotify not connected, restart chatdj to try again", "error", err)
		}
	}()
}

type overlayServer struct {
	listener *server.Listener
	hub      *nowplaying.Hub
	unsub    func()
}

func (o *overlayServer) stop(ctx context.Context) {
	o.unsub()
	o.hub.Close()
	o.listener.Stop(ctx)
}

// startOverlay creates the publisher and serves it, with the WebSocket feed and /metrics, on the configured address.
func (r *Runner) startOverlay() (*nowplaying.Publisher, *overlayServer, error) {
	cfg := r.config
	publisher, err := nowplaying.NewPublisher(
		cfg.Storage.Path(shared.NowPlayingJSONFile),
		cfg.Storage.Path(shared.NowPlayingTextFile),
		r.logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create now playing files: %w", err)
	}

	hub := nowplaying.NewHub(publisher.JSON, r.logger)
	unsub := publisher.Subscribe(hub.Broadcast)

	handler := nowplaying.NewHandler(nowplaying.HandlerOptions{
		Publisher: publisher,
		Hub:       hub,
		HTMLPath:  cfg.Server.HTMLPath,
		Metrics:   telemetry.Handler(),
		Logger:    r.logger,
	})

	router := server.Mount(handler, handler, r.logger, true)
	r.logger.Debug("overlay routes", "routes", router.Routes())
	listener := server.NewListener(cfg.Server.Addr(), router, r.logger)
	if err := listener.Start(); err != nil {
		unsub()
		return nil, nil, fmt.Errorf("failed to start now playing server: %w", err)
	}

	return publisher, &overlayServer{listener: listener, hub: hub, unsub: unsub}, nil
}

// startChat validates the Twitch settings and connects. Missing credentials are returned as a
// configuration fault without any connection attempt.
func (r *Runner) startChat(catalog services.Catalog, gateway *tasks.QueueGateway, blacklist *repositories.BlacklistStore) (*chat.TwitchClient, error) {
	cfg := r.config
	if err := cfg.ValidateChat(); err != nil {
		return nil, err
	}

	var directory services.UserDirectory
	if cfg.HasHelix() {
		d, err := services.NewTwitchDirectory(services.TwitchOptions{
			ClientID:     cfg.Credentials.Twitch.ClientID,
			ClientSecret: cfg.Credentials.Twitch.ClientSecret,
			Logger:       r.logger,
		})
		if err != nil {
			r.logger.Warn("ban targets will not be verified", "error", err)
		} else {
			directory = d
		}
	}

	var router *chat.Router
	client, err := chat.NewTwitchClient(chat.TwitchOptions{
		Username:       cfg.Credentials.Twitch.BotUsername,
		OAuthToken:     cfg.Credentials.Twitch.OAuthToken,
		Channel:        cfg.Credentials.Twitch.Channel,
		MessagesPer30s: cfg.Chat.MessagesPer30s,
		Burst:          cfg.Chat.Burst,
		Handler: chat.HandlerFunc(func(ctx context.Context, msg chat.Message) {
			router.Handle(ctx, msg)
		}),
		Notifier:   r.notifier,
		Translator: r.translator,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, err
	}

	router = chat.NewRouter(chat.RouterOptions{
		Commands:   cfg.Commands,
		Catalog:    catalog,
		Gateway:    gateway,
		Blacklist:  blacklist,
		Directory:  directory,
		Replier:    client,
		Notifier:   r.notifier,
		Translator: r.translator,
		Logger:     r.logger,
	})

	if err := client.Start(); err != nil {
		return nil, err
	}
	return client, nil
}
