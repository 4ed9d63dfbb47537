package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chatdj/internal/locale"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/desertthunder/chatdj/internal/telemetry"
	"github.com/desertthunder/chatdj/internal/ui"
	twitch "github.com/gempir/go-twitch-irc/v4"
	"golang.org/x/time/rate"
)

// Handler receives every chat line of the joined channel.
type Handler interface {
	Handle(ctx context.Context, msg Message)
}

// HandlerFunc adapts a function to [Handler].
type HandlerFunc func(ctx context.Context, msg Message)

func (f HandlerFunc) Handle(ctx context.Context, msg Message) { f(ctx, msg) }

// TwitchOptions configures a [TwitchClient].
type TwitchOptions struct {
	Username   string
	OAuthToken string
	Channel    string

	// MessagesPer30s and Burst bound outgoing messages; Twitch drops bots that exceed 20 per 30s.
	MessagesPer30s int
	Burst          int

	Handler Handler
	// IRCAddress overrides the Twitch IRC server, host:port.
	IRCAddress string
	TLS        *bool

	Notifier   ui.Notifier
	Translator locale.Translator
	Logger     *log.Logger
}

// TwitchClient joins one channel, hands each private message to the handler on its own goroutine
// and sends replies through a rate limiter.
type TwitchClient struct {
	irc      *twitch.Client
	channel  string
	handler  Handler
	limiter  *rate.Limiter
	notifier ui.Notifier
	tr       locale.Translator
	logger   *log.Logger
	say      func(channel, text string)

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	done     chan struct{}
	handlers sync.WaitGroup
}

// NewTwitchClient validates the bot credentials. Nothing connects until [TwitchClient.Start].
func NewTwitchClient(opts TwitchOptions) (*TwitchClient, error) {
	var missing []string
	if strings.TrimSpace(opts.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(opts.OAuthToken) == "" {
		missing = append(missing, "oauth token")
	}
	if strings.TrimSpace(opts.Channel) == "" {
		missing = append(missing, "channel")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: twitch %s required", shared.ErrMissingCredentials, strings.Join(missing, ", "))
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("%w: chat handler is required", shared.ErrInvalidConfig)
	}
	if opts.MessagesPer30s <= 0 {
		opts.MessagesPer30s = 20
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Notifier == nil {
		opts.Notifier = ui.Nop
	}
	if opts.Translator == nil {
		opts.Translator = locale.NewCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	token := opts.OAuthToken
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	irc := twitch.NewClient(strings.ToLower(opts.Username), token)
	if opts.IRCAddress != "" {
		irc.IrcAddress = opts.IRCAddress
	}
	if opts.TLS != nil {
		irc.TLS = *opts.TLS
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &TwitchClient{
		irc:      irc,
		channel:  channelOwner(opts.Channel),
		handler:  opts.Handler,
		limiter:  rate.NewLimiter(rate.Every(30*time.Second/time.Duration(opts.MessagesPer30s)), opts.Burst),
		notifier: opts.Notifier,
		tr:       opts.Translator,
		logger:   shared.WithLogger(opts.Logger, "component", "twitch"),
		ctx:      ctx,
		cancel:   cancel,
	}
	c.say = irc.Say

	irc.OnConnect(func() {
		c.logger.Info("connected to twitch chat", "channel", c.channel)
		c.notifier.Notify(c.tr.T(locale.KeyChatJoined, locale.Params{"CHANNEL": c.channel}), ui.Success)
	})
	irc.OnPrivateMessage(c.dispatch)
	irc.Join(c.channel)
	return c, nil
}

// Channel returns the joined channel, lowercase and without '#'.
func (c *TwitchClient) Channel() string { return c.channel }

// Start connects in the background. Connection errors are logged and shown to the user; the
// client does not reconnect on its own after [TwitchClient.Stop].
func (c *TwitchClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return fmt.Errorf("twitch client already stopped")
	}
	if c.done != nil {
		return fmt.Errorf("twitch client already started")
	}

	done := make(chan struct{})
	c.done = done
	go func() {
		defer close(done)
		err := c.irc.Connect()
		if err == nil || errors.Is(err, twitch.ErrClientDisconnected) {
			return
		}
		c.logger.Error("twitch chat connection failed", "error", err)
		c.notifier.Notify(fmt.Sprintf("Twitch chat: %v", err), ui.Error)
	}()
	return nil
}

// Stop disconnects, releases the socket and waits for running handlers to finish.
func (c *TwitchClient) Stop() {
	c.cancel()

	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		c.disconnect(done)
	}
	c.handlers.Wait()
}

// disconnect retries until the connection loop exits; a Stop issued while the socket is still
// being dialled finds no open connection the first time.
func (c *TwitchClient) disconnect(done <-chan struct{}) {
	for {
		err := c.irc.Disconnect()
		if err != nil && !errors.Is(err, twitch.ErrConnectionIsNotOpen) {
			c.logger.Warn("twitch disconnect", "error", err)
		}
		select {
		case <-done:
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Say sends text to channel once the rate limiter allows it. Messages still waiting when the client
// stops are dropped.
func (c *TwitchClient) Say(channel, text string) {
	if err := c.limiter.Wait(c.ctx); err != nil {
		c.logger.Debug("chat message dropped", "channel", channel, "error", err)
		return
	}
	c.say(channelOwner(channel), text)
	telemetry.CountChatMessage()
}

func (c *TwitchClient) dispatch(pm twitch.PrivateMessage) {
	if c.ctx.Err() != nil {
		return
	}
	c.handlers.Add(1)
	go func() {
		defer c.handlers.Done()
		c.handler.Handle(c.ctx, FromPrivateMessage(pm))
	}()
}

// FromPrivateMessage converts an IRC line into a [Message], reading roles from the badges.
func FromPrivateMessage(pm twitch.PrivateMessage) Message {
	badges := pm.User.Badges
	has := func(name string) bool { return badges[name] > 0 }

	at := pm.Time
	if at.IsZero() {
		at = time.Now()
	}
	return Message{
		ID:      pm.ID,
		Channel: channelOwner(pm.Channel),
		Text:    strings.TrimSpace(pm.Message),
		At:      at.UTC(),
		Sender: Sender{
			Name:        strings.ToLower(pm.User.Name),
			DisplayName: pm.User.DisplayName,
			Broadcaster: has("broadcaster") || strings.EqualFold(pm.User.Name, channelOwner(pm.Channel)),
			Moderator:   has("moderator") || pm.Tags["mod"] == "1",
			VIP:         has("vip") || pm.Tags["vip"] == "1",
			Subscriber:  has("subscriber") || has("founder") || pm.Tags["subscriber"] == "1",
		},
	}
}
