// package auth owns the Spotify OAuth session: the authorization code flow, the token,
// single-flight refresh and the proactive refresher.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chatdj/internal/locale"
	"github.com/desertthunder/chatdj/internal/models"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/desertthunder/chatdj/internal/telemetry"
	"github.com/desertthunder/chatdj/internal/ui"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Scopes requested from Spotify.
var Scopes = []string{
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
}

const (
	defaultRefreshMargin = 60 * time.Second
	defaultTimeout       = 2 * time.Minute
	tokenRequestTimeout  = 15 * time.Second
)

// Options configures a [Session].
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	ListenAddr   string // defaults to the host of RedirectURL
	AuthURL      string // defaults to the Spotify accounts endpoints
	TokenURL     string

	RefreshMargin time.Duration // refresh this long before expiry, 60s by default
	Timeout       time.Duration // how long an attempt waits for its callback, 2m by default

	HTTPClient  *http.Client // used for token requests
	OpenBrowser func(string) error
	Notifier    ui.Notifier
	Translator  locale.Translator
	Logger      *log.Logger
}

// Session holds the single Spotify credential of the process.
//
// It implements [oauth2.TokenSource] so HTTP clients built by [Session.Client] always send the current token.
type Session struct {
	config       *oauth2.Config
	listenAddr   string
	callbackPath string
	margin       time.Duration
	timeout      time.Duration
	httpClient   *http.Client
	openBrowser  func(string) error
	notifier     ui.Notifier
	tr           locale.Translator
	logger       *log.Logger
	now          func() time.Time

	mu        sync.RWMutex
	token     *models.AuthToken
	gen       uint64
	connected bool
	attempt   *Attempt
	hooks     []func(connected bool)

	group singleflight.Group

	rmu           sync.Mutex
	refreshCancel context.CancelFunc
	refreshDone   chan struct{}

	closeCtx    context.Context
	closeCancel context.CancelFunc
}

// New validates opts and creates an unauthenticated session.
func New(opts Options) (*Session, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: Spotify client id and secret are required", shared.ErrMissingCredentials)
	}
	redirect, err := url.Parse(opts.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: invalid redirect URL %q", shared.ErrInvalidConfig, opts.RedirectURL)
	}

	if opts.ListenAddr == "" {
		opts.ListenAddr = redirect.Host
	}
	if opts.AuthURL == "" {
		opts.AuthURL = spotifyauth.AuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyauth.TokenURL
	}
	if opts.RefreshMargin <= 0 {
		opts.RefreshMargin = defaultRefreshMargin
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
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

	path := redirect.Path
	if path == "" {
		path = "/"
	}

	closeCtx, closeCancel := context.WithCancel(context.Background())
	return &Session{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		listenAddr:   opts.ListenAddr,
		callbackPath: path,
		margin:       opts.RefreshMargin,
		timeout:      opts.Timeout,
		httpClient:   opts.HTTPClient,
		openBrowser:  opts.OpenBrowser,
		notifier:     opts.Notifier,
		tr:           opts.Translator,
		logger:       shared.WithLogger(opts.Logger, "component", "auth"),
		now:          time.Now,
		closeCtx:     closeCtx,
		closeCancel:  closeCancel,
	}, nil
}

// Connected reports whether the session holds a usable token.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// OnStateChange registers fn to run whenever the session connects or disconnects.
//
// Hooks run on the goroutine that changed the state, which may be inside a refresh, so they must not block.
func (s *Session) OnStateChange(fn func(connected bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Current returns a copy of the token, or false when unauthenticated.
func (s *Session) Current() (models.AuthToken, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return models.AuthToken{}, false
	}
	return *s.token, true
}

// Token implements [oauth2.TokenSource].
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected || s.token == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken:  s.token.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.token.RefreshToken,
		Expiry:       s.token.Expiry(),
	}, nil
}

// Client returns an HTTP client that authorizes every request with the current token.
func (s *Session) Client(base http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Source: s, Base: base},
		Timeout:   tokenRequestTimeout,
	}
}

// SetToken installs tok and marks the session connected.
func (s *Session) SetToken(tok models.AuthToken) {
	s.install(tok)
}

// Exchange trades an authorization code for a token and connects the session.
func (s *Session) Exchange(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(s.tokenContext(ctx), tokenRequestTimeout)
	defer cancel()

	tok, err := s.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthFailed, err)
	}
	if tok.RefreshToken == "" {
		s.logger.Warn("token response carried no refresh token")
	}

	s.install(fromOAuth(tok, nil, s.now()))
	s.logger.Info("spotify session connected")
	s.notifier.Notify(s.tr.T(locale.KeyAuthSuccess, nil), ui.Success)
	return nil
}

// Refresh obtains a new access token. Concurrent callers share one token request and its result.
//
// A failed refresh leaves the session unauthenticated.
func (s *Session) Refresh(ctx context.Context) error {
	return s.refresh(ctx, "manual")
}

func (s *Session) refresh(ctx context.Context, trigger string) error {
	_, err, _ := s.group.Do("refresh", func() (any, error) {
		return nil, s.doRefresh(ctx, trigger)
	})
	return err
}

func (s *Session) doRefresh(ctx context.Context, trigger string) error {
	ctx, span := telemetry.StartSpan(ctx, "auth.refresh")
	var err error
	defer func() { telemetry.End(span, err) }()

	s.mu.RLock()
	var prev *models.AuthToken
	if s.token != nil {
		t := *s.token
		prev = &t
	}
	s.mu.RUnlock()

	if prev == nil || prev.RefreshToken == "" {
		err = shared.ErrNoRefreshToken
		s.invalidate(err)
		telemetry.CountRefresh(trigger, "failure")
		return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	// The first caller's cancellation must not fail everyone sharing this flight.
	rctx, cancel := context.WithTimeout(s.tokenContext(context.WithoutCancel(ctx)), tokenRequestTimeout)
	defer cancel()

	stale := &oauth2.Token{RefreshToken: prev.RefreshToken, Expiry: s.now().Add(-time.Minute)}
	tok, rerr := s.config.TokenSource(rctx, stale).Token()
	if rerr != nil {
		err = rerr
		s.logger.Error("token refresh failed", "trigger", trigger, "error", rerr)
		s.invalidate(rerr)
		telemetry.CountRefresh(trigger, "failure")
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, rerr)
	}

	s.install(fromOAuth(tok, prev, s.now()))
	s.logger.Debug("token refreshed", "trigger", trigger)
	telemetry.CountRefresh(trigger, "success")
	return nil
}

// Do runs fn and, when it fails because the access token was rejected, refreshes once and runs it again.
//
// The replay's error is returned as is, so a second rejection never loops.
func (s *Session) Do(ctx context.Context, fn func(context.Context) error) error {
	s.mu.RLock()
	connected, gen := s.connected, s.gen
	s.mu.RUnlock()

	if !connected {
		return shared.ErrNotAuthenticated
	}

	err := fn(ctx)
	if !errors.Is(err, shared.ErrTokenExpired) {
		return err
	}

	s.mu.RLock()
	replaced := s.gen != gen && s.connected
	s.mu.RUnlock()

	// Another caller already replaced the token this request was sent with.
	if !replaced {
		s.logger.Info("access token rejected, refreshing")
		if rerr := s.refresh(ctx, "unauthorized"); rerr != nil {
			return rerr
		}
	}
	return fn(ctx)
}

// Close stops the refresher and any pending authorization attempt.
func (s *Session) Close() {
	s.closeCancel()
	s.stopRefresher(true)
}

func (s *Session) tokenContext(ctx context.Context) context.Context {
	if s.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	return ctx
}

func (s *Session) install(tok models.AuthToken) {
	s.mu.Lock()
	if s.token == nil {
		s.token = &tok
	} else {
		*s.token = tok
	}
	s.gen++
	changed := !s.connected
	s.connected = true
	hooks := append([]func(bool){}, s.hooks...)
	s.mu.Unlock()

	telemetry.SetConnected(true)
	s.startRefresher()
	if changed {
		for _, fn := range hooks {
			fn(true)
		}
	}
}

func (s *Session) invalidate(cause error) {
	s.mu.Lock()
	changed := s.connected
	s.connected = false
	s.token = nil
	s.gen++
	hooks := append([]func(bool){}, s.hooks...)
	s.mu.Unlock()

	s.stopRefresher(false)
	telemetry.SetConnected(false)
	if !changed {
		return
	}

	s.logger.Warn("spotify session lost", "cause", cause)
	s.notifier.Notify(s.tr.T(locale.KeyAuthRefreshFailed, nil), ui.Error)
	for _, fn := range hooks {
		fn(false)
	}
}

func fromOAuth(tok *oauth2.Token, prev *models.AuthToken, now time.Time) models.AuthToken {
	out := models.AuthToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    3600,
		IssuedAt:     now,
	}
	if !tok.Expiry.IsZero() {
		out.ExpiresIn = int(tok.Expiry.Sub(now).Round(time.Second) / time.Second)
	}
	if out.RefreshToken == "" && prev != nil {
		out.RefreshToken = prev.RefreshToken
	}
	return out
}
