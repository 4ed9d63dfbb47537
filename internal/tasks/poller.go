package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chatdj/internal/locale"
	"github.com/desertthunder/chatdj/internal/models"
	"github.com/desertthunder/chatdj/internal/services"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/desertthunder/chatdj/internal/telemetry"
	"github.com/desertthunder/chatdj/internal/ui"
)

// DefaultPollInterval spaces playback polls.
const DefaultPollInterval = 5 * time.Second

// State of the playback state machine.
type State int

const (
	Idle State = iota
	Observing
)

func (s State) String() string {
	if s == Observing {
		return "observing"
	}
	return "idle"
}

// Event is the transition produced by a poll.
type Event int

const (
	EventNone Event = iota
	EventTrackChanged
	EventPlayStateToggled
	EventTrackCleared
)

func (e Event) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventPlayStateToggled:
		return "play_state_toggled"
	case EventTrackCleared:
		return "track_cleared"
	default:
		return "none"
	}
}

// Observation is what the poller last saw.
type Observation struct {
	State     State
	Track     models.Track
	IsPlaying bool
}

// Sample is one poll result. Track is nil when nothing is loaded.
type Sample struct {
	Track     *models.Track
	IsPlaying bool
}

// Transition computes the next observation and the event a sample produces.
//
// Clearing only fires when a track was being observed, so an idle player stays silent.
func Transition(prev Observation, sample Sample) (Observation, Event) {
	if sample.Track == nil {
		if prev.State == Observing {
			return Observation{State: Idle}, EventTrackCleared
		}
		return Observation{State: Idle}, EventNone
	}

	next := Observation{State: Observing, Track: *sample.Track, IsPlaying: sample.IsPlaying}
	switch {
	case prev.State == Idle || prev.Track.ID != sample.Track.ID:
		return next, EventTrackChanged
	case prev.IsPlaying != sample.IsPlaying:
		return next, EventPlayStateToggled
	default:
		return next, EventNone
	}
}

// PlaybackEvent is emitted to listeners for every transition other than [EventNone].
type PlaybackEvent struct {
	Kind        Event
	Track       models.Track
	IsPlaying   bool
	RequestedBy string // set for EventTrackChanged
	At          time.Time
}

// PollerOptions configures a [Poller].
type PollerOptions struct {
	Player    services.Player
	Session   Connectivity
	Pending   *PendingRequestMap
	History   HistoryRecorder
	Publisher SnapshotPublisher
	Interval  time.Duration
	// Events receives transitions without blocking the poller.
	Events     chan<- PlaybackEvent
	Notifier   ui.Notifier
	Translator locale.Translator
	Logger     *log.Logger
}

// Poller reconciles Spotify playback with the history log and now-playing publisher.
type Poller struct {
	player    services.Player
	session   Connectivity
	pending   *PendingRequestMap
	history   HistoryRecorder
	publisher SnapshotPublisher
	interval  time.Duration
	events    chan<- PlaybackEvent
	notifier  ui.Notifier
	tr        locale.Translator
	logger    *log.Logger
	now       func() time.Time

	mu  sync.Mutex
	obs Observation

	scheduler Scheduler
}

func NewPoller(opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Pending == nil {
		opts.Pending = NewPendingRequestMap()
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

	return &Poller{
		player:    opts.Player,
		session:   opts.Session,
		pending:   opts.Pending,
		history:   opts.History,
		publisher: opts.Publisher,
		interval:  opts.Interval,
		events:    opts.Events,
		notifier:  opts.Notifier,
		tr:        opts.Translator,
		logger:    shared.WithLogger(opts.Logger, "component", "poller"),
		now:       time.Now,
	}
}

// Observation returns the current state machine position.
func (p *Poller) Observation() Observation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.obs
}

// Start begins polling. Calling it while running is a no-op.
func (p *Poller) Start(ctx context.Context) {
	if p.scheduler.Start(ctx, p.interval, p.tick) {
		p.logger.Info("playback polling started", "interval", p.interval)
	}
}

// Stop halts polling and waits for an in-flight tick to finish.
func (p *Poller) Stop() {
	if p.scheduler.Running() {
		p.scheduler.Stop()
		p.logger.Info("playback polling stopped")
	}
}

func (p *Poller) Running() bool { return p.scheduler.Running() }

func (p *Poller) tick(ctx context.Context) {
	_, _ = p.Tick(ctx)
}

// Tick performs one poll and applies its effects. An unauthenticated session skips the poll.
//
// On a fetch error the observation is left unchanged and the error is returned.
func (p *Poller) Tick(ctx context.Context) (Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil && !p.session.Connected() {
		telemetry.CountPoll("skipped")
		return EventNone, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "poller.tick")
	sample, err := p.fetch(ctx)
	telemetry.End(span, err)
	if err != nil {
		p.logger.Warn("playback poll failed", "error", err)
		telemetry.CountPoll("error")
		return EventNone, err
	}
	telemetry.CountPoll("ok")

	next, ev := Transition(p.obs, sample)
	p.obs = next
	if ev == EventNone {
		return ev, nil
	}

	telemetry.CountTransition(ev.String())
	out := PlaybackEvent{Kind: ev, Track: next.Track, IsPlaying: next.IsPlaying, At: p.now().UTC()}

	switch ev {
	case EventTrackChanged:
		out.RequestedBy = p.onTrackChanged(next, out.At)
	case EventPlayStateToggled:
		p.publish(models.SnapshotOf(next.Track, next.IsPlaying))
	case EventTrackCleared:
		if p.publisher != nil {
			if err := p.publisher.Clear(); err != nil {
				p.logger.Error("failed to clear now playing", "error", err)
			}
		}
		p.notifier.Notify(p.tr.T(locale.KeyPlaybackIdle, nil), ui.Info)
	}

	p.logger.Debug("playback transition", "event", ev, "track", next.Track.ID, "playing", next.IsPlaying)
	sendEvent(p.events, out)
	return ev, nil
}

func (p *Poller) fetch(ctx context.Context) (Sample, error) {
	track, err := p.player.CurrentlyPlaying(ctx)
	if err != nil {
		return Sample{}, err
	}
	playing, err := p.player.IsPlaying(ctx)
	if err != nil {
		return Sample{}, err
	}
	return Sample{Track: track, IsPlaying: playing}, nil
}

func (p *Poller) onTrackChanged(obs Observation, at time.Time) string {
	requester := p.pending.Consume(obs.Track.ID)

	if p.history != nil {
		if _, err := p.history.Record(obs.Track, requester, at); err != nil {
			p.logger.Error("failed to record playback history", "track", obs.Track.ID, "error", err)
		}
	}
	p.publish(models.SnapshotOf(obs.Track, obs.IsPlaying))

	p.notifier.Notify(p.tr.T(locale.KeyNowPlaying, locale.Params{
		"SONG":      obs.Track.Name,
		"ARTIST":    obs.Track.Artist.Name,
		"REQUESTER": requester,
	}), ui.Info)
	return requester
}

func (p *Poller) publish(snapshot models.NowPlayingSnapshot) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Update(snapshot); err != nil {
		p.logger.Error("failed to publish now playing", "error", err)
	}
}
