package tasks

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chatdj/internal/models"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/desertthunder/chatdj/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// GatewayOptions configures a [QueueGateway].
type GatewayOptions struct {
	Blacklist     Blacklist
	Player        Queuer
	Pending       *PendingRequestMap
	BlockExplicit bool
	Logger        *log.Logger
}

// QueueGateway applies the queue policy before a track reaches Spotify.
type QueueGateway struct {
	blacklist     Blacklist
	player        Queuer
	pending       *PendingRequestMap
	blockExplicit atomic.Bool
	logger        *log.Logger
}

func NewQueueGateway(opts GatewayOptions) *QueueGateway {
	if opts.Pending == nil {
		opts.Pending = NewPendingRequestMap()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	g := &QueueGateway{
		blacklist: opts.Blacklist,
		player:    opts.Player,
		pending:   opts.Pending,
		logger:    shared.WithLogger(opts.Logger, "component", "queue"),
	}
	g.blockExplicit.Store(opts.BlockExplicit)
	return g
}

// SetBlockExplicit switches the explicit-content policy.
func (g *QueueGateway) SetBlockExplicit(v bool) { g.blockExplicit.Store(v) }

// Pending returns the claim map the gateway writes to.
func (g *QueueGateway) Pending() *PendingRequestMap { return g.pending }

// Enqueue checks the track blacklist, the artist blacklist and the explicit policy in that order
// and then submits the track. The requester is recorded only after Spotify accepted the submission.
func (g *QueueGateway) Enqueue(ctx context.Context, track models.Track, requestedBy string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "queue.enqueue",
		attribute.String("track.id", track.ID),
		attribute.String("requested_by", requestedBy),
	)
	defer func() { telemetry.End(span, err) }()

	if err = g.check(track); err != nil {
		g.logger.Debug("queue request rejected", "track", track.ID, "user", requestedBy, "reason", err)
		telemetry.CountQueue("rejected")
		return err
	}

	if err = g.player.Queue(ctx, track.ID); err != nil {
		g.logger.Error("queue submission failed", "track", track.ID, "error", err)
		telemetry.CountQueue("failed")
		return fmt.Errorf("%w: %w", shared.ErrQueueFailed, err)
	}

	g.pending.Claim(track.ID, requestedBy)
	g.logger.Info("track queued", "track", track.Label(), "user", requestedBy)
	telemetry.CountQueue("queued")
	return nil
}

func (g *QueueGateway) check(track models.Track) error {
	if g.blacklist != nil {
		if g.blacklist.IsTrackBlacklisted(track.ID) {
			return fmt.Errorf("%w: %s", shared.ErrTrackBlacklisted, track.ID)
		}
		if track.Artist.ID != "" && g.blacklist.IsArtistBlacklisted(track.Artist.ID) {
			return fmt.Errorf("%w: %s", shared.ErrArtistBlacklisted, track.Artist.ID)
		}
	}
	if g.blockExplicit.Load() && track.Explicit {
		return fmt.Errorf("%w: %s", shared.ErrExplicitBlocked, track.ID)
	}
	return nil
}
