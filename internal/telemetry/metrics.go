// Package telemetry provides Prometheus metrics and OpenTelemetry tracing helpers.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	// Counters
	ChatCommands        *prometheus.CounterVec // verb, outcome
	QueueRequests       *prometheus.CounterVec // outcome
	PollTicks           *prometheus.CounterVec // result
	PlaybackTransitions *prometheus.CounterVec // event
	TokenRefreshes      *prometheus.CounterVec // trigger, result
	ChatMessagesSent    prometheus.Counter

	// Gauges
	SpotifyConnected prometheus.Gauge // 1=connected,0=not
	PendingRequests  prometheus.Gauge

	// Histograms (seconds)
	SpotifyCallDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ChatCommands = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatdj_chat_commands_total", Help: "Chat commands handled by verb and outcome"}, []string{"verb", "outcome"})
		QueueRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatdj_queue_requests_total", Help: "Queue submissions by outcome"}, []string{"outcome"})
		PollTicks = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatdj_poll_ticks_total", Help: "Playback poller ticks by result"}, []string{"result"})
		PlaybackTransitions = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatdj_playback_transitions_total", Help: "Playback state machine events"}, []string{"event"})
		TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatdj_token_refreshes_total", Help: "Spotify token refreshes by trigger and result"}, []string{"trigger", "result"})
		ChatMessagesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "chatdj_chat_messages_sent_total", Help: "Chat messages sent by the bot"})
		SpotifyConnected = promauto.NewGauge(prometheus.GaugeOpts{Name: "chatdj_spotify_connected", Help: "Spotify session connected=1 disconnected=0"})
		PendingRequests = promauto.NewGauge(prometheus.GaugeOpts{Name: "chatdj_pending_requests", Help: "Queued tracks not yet observed as playing"})
		SpotifyCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chatdj_spotify_call_duration_seconds", Help: "Spotify Web API call duration seconds", Buckets: prometheus.DefBuckets})
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountCommand records a handled chat command.
func CountCommand(verb, outcome string) {
	if ChatCommands != nil {
		ChatCommands.WithLabelValues(verb, outcome).Inc()
	}
}

// CountQueue records a queue submission outcome.
func CountQueue(outcome string) {
	if QueueRequests != nil {
		QueueRequests.WithLabelValues(outcome).Inc()
	}
}

// CountPoll records a poller tick result.
func CountPoll(result string) {
	if PollTicks != nil {
		PollTicks.WithLabelValues(result).Inc()
	}
}

// CountTransition records a playback event.
func CountTransition(event string) {
	if PlaybackTransitions != nil {
		PlaybackTransitions.WithLabelValues(event).Inc()
	}
}

// CountRefresh records a token refresh attempt.
func CountRefresh(trigger, result string) {
	if TokenRefreshes != nil {
		TokenRefreshes.WithLabelValues(trigger, result).Inc()
	}
}

// CountChatMessage records one outgoing chat message.
func CountChatMessage() {
	if ChatMessagesSent != nil {
		ChatMessagesSent.Inc()
	}
}

// SetConnected sets the connected gauge to 1 if connected else 0.
func SetConnected(connected bool) {
	if SpotifyConnected != nil {
		if connected {
			SpotifyConnected.Set(1)
		} else {
			SpotifyConnected.Set(0)
		}
	}
}

// SetPending records the number of unconsumed queue claims.
func SetPending(n int) {
	if PendingRequests != nil {
		PendingRequests.Set(float64(n))
	}
}

// ObserveSpotifyCall records the duration of one API call.
func ObserveSpotifyCall(seconds float64) {
	if SpotifyCallDuration != nil {
		SpotifyCallDuration.Observe(seconds)
	}
}
