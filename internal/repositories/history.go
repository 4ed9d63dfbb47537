package repositories

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/chatdj/internal/models"
	"github.com/desertthunder/chatdj/internal/shared"
)

// PlaybackHistoryLog is an append-only record of observed tracks persisted as one JSON array.
type PlaybackHistoryLog struct {
	path    string
	mu      sync.Mutex
	entries []models.PlaybackHistoryEntry
}

// OpenPlaybackHistoryLog loads the log at path. A missing file starts an empty log.
func OpenPlaybackHistoryLog(path string) (*PlaybackHistoryLog, error) {
	h := &PlaybackHistoryLog{path: path}

	err := shared.ReadJSONFile(path, &h.entries)
	switch {
	case os.IsNotExist(err):
		h.entries = nil
	case err != nil:
		return nil, fmt.Errorf("failed to load playback history: %w", err)
	}
	return h, nil
}

// Append adds entry and rewrites the snapshot.
//
// The entry stays in memory when the write fails, the next successful write includes it.
func (h *PlaybackHistoryLog) Append(entry models.PlaybackHistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
	return h.save()
}

// Record appends an entry for track observed at the given time.
func (h *PlaybackHistoryLog) Record(track models.Track, requestedBy string, at time.Time) (models.PlaybackHistoryEntry, error) {
	entry := models.NewPlaybackHistoryEntry(track, requestedBy, at)
	return entry, h.Append(entry)
}

// Entries returns a copy of the log in insertion order.
func (h *PlaybackHistoryLog) Entries() []models.PlaybackHistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.PlaybackHistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Recent returns up to n entries, newest first. n <= 0 returns every entry.
func (h *PlaybackHistoryLog) Recent(n int) []models.PlaybackHistoryEntry {
	out := h.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Len returns the number of entries.
func (h *PlaybackHistoryLog) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear empties the log and its snapshot.
func (h *PlaybackHistoryLog) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
	return h.save()
}

func (h *PlaybackHistoryLog) save() error {
	entries := h.entries
	if entries == nil {
		entries = []models.PlaybackHistoryEntry{}
	}
	if err := shared.WriteJSONFile(h.path, entries); err != nil {
		return fmt.Errorf("failed to persist playback history: %w", err)
	}
	return nil
}
