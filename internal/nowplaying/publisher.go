// package nowplaying publishes the current track to overlay consumers: two files on disk, a JSON
// endpoint, a viewer page and a WebSocket stream.
package nowplaying

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chatdj/internal/models"
	"github.com/desertthunder/chatdj/internal/shared"
)

// Publisher owns the now-playing snapshot and its file mirrors.
type Publisher struct {
	jsonPath string
	textPath string
	logger   *log.Logger

	mu       sync.RWMutex
	snapshot models.NowPlayingSnapshot

	smu    sync.Mutex
	nextID int
	subs   map[int]func(payload []byte)
}

// NewPublisher starts from the empty snapshot and writes it to both files.
func NewPublisher(jsonPath, textPath string, logger *log.Logger) (*Publisher, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	p := &Publisher{
		jsonPath: jsonPath,
		textPath: textPath,
		logger:   shared.WithLogger(logger, "component", "nowplaying"),
		subs:     make(map[int]func([]byte)),
	}
	if err := p.Clear(); err != nil {
		return nil, err
	}
	return p, nil
}

// Snapshot returns the current snapshot.
func (p *Publisher) Snapshot() models.NowPlayingSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// JSON returns the current snapshot encoded as served by the API, {} when nothing is playing.
func (p *Publisher) JSON() []byte {
	data, _ := shared.MarshalJSON(p.Snapshot(), true)
	return data
}

// Update replaces the snapshot, rewrites both files and notifies subscribers.
func (p *Publisher) Update(snapshot models.NowPlayingSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.snapshot = snapshot
	data, err := shared.MarshalJSON(snapshot, true)
	if err != nil {
		return fmt.Errorf("failed to encode now playing: %w", err)
	}

	var errs []error
	if err := shared.WriteFileAtomic(p.jsonPath, data); err != nil {
		errs = append(errs, err)
	}
	if err := shared.WriteFileAtomic(p.textPath, []byte(snapshot.Text())); err != nil {
		errs = append(errs, err)
	}

	// Subscribers are called under the lock so they observe updates in order.
	p.broadcast(data)

	if len(errs) > 0 {
		return fmt.Errorf("failed to write now playing files: %v", errs)
	}
	p.logger.Debug("now playing updated", "title", snapshot.Title, "playing", snapshot.IsPlaying)
	return nil
}

// Clear resets to the empty snapshot: {} in the JSON file and an empty text file.
func (p *Publisher) Clear() error {
	return p.Update(models.NowPlayingSnapshot{})
}

// Subscribe registers fn to receive the encoded snapshot after every change and returns a
// function that removes it. fn must not block.
func (p *Publisher) Subscribe(fn func(payload []byte)) (unsubscribe func()) {
	p.smu.Lock()
	defer p.smu.Unlock()

	id := p.nextID
	p.nextID++
	p.subs[id] = fn

	return func() {
		p.smu.Lock()
		defer p.smu.Unlock()
		delete(p.subs, id)
	}
}

func (p *Publisher) broadcast(payload []byte) {
	p.smu.Lock()
	fns := make([]func([]byte), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.smu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}
