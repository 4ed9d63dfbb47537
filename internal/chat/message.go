// package chat turns Twitch chat lines into bot actions and sends the replies back.
package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/chatdj/internal/models"
)

// Sender identifies the author of a chat line and the badges that matter for permissions.
type Sender struct {
	Name        string // login, lowercase
	DisplayName string
	Broadcaster bool
	Moderator   bool
	VIP         bool
	Subscriber  bool
}

// Label is the name shown in operator notifications.
func (s Sender) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// Message is one chat line.
type Message struct {
	ID      string
	Channel string
	Text    string
	Sender  Sender
	At      time.Time
}

// Replier sends a line to a channel.
type Replier interface {
	Say(channel, text string)
}

// Allowed evaluates a command's permission spec: the broadcaster always passes, everyone passes
// when no flag is set, otherwise the sender needs one of the allowed badges.
func Allowed(spec models.CommandSpec, s Sender) bool {
	if s.Broadcaster || spec.AllowEveryone() {
		return true
	}
	return (spec.AllowMod && s.Moderator) ||
		(spec.AllowVIP && s.VIP) ||
		(spec.AllowSub && s.Subscriber)
}

// NormalizeUser folds a chat username for storage and comparison.
func NormalizeUser(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}

func channelOwner(channel string) string {
	return strings.ToLower(strings.TrimPrefix(channel, "#"))
}

// recentIDs remembers the last n message IDs to drop redeliveries.
type recentIDs struct {
	mu   sync.Mutex
	size int
	ring []string
	next int
	set  map[string]struct{}
}

func newRecentIDs(size int) *recentIDs {
	return &recentIDs{size: size, ring: make([]string, size), set: make(map[string]struct{}, size)}
}

// add reports false when id was already seen.
func (r *recentIDs) add(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.set[id]; ok {
		return false
	}
	if old := r.ring[r.next]; old != "" {
		delete(r.set, old)
	}
	r.ring[r.next] = id
	r.set[id] = struct{}{}
	r.next = (r.next + 1) % r.size
	return true
}
