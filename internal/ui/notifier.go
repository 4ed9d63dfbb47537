package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Severity classifies a notification line.
type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
	Moderation
)

func (s Severity) String() string {
	switch s {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Moderation:
		return "moderation"
	default:
		return "info"
	}
}

// Notifier receives user-facing status lines.
type Notifier interface {
	Notify(message string, severity Severity)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(message string, severity Severity)

func (f NotifierFunc) Notify(message string, severity Severity) { f(message, severity) }

// Nop discards notifications.
var Nop Notifier = NotifierFunc(func(string, Severity) {})

// ConsoleNotifier writes timestamped, coloured lines to a writer.
type ConsoleNotifier struct {
	mu      sync.Mutex
	w       io.Writer
	palette *Palette
	now     func() time.Time
}

// NewConsoleNotifier writes to w, defaulting to [os.Stdout].
func NewConsoleNotifier(w io.Writer, p *Palette) *ConsoleNotifier {
	if w == nil {
		w = os.Stdout
	}
	if p == nil {
		p = DefaultPalette()
	}
	return &ConsoleNotifier{w: w, palette: p, now: time.Now}
}

// Notify writes one line. Concurrent calls never interleave.
func (n *ConsoleNotifier) Notify(message string, severity Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()

	stamp := n.palette.Muted(n.now().Format("15:04:05"))
	fmt.Fprintf(n.w, "%s %s\n", stamp, n.palette.Paint(message, severity))
}
