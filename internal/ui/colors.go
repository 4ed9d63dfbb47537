// package ui renders user-facing notifications for the terminal
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Painter defines coloring text with [lipgloss] styles
type Painter interface {
	Paint(string, Severity) string
}

// Palette maps each [Severity] to a [lipgloss.Style]
type Palette struct {
	info       lipgloss.Style
	ok         lipgloss.Style
	warn       lipgloss.Style
	err        lipgloss.Style
	moderation lipgloss.Style
	muted      lipgloss.Style
}

// NewPalette builds a palette from foreground colours for info, success, warning, error and moderation lines.
func NewPalette(info, ok, warn, err, mod string) *Palette {
	return &Palette{
		info:       NewStyle(info),
		ok:         NewBold(ok),
		warn:       NewStyle(warn),
		err:        NewBold(err),
		moderation: NewBold(mod),
		muted:      NewEm("#626262"),
	}
}

// DefaultPalette matches the colours used by the chat feed: sky blue, lime green, yellow, orange red and orange.
func DefaultPalette() *Palette {
	return NewPalette("#87CEEB", "#32CD32", "#FFD700", "#FF4500", "#FFA500")
}

// Paint renders s in the style of severity.
func (p *Palette) Paint(s string, severity Severity) string {
	return p.style(severity).Render(s)
}

// Muted renders secondary text such as timestamps.
func (p *Palette) Muted(s string) string {
	return p.muted.Render(s)
}

func (p *Palette) style(severity Severity) lipgloss.Style {
	switch severity {
	case Success:
		return p.ok
	case Warning:
		return p.warn
	case Error:
		return p.err
	case Moderation:
		return p.moderation
	default:
		return p.info
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
