// package formatter exports playback history to various formats (CSV, JSON, Markdown, plain text)
package formatter

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/chatdj/internal/models"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/gocarina/gocsv"
)

// Format names an export format.
type Format string

const (
	CSV      Format = "csv"
	JSON     Format = "json"
	Markdown Format = "md"
	Text     Format = "txt"
)

// ParseFormat accepts csv, json, md/markdown and txt/text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ExportToCSV converts history entries to CSV with a snake_case header row.
func ExportToCSV(entries []models.PlaybackHistoryEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.PlaybackHistoryEntry{}
	}
	data, err := gocsv.MarshalBytes(&entries)
	if err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return data, nil
}

// ExportToJSON converts history entries to an indented JSON array, the same shape as the history snapshot.
func ExportToJSON(entries []models.PlaybackHistoryEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.PlaybackHistoryEntry{}
	}
	return shared.MarshalJSON(entries, true)
}

// ExportToMarkdown renders a table of plays.
func ExportToMarkdown(entries []models.PlaybackHistoryEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Playback History\n\n")
	buf.WriteString(fmt.Sprintf("**Plays**: %d\n\n", len(entries)))
	if len(entries) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Played | Track | Artist | Requested by |\n")
	buf.WriteString("|---|--------|-------|--------|--------------|\n")
	for i, e := range entries {
		name := escapeCell(e.TrackName)
		if e.IsExplicit {
			name += " 🅴"
		}
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, e.Timestamp.UTC().Format(time.DateTime), name, escapeCell(e.ArtistName), escapeCell(e.RequestedBy)))
	}

	return buf.Bytes(), nil
}

// ExportToText renders one line per play.
func ExportToText(entries []models.PlaybackHistoryEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Plays: %d\n\n", len(entries)))
	for i, e := range entries {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s - %s (requested by %s)\n",
			i+1, e.Timestamp.UTC().Format(time.DateTime), e.TrackName, e.ArtistName, e.RequestedBy))
	}

	return buf.Bytes(), nil
}

// Export renders entries in format f.
func Export(entries []models.PlaybackHistoryEntry, f Format) ([]byte, error) {
	switch f {
	case CSV:
		return ExportToCSV(entries)
	case JSON:
		return ExportToJSON(entries)
	case Markdown:
		return ExportToMarkdown(entries)
	case Text:
		return ExportToText(entries)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, f)
	}
}

// WriteExport renders entries and writes them to path.
//
// Defaults to playback_history{ext} in the working directory.
func WriteExport(entries []models.PlaybackHistoryEntry, f Format, path string) (string, error) {
	if path == "" {
		path = "playback_history" + f.Extension()
	}

	data, err := Export(entries, f)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", f, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
