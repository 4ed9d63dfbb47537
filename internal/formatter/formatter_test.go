package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/chatdj/internal/models"
	"github.com/desertthunder/chatdj/internal/shared"
	th "github.com/desertthunder/chatdj/internal/testing"
	"github.com/gocarina/gocsv"
)

func sampleEntries() []models.PlaybackHistoryEntry {
	return []models.PlaybackHistoryEntry{
		{
			TrackID:     "track1",
			TrackName:   "Song One",
			ArtistName:  "Artist One",
			ArtistID:    "artist1",
			AlbumArtURL: "https://img/1",
			Timestamp:   time.Date(2024, 5, 1, 20, 15, 0, 0, time.UTC),
			RequestedBy: "alice",
		},
		{
			TrackID:     "track2",
			TrackName:   "Song | Two",
			ArtistName:  "Artist Two",
			ArtistID:    "artist2",
			IsExplicit:  true,
			Timestamp:   time.Date(2024, 5, 1, 20, 19, 30, 0, time.UTC),
			RequestedBy: models.AutoplayRequester,
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleEntries())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		header := "track_id,track_name,artist_name,artist_id,album_art_url,is_explicit,timestamp,requested_by"
		if !strings.HasPrefix(output, header) {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		for _, want := range []string{"track1", "Song One", "alice", "autoplay", "true"} {
			if !strings.Contains(output, want) {
				t.Errorf("CSV missing %q", want)
			}
		}

		var back []models.PlaybackHistoryEntry
		if err := gocsv.UnmarshalBytes(data, &back); err != nil {
			t.Fatalf("failed to read CSV back: %v", err)
		}
		if len(back) != 2 || back[1].TrackName != "Song | Two" || !back[1].Timestamp.Equal(sampleEntries()[1].Timestamp) {
			t.Errorf("unexpected rows %+v", back)
		}
	})

	t.Run("ExportToCSV empty", func(t *testing.T) {
		data, err := ExportToCSV(nil)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		if !strings.HasPrefix(string(data), "track_id,") {
			t.Errorf("expected header only, got %q", data)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleEntries())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var raw []map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(raw) != 2 || raw[0]["requestedBy"] != "alice" || raw[1]["isExplicit"] != true {
			t.Errorf("unexpected JSON %s", data)
		}

		empty, _ := ExportToJSON(nil)
		if strings.TrimSpace(string(empty)) != "[]" {
			t.Errorf("expected [], got %s", empty)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleEntries())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Playback History",
			"**Plays**: 2",
			"| 1 | 2024-05-01 20:15:00 | Song One | Artist One | alice |",
			`Song \| Two 🅴`,
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q in:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToMarkdown empty", func(t *testing.T) {
		data, _ := ExportToMarkdown(nil)
		if strings.Contains(string(data), "|") {
			t.Errorf("expected no table for empty history, got %s", data)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleEntries())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Plays: 2") {
			t.Error("Text missing count")
		}
		if !strings.Contains(output, "1. [2024-05-01 20:15:00] Song One - Artist One (requested by alice)") {
			t.Errorf("Text missing first line, got:\n%s", output)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tc := map[string]Format{"csv": CSV, "JSON": JSON, "md": Markdown, "markdown": Markdown, "txt": Text, " text ": Text}
	for in, want := range tc {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestWriters(t *testing.T) {
	t.Run("WriteExport to path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.md")

		got, err := WriteExport(sampleEntries(), Markdown, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		th.AssertFileExists(t, path)
		if !strings.Contains(th.MustReadFile(t, path), "Song One") {
			t.Error("expected export content")
		}
	})

	t.Run("WriteExport default name", func(t *testing.T) {
		t.Chdir(t.TempDir())

		got, err := WriteExport(sampleEntries(), CSV, "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != "playback_history.csv" {
			t.Errorf("unexpected default path %s", got)
		}
		th.AssertFileExists(t, got)
	})

	t.Run("WriteExport unknown format", func(t *testing.T) {
		if _, err := WriteExport(nil, Format("xml"), filepath.Join(t.TempDir(), "x")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("WriteExport unwritable path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "dir", "out.txt")
		if _, err := WriteExport(sampleEntries(), Text, path); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})
}
