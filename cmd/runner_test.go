package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/chatdj/internal/locale"
	"github.com/desertthunder/chatdj/internal/models"
	"github.com/desertthunder/chatdj/internal/repositories"
	"github.com/desertthunder/chatdj/internal/shared"
	tu "github.com/desertthunder/chatdj/internal/testing"
	"github.com/urfave/cli/v3"
)

const testTrackID = "4uLU6hMCjMI75M1A2tKUQC"

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	config := shared.DefaultConfig()
	config.Storage.Dir = t.TempDir()
	output := &bytes.Buffer{}
	return NewRunner(RunnerOpts{Config: config, Output: output, Notifier: &tu.RecordingNotifier{}}), output
}

func runArgs(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	root := &cli.Command{Name: "chatdj", Commands: r.register()}
	return root.Run(context.Background(), append([]string{"chatdj"}, args...))
}

func seedHistory(t *testing.T, r *Runner, names ...string) {
	t.Helper()
	history, err := r.openHistory()
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	at := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	for i, name := range names {
		track := models.Track{ID: name + "-id", Name: name, Artist: models.Artist{ID: "a1", Name: "Band"}}
		if _, err := history.Record(track, "viewer", at.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			notifier := &tu.RecordingNotifier{}
			translator := locale.NewCatalog()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "config.toml",
				Logger:     logger,
				Output:     output,
				Notifier:   notifier,
				Translator: translator,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.notifier != notifier {
				t.Error("expected notifier to be set")
			}
			if runner.translator != translator {
				t.Error("expected translator to be set")
			}
			if runner.configPath != "config.toml" {
				t.Errorf("expected configPath 'config.toml', got %q", runner.configPath)
			}
		})

		t.Run("with nil fields uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to stdout")
			}
			if runner.notifier == nil {
				t.Error("expected default notifier to be set")
			}
			if runner.translator == nil {
				t.Error("expected default translator to be set")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(output.String(), "\n  \"key\": \"value\"\n") {
				t.Errorf("expected indented JSON, got %q", output.String())
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if output.String() != "{\"key\":\"value\"}\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(map[string]any{"ch": make(chan int)}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes formatted text", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("%s has %d plays\n", "alice", 3); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "alice has 3 plays\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("text"); err == nil {
				t.Error("expected error for failing writer")
			}
			if err := runner.writePlainln("text"); err == nil {
				t.Error("expected error for failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"run", "auth", "history", "blacklist", "config"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, name := range want {
			if commands[i].Name != name {
				t.Errorf("expected command %d to be %q, got %q", i, name, commands[i].Name)
			}
		}
	})

	t.Run("setupLocale", func(t *testing.T) {
		t.Run("loads a catalog file", func(t *testing.T) {
			runner, _ := newTestRunner(t)
			path := filepath.Join(t.TempDir(), "de.json")
			if err := os.WriteFile(path, []byte(`{"`+string(locale.KeyChatJoined)+`": "Verbunden mit {CHANNEL}"}`), 0644); err != nil {
				t.Fatal(err)
			}
			runner.config.Locale = shared.LocaleConfig{Language: "de", CatalogPath: path}

			runner.setupLocale()

			if runner.translator.Language() != "de" {
				t.Errorf("expected language de, got %q", runner.translator.Language())
			}
		})

		t.Run("unknown language falls back to English", func(t *testing.T) {
			runner, _ := newTestRunner(t)
			runner.config.Locale = shared.LocaleConfig{Language: "xx"}

			runner.setupLocale()

			if runner.translator.Language() != "en" {
				t.Errorf("expected language en, got %q", runner.translator.Language())
			}
		})
	})
}

func TestHistoryCommands(t *testing.T) {
	t.Run("list prints newest first", func(t *testing.T) {
		runner, output := newTestRunner(t)
		seedHistory(t, runner, "First", "Second", "Third")

		if err := runArgs(t, runner, "history", "list", "--limit", "2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := output.String()
		if !strings.Contains(out, "Playback history (2 of 3)") {
			t.Errorf("expected header with counts, got %q", out)
		}
		if strings.Contains(out, "First") {
			t.Error("expected oldest entry to be cut by the limit")
		}
		if strings.Index(out, "Third") > strings.Index(out, "Second") {
			t.Error("expected newest entry first")
		}
	})

	t.Run("list as JSON", func(t *testing.T) {
		runner, output := newTestRunner(t)
		seedHistory(t, runner, "Only")

		if err := runArgs(t, runner, "history", "list", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var entries []models.PlaybackHistoryEntry
		if err := json.Unmarshal(output.Bytes(), &entries); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if len(entries) != 1 || entries[0].TrackName != "Only" || entries[0].RequestedBy != "viewer" {
			t.Errorf("unexpected entries %+v", entries)
		}
	})

	t.Run("list with no plays", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runArgs(t, runner, "history", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "No plays recorded yet") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("export writes the chosen format", func(t *testing.T) {
		runner, output := newTestRunner(t)
		seedHistory(t, runner, "First", "Second")
		path := filepath.Join(t.TempDir(), "history.md")

		if err := runArgs(t, runner, "history", "export", "-f", "md", "-o", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, path)
		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, "First") || !strings.Contains(content, "Second") {
			t.Errorf("expected both plays in export, got %q", content)
		}
		if !strings.Contains(output.String(), "Exported 2 plays") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("export rejects unknown format", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		err := runArgs(t, runner, "history", "export", "-f", "xlsx", "-o", filepath.Join(t.TempDir(), "out"))
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("clear empties the log", func(t *testing.T) {
		runner, output := newTestRunner(t)
		seedHistory(t, runner, "First", "Second")

		if err := runArgs(t, runner, "history", "clear"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Removed 2 plays") {
			t.Errorf("unexpected output %q", output.String())
		}

		history, err := runner.openHistory()
		if err != nil {
			t.Fatal(err)
		}
		if history.Len() != 0 {
			t.Errorf("expected empty history after reopen, got %d", history.Len())
		}
	})
}

func TestBlacklistCommands(t *testing.T) {
	t.Run("add accepts a Spotify link", func(t *testing.T) {
		runner, output := newTestRunner(t)

		link := "https://open.spotify.com/track/" + testTrackID + "?si=abc"
		if err := runArgs(t, runner, "blacklist", "add", "song", link); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Added track "+testTrackID) {
			t.Errorf("unexpected output %q", output.String())
		}

		store, err := runner.openBlacklist()
		if err != nil {
			t.Fatal(err)
		}
		if !store.IsTrackBlacklisted(testTrackID) {
			t.Error("expected track to persist across reopen")
		}
	})

	t.Run("add rejects a link of the wrong kind", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		err := runArgs(t, runner, "blacklist", "add", "artist", "https://open.spotify.com/track/"+testTrackID)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("add is idempotent", func(t *testing.T) {
		runner, output := newTestRunner(t)

		for range 2 {
			if err := runArgs(t, runner, "blacklist", "add", "user", "Alice"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
		if !strings.Contains(output.String(), "already blacklisted") {
			t.Errorf("expected redundant add to be reported, got %q", output.String())
		}

		store, err := runner.openBlacklist()
		if err != nil {
			t.Fatal(err)
		}
		if !store.IsUserBlacklisted("alice") {
			t.Error("expected user name to be folded")
		}
	})

	t.Run("remove", func(t *testing.T) {
		runner, output := newTestRunner(t)
		if err := runArgs(t, runner, "blacklist", "add", "artist", "artist1"); err != nil {
			t.Fatal(err)
		}

		if err := runArgs(t, runner, "blacklist", "rm", "band", "artist1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := runArgs(t, runner, "blacklist", "remove", "artist", "artist1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := output.String()
		if !strings.Contains(out, "Removed artist artist1") || !strings.Contains(out, "is not blacklisted") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("missing value", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		err := runArgs(t, runner, "blacklist", "add", "track")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		err := runArgs(t, runner, "blacklist", "add", "album", "x")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		runner, output := newTestRunner(t)
		for _, args := range [][]string{{"track", "t1"}, {"user", "bob"}} {
			if err := runArgs(t, runner, "blacklist", "add", args[0], args[1]); err != nil {
				t.Fatal(err)
			}
		}
		output.Reset()

		if err := runArgs(t, runner, "blacklist", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := output.String()
		for _, want := range []string{"track blacklist (1)", "artist blacklist (0)", "user blacklist (1)", "t1", "bob"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output %q", want, out)
			}
		}

		output.Reset()
		if err := runArgs(t, runner, "blacklist", "list", "--json", "user"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var got map[string][]string
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if len(got) != 1 || len(got["user"]) != 1 || got["user"][0] != "bob" {
			t.Errorf("unexpected JSON %v", got)
		}
	})
}

func TestBlacklistID(t *testing.T) {
	tests := []struct {
		name  string
		kind  repositories.BlacklistKind
		value string
		want  string
		err   error
	}{
		{"bare track id", repositories.TrackBlacklist, testTrackID, testTrackID, nil},
		{"track uri", repositories.TrackBlacklist, "spotify:track:" + testTrackID, testTrackID, nil},
		{"artist link", repositories.ArtistBlacklist, "https://open.spotify.com/artist/" + testTrackID, testTrackID, nil},
		{"album link", repositories.TrackBlacklist, "https://open.spotify.com/album/" + testTrackID, "", shared.ErrInvalidArgument},
		{"user kept as given", repositories.UserBlacklist, "https://example.com", "https://example.com", nil},
		{"blank", repositories.UserBlacklist, "  ", "", shared.ErrMissingArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := blacklistID(tt.kind, tt.value)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConfigCommands(t *testing.T) {
	t.Run("init writes the example file once", func(t *testing.T) {
		runner, output := newTestRunner(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := runArgs(t, runner, "config", "init", "-c", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), "Configuration written to "+path) {
			t.Errorf("unexpected output %q", output.String())
		}

		if err := runArgs(t, runner, "config", "init", "-c", path); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected existing file to be refused, got %v", err)
		}
	})

	t.Run("check reports missing credentials", func(t *testing.T) {
		runner, output := newTestRunner(t)

		err := runArgs(t, runner, "config", "check")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}

		out := output.String()
		for _, want := range []string{"✗ Spotify", "✗ Twitch chat", "!queue", "everyone", "!ban", "broadcaster, mod"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output %q", want, out)
			}
		}
	})

	t.Run("check passes with credentials", func(t *testing.T) {
		runner, output := newTestRunner(t)
		creds := &runner.config.Credentials
		creds.Spotify.ClientID = "id"
		creds.Spotify.ClientSecret = "secret"
		creds.Twitch.BotUsername = "djbot"
		creds.Twitch.OAuthToken = "oauth:token"
		creds.Twitch.Channel = "streamer"

		if err := runArgs(t, runner, "config", "check"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "✓ Twitch chat") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}
