package shared

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestFiles(t *testing.T) {
	t.Run("WriteJSONFile then ReadJSONFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "ids.json")
		want := []string{"a", "b"}

		if err := WriteJSONFile(path, want); err != nil {
			t.Fatalf("WriteJSONFile() error = %v", err)
		}

		var got []string
		if err := ReadJSONFile(path, &got); err != nil {
			t.Fatalf("ReadJSONFile() error = %v", err)
		}
		if len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("ReadJSONFile missing file", func(t *testing.T) {
		var got []string
		err := ReadJSONFile(filepath.Join(t.TempDir(), "missing.json"), &got)
		if !os.IsNotExist(err) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})

	t.Run("WriteFileAtomic leaves no temp files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.txt")
		for _, content := range []string{"first", "second"} {
			if err := WriteFileAtomic(path, []byte(content)); err != nil {
				t.Fatalf("WriteFileAtomic() error = %v", err)
			}
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("expected 1 file in dir, got %d", len(entries))
		}

		data, _ := os.ReadFile(path)
		if string(data) != "second" {
			t.Errorf("got %q, want %q", data, "second")
		}
	})
}

func TestErrorClassification(t *testing.T) {
	tc := []struct {
		name   string
		err    error
		check  func(error) bool
		expect bool
	}{
		{"wrapped track blacklist", fmt.Errorf("queue: %w", ErrTrackBlacklisted), IsPolicyRejection, true},
		{"explicit", ErrExplicitBlocked, IsPolicyRejection, true},
		{"queue failure is not policy", ErrQueueFailed, IsPolicyRejection, false},
		{"artist not found", fmt.Errorf("%w: abc", ErrArtistNotFound), IsNotFound, true},
		{"refresh failure", fmt.Errorf("%w: revoked", ErrRefreshFailed), IsAuthFailure, true},
		{"service unavailable", ErrServiceUnavailable, IsTransient, true},
		{"plain error", errors.New("boom"), IsTransient, false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.expect {
				t.Errorf("got %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestOpenBrowser(t *testing.T) {
	t.Run("rejects non-http URLs", func(t *testing.T) {
		err := OpenBrowser("file:///etc/passwd")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		orig := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = orig }()

		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string, got %q", a)
	}
}
