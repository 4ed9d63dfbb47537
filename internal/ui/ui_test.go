package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestConsoleNotifier(t *testing.T) {
	t.Run("writes timestamped line", func(t *testing.T) {
		var buf bytes.Buffer
		n := NewConsoleNotifier(&buf, nil)
		n.now = func() time.Time { return time.Date(2024, 1, 1, 9, 30, 15, 0, time.UTC) }

		n.Notify("queued Song - Band", Success)

		out := buf.String()
		if !strings.Contains(out, "09:30:15") {
			t.Errorf("expected timestamp in %q", out)
		}
		if !strings.Contains(out, "queued Song - Band") {
			t.Errorf("expected message in %q", out)
		}
		if !strings.HasSuffix(out, "\n") {
			t.Error("expected trailing newline")
		}
	})

	t.Run("concurrent lines stay whole", func(t *testing.T) {
		var buf bytes.Buffer
		n := NewConsoleNotifier(&buf, nil)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n.Notify("line", Info)
			}()
		}
		wg.Wait()

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 50 {
			t.Errorf("expected 50 lines, got %d", len(lines))
		}
	})
}

func TestSeverity(t *testing.T) {
	tc := map[Severity]string{
		Info:       "info",
		Success:    "success",
		Warning:    "warning",
		Error:      "error",
		Moderation: "moderation",
	}
	for sev, want := range tc {
		if sev.String() != want {
			t.Errorf("%d.String() = %q, want %q", sev, sev.String(), want)
		}
	}
}

func TestNotifierFunc(t *testing.T) {
	var got []string
	var n Notifier = NotifierFunc(func(m string, s Severity) { got = append(got, s.String()+":"+m) })
	n.Notify("hi", Warning)
	Nop.Notify("ignored", Error)

	if len(got) != 1 || got[0] != "warning:hi" {
		t.Errorf("unexpected notifications %v", got)
	}
}

func TestPalette(t *testing.T) {
	p := DefaultPalette()
	for _, sev := range []Severity{Info, Success, Warning, Error, Moderation} {
		if !strings.Contains(p.Paint("text", sev), "text") {
			t.Errorf("expected painted text to contain input for %s", sev)
		}
	}
}
