package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   []string
	}{
		{FormatText, []string{"msg=loaded", "model=Qwen/Qwen2.5-0.5B"}},
		{FormatJSON, []string{`"msg":"loaded"`, `"model":"Qwen/Qwen2.5-0.5B"`}},
		{FormatPretty, []string{"loaded", "model=Qwen/Qwen2.5-0.5B"}},
		{FormatConsole, []string{"loaded", "model=Qwen/Qwen2.5-0.5B"}},
	}
	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			log, err := New(Options{Format: tc.format, Writer: &buf, NoColor: true})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			log.Info("loaded", "model", "Qwen/Qwen2.5-0.5B")
			for _, w := range tc.want {
				if !strings.Contains(buf.String(), w) {
					t.Fatalf("expected %q in output, got: %s", w, buf.String())
				}
			}
		})
	}
}

func TestNewRejectsUnknownInput(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	for _, format := range []string{FormatJSON, FormatPretty, FormatConsole} {
		var buf bytes.Buffer
		log, err := New(Options{Format: format, Level: "warn", Writer: &buf, NoColor: true})
		if err != nil {
			t.Fatalf("New(%s): %v", format, err)
		}
		log.Info("hidden")
		log.Debug("hidden too")
		if buf.Len() > 0 {
			t.Fatalf("%s: expected no output below warn, got: %s", format, buf.String())
		}
		log.Warn("shown")
		if !strings.Contains(buf.String(), "shown") {
			t.Fatalf("%s: expected warn record, got: %s", format, buf.String())
		}
	}
}

func TestConsoleWithAndGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Console(&buf, slog.LevelDebug, true)
	log.With("component", "hub").WithGroup("fetch").Debug("download", "file", "config.json", slog.Int("bytes", 42))

	out := buf.String()
	for _, w := range []string{"download", "component=hub", "fetch.file=config.json", "fetch.bytes=42"} {
		if !strings.Contains(out, w) {
			t.Fatalf("expected %q in output, got: %s", w, out)
		}
	}
}

func TestConsoleBadKey(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Console(&buf, slog.LevelInfo, true).Info("odd", "dangling")
	if !strings.Contains(buf.String(), "!BADKEY=dangling") {
		t.Fatalf("expected !BADKEY field, got: %s", buf.String())
	}
}

func TestConsoleErrorValue(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Console(&buf, slog.LevelInfo, true).Error("resolve failed", "err", errors.New("boom"))
	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected error text in output, got: %s", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	log := Discard()
	log.With("k", "v").Error("nothing")
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := WithContext(context.Background(), JSON(&buf, slog.LevelInfo))
	FromContext(ctx).Info("roundtrip")
	if !strings.Contains(buf.String(), "roundtrip") {
		t.Fatalf("expected message via context logger, got: %s", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without a logger returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"INFO+2", slog.LevelInfo + 2},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.input)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestPrettyGroupsAndPresets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, &PrettyOptions{NoColor: true})
	l := slog.New(h.WithAttrs([]slog.Attr{slog.String("service", "api")}).WithGroup("a").WithGroup("b"))
	l.Info("nested", "key", "val", slog.Group("g", slog.Int("n", 1)))

	out := buf.String()
	for _, w := range []string{"service=api", "a.b.key=val", "a.b.g.n=1"} {
		if !strings.Contains(out, w) {
			t.Fatalf("expected %q in output, got: %s", w, out)
		}
	}
	if h.WithGroup("") != h {
		t.Fatal("WithGroup with an empty name should return the same handler")
	}
}

func TestPrettyEnabled(t *testing.T) {
	t.Parallel()

	h := NewPrettyHandler(&bytes.Buffer{}, &PrettyOptions{Level: slog.LevelWarn})
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestPrettyQuoting(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slog.New(NewPrettyHandler(&buf, &PrettyOptions{NoColor: true})).Info("q", "path", "h[0].attn", "note", "two words")
	out := buf.String()
	if !strings.Contains(out, "path=h[0].attn") {
		t.Fatalf("simple strings should stay unquoted, got: %s", out)
	}
	if !strings.Contains(out, `note="two words"`) {
		t.Fatalf("strings with spaces should be quoted, got: %s", out)
	}
}

func TestNeedsQuoting(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"simple":    false,
		"":          false,
		"has space": true,
		"tab\there": true,
		`a"b`:       true,
		"k=v":       true,
	}
	for in, want := range tests {
		if got := needsQuoting(in); got != want {
			t.Errorf("needsQuoting(%q) = %v, want %v", in, got, want)
		}
	}
}
