package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/chatai/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
		{"trace", slog.LevelWarn},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig()

	log := New(cfg, &buf)
	log.Info("hidden")
	log.Warn("shown", "chat_id", "demo")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "chat_id=demo") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.Verbose = true
	cfg.LogLevel = "error"

	New(cfg, &buf).Debug("details")

	if !strings.Contains(buf.String(), "details") {
		t.Errorf("debug record missing with verbose: %s", buf.String())
	}
}

func TestOpenLogFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvHome, dir)

	f, err := OpenLogFile()
	if err != nil {
		t.Fatalf("OpenLogFile() returned error: %v", err)
	}
	if _, err := f.WriteString("line\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "line\n" {
		t.Errorf("log file = %q, want %q", data, "line\n")
	}
}
