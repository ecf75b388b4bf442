package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManager_DefaultConfig(t *testing.T) {
	mgr, logger := NewManager(DefaultConfig())
	defer mgr.Close() //nolint:errcheck

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	cfg := mgr.Config()
	if cfg.Level != "info" || cfg.Format != "text" || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults: %s", cfg)
	}
}

func TestManager_LevelSwap(t *testing.T) {
	ctx := context.Background()
	mgr, logger := NewManager(Config{Level: "info", Format: "json", Output: "stderr"})
	defer mgr.Close() //nolint:errcheck

	if !logger.Enabled(ctx, slog.LevelInfo) || logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected info enabled and debug disabled")
	}

	mgr.Reconfigure(Config{Level: "debug", Format: "json", Output: "stderr"})
	if !logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected debug to be enabled after reconfigure")
	}

	// Child loggers share the level.
	child := logger.With(slog.String("component", "analyzer"))
	mgr.Reconfigure(Config{Level: "error", Format: "json", Output: "stderr"})
	if child.Enabled(ctx, slog.LevelWarn) {
		t.Error("expected warn to be disabled on child logger when level is error")
	}
	if !child.Enabled(ctx, slog.LevelError) {
		t.Error("expected error to be enabled")
	}
}

func TestManager_FormatAndOutputSwap(t *testing.T) {
	mgr, _ := NewManager(Config{Level: "info", Format: "json", Output: "stdout"})
	defer mgr.Close() //nolint:errcheck

	mgr.Reconfigure(Config{Level: "info", Format: "text", Output: "stderr"})
	cfg := mgr.Config()
	if cfg.Format != "text" || cfg.Output != "stderr" {
		t.Errorf("expected text on stderr after reconfigure, got %s", cfg)
	}
}

func TestManager_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "trackyear.log")

	mgr, logger := NewManager(Config{
		Level:          "info",
		Format:         "json",
		Output:         "stderr",
		FilePath:       logFile,
		FileMaxSizeMB:  1,
		FileMaxFiles:   1,
		FileMaxAgeDays: 1,
	})
	logger.Info("run complete", slog.String("playlist", "Seventies Classics"))

	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"playlist":"Seventies Classics"`) {
		t.Errorf("expected json record in log file, got %s", data)
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	mgr, _ := NewManager(DefaultConfig())
	for i := range 2 {
		if err := mgr.Close(); err != nil {
			t.Fatalf("close %d: %v", i+1, err)
		}
	}
}

func TestValidators(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(l) {
			t.Errorf("expected level %q to be valid", l)
		}
	}
	for _, l := range []string{"", "trace", "DEBUG"} {
		if ValidLevel(l) {
			t.Errorf("expected level %q to be invalid", l)
		}
	}
	if !ValidFormat("text") || !ValidFormat("json") || ValidFormat("xml") {
		t.Error("unexpected format validation")
	}
	if !ValidOutput("") || !ValidOutput("stderr") || ValidOutput("syslog") {
		t.Error("unexpected output validation")
	}
}

func TestParseAndFormatLevel(t *testing.T) {
	tests := []struct {
		in  string
		out slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}
	for _, tt := range tests {
		got := parseLevel(tt.in)
		if got != tt.out {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.out)
		}
		if tt.in != "unknown" && FormatLevel(got) != tt.in {
			t.Errorf("FormatLevel(%v) = %q, want %q", got, FormatLevel(got), tt.in)
		}
	}
}

func TestConfig_String(t *testing.T) {
	cfg := Config{Level: "debug", Format: "text", Output: "stderr"}
	if s := cfg.String(); s != "level=debug format=text output=stderr" {
		t.Errorf("unexpected string: %s", s)
	}

	cfg.FilePath = "/var/log/trackyear.log"
	cfg.FileMaxSizeMB = 50
	cfg.FileMaxFiles = 5
	cfg.FileMaxAgeDays = 7
	want := "level=debug format=text output=stderr file=/var/log/trackyear.log max_size=50MB max_files=5 max_age=7d"
	if s := cfg.String(); s != want {
		t.Errorf("got %q, want %q", s, want)
	}
}
