package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
		ok   bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{" WARN ", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"chatty", zapcore.InfoLevel, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xpl.log")
	logger, err := New(Options{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Debug("hello", zap.String("k", "v"))
	_ = logger.Sync()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "\"msg\":\"hello\"") {
		t.Fatalf("expected entry in log file, got %q", data)
	}
	logger.Level.SetLevel(zapcore.ErrorLevel)
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected level change to take effect")
	}
}

func TestWithSessionTagsEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger, id := WithSession(zap.New(core))
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected a uuid session id, got %q", id)
	}
	logger.Info("started")
	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["session"] != id {
		t.Fatalf("expected session field on entry, got %+v", entries)
	}
}
