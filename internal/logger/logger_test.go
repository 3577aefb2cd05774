// internal/logger/logger_test.go
//
// Unit-tests for the daily JSON logger.
//
// Run: go test ./internal/logger -v

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewWritesDailyJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	log, err := New(dir, "warn", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Infow("hidden", "k", 1)
	log.Warnw("session evicted", "session", "s1")
	if err := log.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, time.Now().Format("2006-01-02")+".log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"session evicted"`) || !strings.Contains(out, `"level":"warn"`) {
		t.Fatalf("warn line missing:\n%s", out)
	}
	if strings.Contains(out, "hidden") || strings.Contains(out, "logger online") {
		t.Errorf("info lines written at warn level:\n%s", out)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(t.TempDir(), "chatty", false); err == nil || !strings.Contains(err.Error(), "log level") {
		t.Fatalf("want log level error, got %v", err)
	}
}
