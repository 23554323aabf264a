package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

func TestDebugLoggerForDirWritesFile(t *testing.T) {
	dir := t.TempDir()
	logger := NewDebugLoggerForDir(dir)
	logger.Log("hello %s", "world")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".skyplan", "logs", "engine-debug.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello world") {
		t.Errorf("log file missing message: %q", string(data))
	}
}

func TestExecuteWritesDebugLog(t *testing.T) {
	dir := t.TempDir()
	logger := NewDebugLoggerForDir(dir)
	defer logger.Close()
	defer setPackageLogger(nil)

	a := &fakeProvider{id: "a", outputs: []string{"ka"}}
	reg := mustRegistry(t, fakeEntry(a))

	o := New(reg, Config{Logger: logger})
	if _, err := o.Execute(context.Background(), plan(1, "a"), models.NewContext()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".skyplan", "logs", "engine-debug.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	log := string(data)
	if !strings.Contains(log, "execute: iteration 1") {
		t.Errorf("log missing execution entry: %q", log)
	}
	if !strings.Contains(log, "invoke: a succeeded") {
		t.Errorf("log missing invoke entry: %q", log)
	}
}

func TestNopLoggerWritesNothing(t *testing.T) {
	logger := NopLogger()
	logger.Log("dropped")
	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
