package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("production", &buf)
	log.Info().Str("module", "test").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "hello" || entry["module"] != "test" || entry["level"] != "info" {
		t.Errorf("unexpected entry %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected a timestamp")
	}
}

func TestNew_DevelopmentIsHumanReadable(t *testing.T) {
	var buf bytes.Buffer
	log := New("development", &buf)
	log.Debug().Msg("visible in development")

	if !strings.Contains(buf.String(), "visible in development") {
		t.Errorf("expected debug output, got %q", buf.String())
	}
	if strings.HasPrefix(buf.String(), "{") {
		t.Error("development output should not be JSON")
	}
}
