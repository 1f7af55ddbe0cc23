package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "INFO", "json")

	log.Debug("hidden")
	log.Info("visible", "gear_id", "abc")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if entry["msg"] != "visible" {
		t.Errorf("msg = %v, want %q", entry["msg"], "visible")
	}
	if entry["gear_id"] != "abc" {
		t.Errorf("gear_id = %v, want %q", entry["gear_id"], "abc")
	}
	if _, ok := entry["source"]; !ok {
		t.Error("source location missing")
	}
}

func TestNewLogger_UnknownLevelDefaultsToError(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "chatty", "json")

	log.Warn("hidden")
	if buf.Len() != 0 {
		t.Errorf("warn logged at default level: %q", buf.String())
	}

	log.Error("shown")
	if buf.Len() == 0 {
		t.Error("error not logged")
	}
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "DEBUG", "text")

	log.Debug("probe started", "url", "https://example.com")
	out := buf.String()
	if !strings.Contains(out, "probe started") {
		t.Errorf("output %q missing message", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("text format produced JSON: %q", out)
	}
}
