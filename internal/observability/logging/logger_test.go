package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoggerCarriesServiceAndUTCTime(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "poller", "info")

	log.Info("poll_cycle_done", "job", "sweep")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if line["service"] != "poller" {
		t.Fatalf("service = %v, want poller", line["service"])
	}
	ts, ok := line["time"].(string)
	if !ok {
		t.Fatalf("time attr missing: %v", line)
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		t.Fatalf("time %q not RFC3339: %v", ts, err)
	}
	if _, offset := parsed.Zone(); offset != 0 {
		t.Fatalf("time %q not UTC", ts)
	}
}

func TestLoggerFiltersBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "worker", "warn")

	log.Info("suppressed")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info line leaked at warn level: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn line missing: %s", out)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got != slog.LevelInfo {
		t.Fatalf("parseLevel(verbose) = %v, want info", got)
	}
	if got := parseLevel(" Debug "); got != slog.LevelDebug {
		t.Fatalf("parseLevel(debug) = %v, want debug", got)
	}
}
