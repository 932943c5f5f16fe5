package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "info")
	log.Info().Str("phase", "hydrate").Int("encounters", 3).Msg("hydrated")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["phase"] != "hydrate" || entry["message"] != "hydrated" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text", "info")
	log.Warn().Str("table", "ARPB_VISITS").Msg("spot check failed")
	out := buf.String()
	if !strings.Contains(out, "spot check failed") || !strings.Contains(out, "table=ARPB_VISITS") {
		t.Errorf("unexpected console output: %q", out)
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "warn")
	log.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	log.Error().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Error("error not logged at warn level")
	}

	buf.Reset()
	log = New(&buf, "json", "")
	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Error("empty level should default to info")
	}
	log = New(&buf, "json", "bogus")
	log.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Error("unknown level should default to info")
	}
}
