package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := map[string]LogLevel{
		"":        Info,
		"debug":   Debug,
		"INFO":    Info,
		"warning": Warn,
		"warn":    Warn,
		"Error":   Error,
		"fatal":   Fatal,
	}

	for input, expected := range tests {
		level, err := Parse(input)
		if err != nil || level != expected {
			t.Errorf("Parse(%q): expected %s, got %s (err=%v)", input, expected, level, err)
		}
	}

	if _, err := Parse("verbose"); err == nil {
		t.Errorf("Expected error for unknown level")
	}
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("lvfs", Warn, &buf)

	logger.Debug("hidden %d", 1)
	logger.Info("hidden %d", 2)
	logger.Warn("shown %d", 3)
	logger.Error("shown %d", 4)

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("Entries below Warn were written: %q", output)
	}
	if !strings.Contains(output, "WARN  [lvfs] shown 3") || !strings.Contains(output, "ERROR [lvfs] shown 4") {
		t.Errorf("Unexpected output %q", output)
	}
}

func TestLogger_Named(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("lvfs", Debug, &buf).Named("badger")

	logger.Info("opened")
	if !strings.Contains(buf.String(), "[lvfs/badger] opened") {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("lvfs", Debug, &buf)
	logger.JSON = true

	logger.Info("stored %d chunks", 3)

	var entry logEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Invalid JSON entry %q: %v", buf.String(), err)
	}
	if entry.Level != "INFO" || entry.Component != "lvfs" || entry.Message != "stored 3 chunks" {
		t.Errorf("Unexpected entry %+v", entry)
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger.Enabled(Fatal) {
		t.Errorf("Expected discard logger to reject every level")
	}
	logger.Error("dropped")
}
