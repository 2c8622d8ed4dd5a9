package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestLoggerEmitsComponentField(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Component: "registry", Output: &buf})

	log.WithField("token_id", 7).Info("token minted")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["component"] != "registry" {
		t.Fatalf("component field missing: %v", entry)
	}
	if entry["token_id"] != float64(7) {
		t.Fatalf("token_id field missing: %v", entry)
	}
	if entry["msg"] != "token minted" {
		t.Fatalf("unexpected message: %v", entry["msg"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Component: "test", Level: "warn", Output: &buf})

	log.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line emitted at warn level: %s", buf.String())
	}

	log.WithError(errors.New("boom")).Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("warn line not emitted")
	}
}
