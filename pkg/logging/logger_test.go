package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{" error ", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStructuredLogger_ContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("practice-analytics", "test", InfoLevel)
	logger.SetOutput(&buf)

	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-9")
	logger.Error(ctx, "[SAVE_FAILED] Report save failed", Fields{"date": "12-02-2025"}, errors.New("boom"))

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry.RequestID != "req-1" || entry.SessionID != "sess-9" {
		t.Errorf("ids = (%q, %q)", entry.RequestID, entry.SessionID)
	}
	if entry.Level != "ERROR" || entry.Error != "boom" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["date"] != "12-02-2025" {
		t.Errorf("fields = %v", entry.Fields)
	}
	if entry.Line == 0 {
		t.Error("error entries should carry caller info")
	}
}

func TestStructuredLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("practice-analytics", "test", WarnLevel)
	logger.SetOutput(&buf)

	logger.Info(context.Background(), "hidden", nil)
	logger.Warn(context.Background(), "shown", nil)

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestContextLogger_MergeFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("practice-analytics", "test", DebugLevel)
	logger.SetOutput(&buf)

	logger.WithFields(Fields{"component": "export", "stage": "a"}).Info(context.Background(), "msg", Fields{"stage": "b"})

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Fields["component"] != "export" || entry.Fields["stage"] != "b" {
		t.Errorf("fields = %v", entry.Fields)
	}
}

func TestContextLogger_ErrorCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("practice-analytics", "test", InfoLevel)
	logger.SetOutput(&buf)

	logger.WithFields(Fields{"component": "ingestion"}).Error(context.Background(), "failed", nil, errors.New("boom"))

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(entry.File, "logger_test.go") {
		t.Errorf("caller file = %q, want the logging call site", entry.File)
	}
	if entry.Error != "boom" || entry.Fields["component"] != "ingestion" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestStructuredLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("practice-analytics", "test", InfoLevel)
	logger.SetOutput(&buf)

	logger.Debug(context.Background(), "before", nil)
	logger.SetLevel(DebugLevel)
	logger.Debug(context.Background(), "after", nil)

	out := buf.String()
	if strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Errorf("unexpected output: %s", out)
	}
}
