package core

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
)

func newBufferedLogger(level LogLevel) (*ProductionLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := &ProductionLogger{
		component: "test/logger",
		level:     level,
		out:       json.NewEncoder(&buf),
		mu:        &sync.Mutex{},
	}
	return l, &buf
}

func TestProductionLoggerRespectsLevel(t *testing.T) {
	l, buf := newBufferedLogger(LogLevelWarn)

	l.Debug("should be dropped", nil)
	l.Info("should be dropped too", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output below configured level, got %q", buf.String())
	}

	l.Warn("shows up", nil)
	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected valid JSON line, got error: %v", err)
	}
	if record["level"] != "warn" || record["component"] != "test/logger" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestProductionLoggerErrorAlwaysEmits(t *testing.T) {
	l, buf := newBufferedLogger(LogLevelError)
	l.Error("boom", map[string]interface{}{"step_id": "a"})

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected valid JSON line, got error: %v", err)
	}
	if record["step_id"] != "a" {
		t.Errorf("expected extra fields merged into record, got %v", record)
	}
}

func TestProductionLoggerWithComponentTagsNewComponent(t *testing.T) {
	l, buf := newBufferedLogger(LogLevelInfo)
	scoped := l.WithComponent("orchestration/scheduler")
	scoped.Info("hello", nil)

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected valid JSON line, got error: %v", err)
	}
	if record["component"] != "orchestration/scheduler" {
		t.Errorf("expected component to be overridden, got %v", record["component"])
	}
}

func TestProductionLoggerWithRequestIDCorrelatesFields(t *testing.T) {
	l, buf := newBufferedLogger(LogLevelInfo)
	ctx := WithRequestID(context.Background(), "req-123")
	l.InfoWithContext(ctx, "handled", nil)

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected valid JSON line, got error: %v", err)
	}
	if record["request_id"] != "req-123" {
		t.Errorf("expected request_id to be attached, got %v", record)
	}
}
