package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// LogLevel gates which records ProductionLogger emits.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func parseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LogLevelDebug
	case "warn":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// ProductionLogger is a structured, component-aware JSON logger. It satisfies
// both Logger and ComponentAwareLogger; WithComponent returns a shallow copy
// tagged with a new component string, following the naming convention
// documented on ComponentAwareLogger ("orchestration/scheduler", "dialogue/runtime", ...).
type ProductionLogger struct {
	component string
	level     LogLevel
	out       *json.Encoder
	mu        *sync.Mutex
	metrics   bool
}

// NewProductionLogger creates a logger writing newline-delimited JSON to stderr.
// levelEnv is read from the GOMIND_LOG_LEVEL convention ("debug"|"info"|"warn"|"error").
func NewProductionLogger(component, levelEnv string) ComponentAwareLogger {
	l := &ProductionLogger{
		component: component,
		level:     parseLogLevel(levelEnv),
		out:       json.NewEncoder(os.Stderr),
		mu:        &sync.Mutex{},
	}
	trackLogger(l)
	return l
}

func (l *ProductionLogger) WithComponent(component string) Logger {
	return &ProductionLogger{
		component: component,
		level:     l.level,
		out:       l.out,
		mu:        l.mu,
		metrics:   l.metrics,
	}
}

// EnableMetrics turns on best-effort metric emission via the global MetricsRegistry.
func (l *ProductionLogger) EnableMetrics() {
	l.metrics = true
}

func (l *ProductionLogger) write(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record := map[string]interface{}{
		"time":      time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"component": l.component,
		"message":   msg,
	}
	for k, v := range fields {
		record[k] = v
	}
	_ = l.out.Encode(record)
	if l.metrics {
		if registry := GetGlobalMetricsRegistry(); registry != nil {
			registry.Counter(fmt.Sprintf("log.%s", level), "component", l.component)
		}
	}
}

func (l *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	if l.level <= LogLevelInfo {
		l.write("info", msg, fields)
	}
}

func (l *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	l.write("error", msg, fields)
}

func (l *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	if l.level <= LogLevelWarn {
		l.write("warn", msg, fields)
	}
}

func (l *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	if l.level <= LogLevelDebug {
		l.write("debug", msg, fields)
	}
}

func withRequestID(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok && rid != "" {
		fields["request_id"] = rid
	}
	return fields
}

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func (l *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Info(msg, withRequestID(ctx, fields))
}

func (l *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Error(msg, withRequestID(ctx, fields))
}

func (l *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Warn(msg, withRequestID(ctx, fields))
}

func (l *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Debug(msg, withRequestID(ctx, fields))
}
