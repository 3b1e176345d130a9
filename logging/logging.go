// Package logging configures the global logger from the environment and adds
// the trace hooks. Import it with the blank identifier from main.
// New builds a separate logger for code that must not touch the global one.
package logging

import (
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

const (
	LevelEnv  = "LOG_LEVEL"
	FormatEnv = "LOG_FORMAT"

	DefaultLevel = "info"
	FormatJSON   = "json"
)

func init() {
	level, ok := os.LookupEnv(LevelEnv)
	if !ok {
		level = DefaultLevel
	}

	if err := configure(log.StandardLogger(), level, os.Getenv(FormatEnv)); err != nil {
		log.Fatal(err)
	}
}

// New returns a logger with the same hooks as the global one.
func New(level, format string) (*log.Logger, error) {
	logger := log.New()
	if err := configure(logger, level, format); err != nil {
		return nil, err
	}

	return logger, nil
}

func configure(logger *log.Logger, level, format string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	logger.AddHook(&contextHook{})
	logger.AddHook(&fieldFilterHook{})
	logger.SetLevel(parsed)
	logger.SetFormatter(formatter(format))
	// file and line of every entry
	logger.SetReportCaller(parsed >= log.DebugLevel)

	return nil
}

func formatter(format string) log.Formatter {
	if format == FormatJSON {
		return &log.JSONFormatter{}
	}

	return &log.TextFormatter{FullTimestamp: true}
}

// contextHook copies the trace and span ids of the entry context, named the
// way Datadog correlates logs with traces.
type contextHook struct{}

func (hook *contextHook) Levels() []log.Level {
	return log.AllLevels
}

func (hook *contextHook) Fire(entry *log.Entry) error {
	if entry.Context == nil {
		return nil
	}
	span := trace.SpanFromContext(entry.Context).SpanContext()
	if span.IsValid() {
		entry.Data["dd.trace_id"] = convertTraceID(span.TraceID().String())
		entry.Data["dd.span_id"] = convertTraceID(span.SpanID().String())
	}

	return nil
}

// fieldFilterHook drops fields the log indexer rejects.
type fieldFilterHook struct{}

func (h *fieldFilterHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *fieldFilterHook) Fire(entry *log.Entry) error {
	delete(entry.Data, "hostname")

	return nil
}

// convertTraceID keeps the low 64 bits of a hex id as a decimal string.
// https://docs.datadoghq.com/tracing/other_telemetry/connect_logs_and_traces/opentelemetry?tab=go
func convertTraceID(id string) string {
	if len(id) < 16 {
		return ""
	}
	if len(id) > 16 {
		id = id[16:]
	}
	intValue, err := strconv.ParseUint(id, 16, 64)
	if err != nil {
		return ""
	}

	return strconv.FormatUint(intValue, 10)
}
