package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName is the instrumentation scope used for the OTel log bridge.
const ServiceName = "pogicity"

// swapped in tests
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel and Graylog sinks.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	// stamps tick and grid checksum when set
	world WorldStateFunc

	sinks *sinkSet
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// SetWorldState makes every record carry the tick and grid checksum
// reported by fn. Takes effect on the next Setup.
func (m *SlogManager) SetWorldState(fn WorldStateFunc) {
	m.world = fn
}

// Setup initializes the logging system. Records go to the file sink when
// file is set, to the console otherwise, and additionally to the OTel
// provider and any extra sinks (e.g. Graylog).
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...Sink) {
	opts := handlerOptions(level)
	m.logProvider = provider

	var sinks []Sink
	if file != nil {
		sinks = append(sinks, Sink{Name: SinkFile, Handler: slog.NewTextHandler(file, opts)})
	} else {
		sinks = append(sinks, Sink{Name: SinkConsole, Handler: slog.NewTextHandler(osStdout, opts)})
	}
	if provider != nil {
		sinks = append(sinks, Sink{Name: SinkOTel, Handler: otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider))})
	}
	sinks = append(sinks, extra...)

	m.sinks = newSinkSet(sinks...)
	var h slog.Handler = m.sinks
	if m.world != nil {
		h = newWorldHandler(h, m.world)
	}

	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", level, "sinks", m.sinks.names())
}

// Sinks returns the names of the configured sinks in delivery order.
func (m *SlogManager) Sinks() []string {
	if m.sinks == nil {
		return nil
	}
	return m.sinks.names()
}

// SinkFailures returns how many records each sink failed to take, omitting
// sinks that never failed.
func (m *SlogManager) SinkFailures() map[string]int64 {
	if m.sinks == nil {
		return nil
	}
	return m.sinks.failureCounts()
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog writes a log entry attributed to the named command.
func (m *SlogManager) WriteLog(command, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "command", command)
}
