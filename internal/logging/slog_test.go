package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// rejectingHandler fails every record, like a Graylog sink whose socket is gone.
type rejectingHandler struct {
	slog.Handler
}

func (rejectingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (rejectingHandler) Handle(context.Context, slog.Record) error { return errors.New("write: connection refused") }

func newOTelProvider(t *testing.T, buf *bytes.Buffer) *sdklog.LoggerProvider {
	t.Helper()
	exp, err := stdoutlog.New(stdoutlog.WithWriter(buf))
	require.NoError(t, err)
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	t.Cleanup(func() { provider.Shutdown(context.Background()) })
	return provider
}

func TestSetup_FileSinkKeepsStdoutQuiet(t *testing.T) {
	restore := captureStdout(t)

	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil)
	m.Logger().Info("bakery placed", "x", 2, "y", 2)

	assert.Empty(t, restore())
	assert.Contains(t, file.String(), "bakery placed")
	assert.Equal(t, []string{SinkFile}, m.Sinks())
}

func TestSetup_ConsoleWithoutFile(t *testing.T) {
	restore := captureStdout(t)

	m := NewSlogManager()
	m.Setup(nil, "info", nil)
	m.Logger().Info("no log file configured")

	assert.Contains(t, restore(), "no log file configured")
	assert.Equal(t, []string{SinkConsole}, m.Sinks())
}

func TestSetup_LevelFromConfig(t *testing.T) {
	tests := map[string]bool{
		"debug":   true,
		"DEBUG":   true,
		"info":    false,
		"warn":    false,
		"":        false,
		"verbose": false,
	}
	for level, wantDebug := range tests {
		t.Run(level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, level, nil)
			m.Logger().Debug("reconciled truck")
			assert.Equal(t, wantDebug, bytes.Contains(buf.Bytes(), []byte("reconciled truck")))
		})
	}
}

func TestSetup_AllSinks(t *testing.T) {
	var file, otelOut, graylog bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", newOTelProvider(t, &otelOut),
		Sink{Name: SinkGraylog, Handler: slog.NewJSONHandler(&graylog, nil)})

	assert.Equal(t, []string{SinkFile, SinkOTel, SinkGraylog}, m.Sinks())

	m.Logger().Info("snapshot saved", "tick", 12)
	require.NoError(t, m.Flush(context.Background()))

	assert.Contains(t, file.String(), "snapshot saved")
	assert.Contains(t, otelOut.String(), "snapshot saved")
	assert.Contains(t, otelOut.String(), ServiceName)
	assert.Contains(t, graylog.String(), `"msg":"snapshot saved"`)
	assert.Empty(t, m.SinkFailures())
}

func TestSetup_WorldStateStamped(t *testing.T) {
	var buf bytes.Buffer
	ready := false
	m := NewSlogManager()
	m.SetWorldState(func() (WorldState, bool) {
		return WorldState{Tick: 42, Checksum: "0123456789abcdef"}, ready
	})
	m.Setup(&buf, "info", nil)

	m.Logger().Info("engine starting")
	assert.NotContains(t, buf.String(), "tick=", "no stamp while the engine is unavailable")

	ready = true
	buf.Reset()
	m.Logger().Info("truck arrived")
	assert.Contains(t, buf.String(), "tick=42 grid=0123456789ab")

	buf.Reset()
	m.Logger().Info("tick done", "tick", 41)
	assert.Contains(t, buf.String(), "tick=41")
	assert.NotContains(t, buf.String(), "tick=42")
}

func TestSetup_FailingSinkIsCounted(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil, Sink{Name: SinkGraylog, Handler: rejectingHandler{}})

	m.Logger().Info("zone added")
	m.Logger().With("zone", "market").Info("slot taken")

	assert.Contains(t, file.String(), "zone=market")
	// includes the setup record
	assert.Equal(t, map[string]int64{SinkGraylog: 3}, m.SinkFailures())
}

func TestSetup_ReplacesSinks(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()
	m.Setup(&first, "info", nil, Sink{Name: SinkGraylog, Handler: rejectingHandler{}})
	m.Setup(&second, "info", nil)

	m.Logger().Info("after reload")
	assert.NotContains(t, first.String(), "after reload")
	assert.Contains(t, second.String(), "after reload")
	assert.Empty(t, m.SinkFailures())
}

func TestNewGraylogSink(t *testing.T) {
	sink, closer, err := NewGraylogSink("127.0.0.1:12201", "info")
	require.NoError(t, err)
	t.Cleanup(func() { closer.Close() })
	assert.Equal(t, SinkGraylog, sink.Name)

	// UDP send succeeds without a listener
	slog.New(sink.Handler).Info("to graylog")

	_, _, err = NewGraylogSink("not an address", "info")
	assert.Error(t, err)
}

func TestWriteLog_CommandAttr(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "debug", nil)

	m.WriteLog(":SAVE:", "Snapshot saved", "INFO")
	m.WriteLog("sqlite:dumpLoop", "Dumped to disk", "DEBUG")

	assert.Contains(t, buf.String(), `msg="Snapshot saved"`)
	assert.Contains(t, buf.String(), "command=:SAVE:")
	assert.Contains(t, buf.String(), "level=DEBUG")
}

func TestManager_BeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.Nil(t, m.Sinks())
	assert.Nil(t, m.SinkFailures())
	assert.NoError(t, m.Flush(context.Background()))
	m.WriteLog(":SAVE:", "dropped", "INFO")
}

// captureStdout redirects the console sink to a pipe and returns a function
// that restores it and returns what was captured.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := osPipe()
	require.NoError(t, err)

	orig := osStdout
	osStdout = w

	return func() string {
		w.Close()
		osStdout = orig
		var buf bytes.Buffer
		buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}
