package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fleetfeast/pogicity/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
)

func TestFromConfig_Defaults(t *testing.T) {
	cfg := FromConfig(config.OTelConfig{Enabled: true}, nil)
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.True(t, cfg.Enabled)
}

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutSink(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "x"})
	assert.Error(t, err)
}

func TestNew_WritesToLogWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(FromConfig(config.OTelConfig{Enabled: true}, &buf))
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	var rec log.Record
	rec.SetBody(log.StringValue("tick done"))
	p.LoggerProvider().Logger("test").Emit(context.Background(), rec)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "tick done")
	assert.Contains(t, buf.String(), DefaultServiceName)
	require.NoError(t, p.Shutdown(context.Background()))
}
