package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ecrwatch/pkg/logging"
)

func TestNew(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		log, err := New(level, "json")
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}

func TestInfowCtx_AddsContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))
	log.(*SugaredLogger).SetServiceName("watcher")

	ctx := logging.WithEvent(context.Background(), "evt-1", "svc-a")
	log.InfowCtx(ctx, "decision", "action", "UPDATE")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, "svc-a", fields["repository"])
	assert.Equal(t, "watcher", fields["service_name"])
	assert.Equal(t, "UPDATE", fields["action"])
}
