package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetLogFields(ctx))

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithMessageID(ctx, "msg-1")
	ctx = WithEvent(ctx, "evt-1", "svc-a")

	assert.Equal(t, []interface{}{
		"trace_id", "trace-1",
		"message_id", "msg-1",
		"event_id", "evt-1",
		"repository", "svc-a",
	}, GetLogFields(ctx))
}

func TestWithEvent_SkipsEmptyValues(t *testing.T) {
	ctx := WithEvent(context.Background(), "", "svc-a")
	assert.Equal(t, "", GetEventID(ctx))
	assert.Equal(t, "svc-a", GetRepository(ctx))
}
