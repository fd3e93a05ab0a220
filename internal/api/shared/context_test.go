package shared

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSetAndGetTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	withTrace := SetTraceID(ctx)
	traceID := GetTraceID(withTrace)
	assert.Len(t, traceID, 32)
	assert.Empty(t, GetTraceID(ctx), "original context is unchanged")

	assert.NotEqual(t, traceID, GetTraceID(SetTraceID(ctx)))
}

func TestGetTraceIDWithInvalidContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TraceIDKey, 123)
	assert.Empty(t, GetTraceID(ctx))
}

func TestGenerateFallbackTraceID(t *testing.T) {
	assert.Len(t, generateFallbackTraceID(), 32)
}

func TestOperatorID(t *testing.T) {
	_, ok := GetOperatorID(context.Background())
	assert.False(t, ok)

	_, ok = GetOperatorID(WithOperatorID(context.Background(), uuid.Nil))
	assert.False(t, ok)

	id := uuid.New()
	got, ok := GetOperatorID(WithOperatorID(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
