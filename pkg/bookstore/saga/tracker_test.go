package saga

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_MarkAndCheck(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker()
	eventID := uuid.New()

	processed, err := tracker.IsProcessed(ctx, "handler-a", eventID)
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, tracker.MarkProcessed(ctx, "handler-a", eventID))

	processed, err = tracker.IsProcessed(ctx, "handler-a", eventID)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestTracker_KeyedPerHandler(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker()
	eventID := uuid.New()

	require.NoError(t, tracker.MarkProcessed(ctx, "handler-a", eventID))

	processed, err := tracker.IsProcessed(ctx, "handler-b", eventID)
	require.NoError(t, err)
	assert.False(t, processed, "marks must not leak across handlers")
}

func TestTracker_MarkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker()
	eventID := uuid.New()

	require.NoError(t, tracker.MarkProcessed(ctx, "handler-a", eventID))
	require.NoError(t, tracker.MarkProcessed(ctx, "handler-a", eventID))

	assert.Equal(t, 1, tracker.Len())
}
