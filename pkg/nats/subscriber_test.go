package nats

import (
	"encoding/json"
	"testing"
	"time"

	"conflict-resolution-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	src := events.NewInterviewCompleted("c-1", "u-1", "All set")
	src.OccurredAt = time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	data, err := json.Marshal(src.Payload())
	require.NoError(t, err)

	got, err := decodeEvent(SubjectPrefix+events.TypeInterviewCompleted, data)
	require.NoError(t, err)
	assert.Equal(t, events.TypeInterviewCompleted, got.EventType())
	assert.Equal(t, "c-1", got.String("conflict_id"))
	assert.Equal(t, "All set", got.String("completion_message"))
	assert.True(t, src.OccurredAt.Equal(got.OccurredAt))
	_, present := got.Data["occurred_at"]
	assert.False(t, present)

	_, err = decodeEvent("events.X", []byte("{oops"))
	assert.Error(t, err)
}
