package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBaseEvent_Payload(t *testing.T) {
	e := NewStreamFinalized("s-1", "done", 3)
	e.OccurredAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	p := e.Payload()
	assert.Equal(t, "s-1", p["stream_id"])
	assert.Equal(t, int64(3), p["generation"])
	assert.Equal(t, "2026-03-01T10:00:00Z", p["occurred_at"])
	_, leaked := e.Data["occurred_at"]
	assert.False(t, leaked)

	assert.Equal(t, TypeStreamFinalized, e.EventType())
	assert.Equal(t, "done", e.String("status"))
	assert.Equal(t, "", e.String("missing"))
}
