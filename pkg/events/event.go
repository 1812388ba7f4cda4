package events

import (
	"encoding/json"
	"time"
)

const (
	TypeStreamFinalized    = "STREAM_FINALIZED"
	TypeInterviewCompleted = "INTERVIEW_COMPLETED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "STREAM_FINALIZED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

// Payload includes the occurrence time so consumers can restore it.
func (e BaseEvent) Payload() map[string]interface{} {
	out := make(map[string]interface{}, len(e.Data)+1)
	for k, v := range e.Data {
		out[k] = v
	}
	out["occurred_at"] = e.OccurredAt.UTC().Format(time.RFC3339Nano)
	return out
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// String returns a payload value as a string, or "" when absent.
func (e BaseEvent) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

func NewStreamFinalized(streamId, status string, generation int64) BaseEvent {
	return BaseEvent{
		Type: TypeStreamFinalized,
		Data: map[string]interface{}{
			"stream_id":  streamId,
			"status":     status,
			"generation": generation,
		},
		OccurredAt: time.Now(),
	}
}

func NewInterviewCompleted(conflictId, userId, completionMessage string) BaseEvent {
	return BaseEvent{
		Type: TypeInterviewCompleted,
		Data: map[string]interface{}{
			"conflict_id":        conflictId,
			"user_id":            userId,
			"completion_message": completionMessage,
		},
		OccurredAt: time.Now(),
	}
}

// Decode restores an event from its JSON payload.
func Decode(eventType string, data []byte) (BaseEvent, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return BaseEvent{}, err
	}

	occurredAt := time.Now()
	if raw, ok := payload["occurred_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			occurredAt = t
		}
		delete(payload, "occurred_at")
	}

	return BaseEvent{
		Type:       eventType,
		Data:       payload,
		OccurredAt: occurredAt,
	}, nil
}
