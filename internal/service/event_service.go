package service

import (
	"context"
	"errors"
	"fmt"

	"conflict-resolution-be/internal/pkg/logger"
	"conflict-resolution-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IEventService reacts to domain events, whichever bus delivered them.
type IEventService interface {
	Handle(ctx context.Context, event events.BaseEvent) error
	// ConsumeLocal handles events published in-process until ctx is done.
	ConsumeLocal(ctx context.Context, pubSub *gochannel.GoChannel) error
}

type eventService struct {
	conflictService IConflictService
	logger          logger.ILogger
}

func NewEventService(conflictService IConflictService, logger logger.ILogger) IEventService {
	return &eventService{
		conflictService: conflictService,
		logger:          logger,
	}
}

func (es *eventService) Handle(ctx context.Context, event events.BaseEvent) error {
	switch event.EventType() {
	case events.TypeInterviewCompleted:
		return es.handleInterviewCompleted(ctx, event)
	case events.TypeStreamFinalized:
		es.logger.Debug("EVENTS", "Stream finalized", map[string]interface{}{
			"stream_id": event.String("stream_id"),
			"status":    event.String("status"),
		})
		return nil
	default:
		return nil
	}
}

func (es *eventService) handleInterviewCompleted(ctx context.Context, event events.BaseEvent) error {
	conflictId, err := uuid.Parse(event.String("conflict_id"))
	if err != nil {
		// Redelivery cannot fix a bad id.
		es.logger.Warn("EVENTS", "Interview completed event without valid conflict id", map[string]interface{}{
			"conflict_id": event.String("conflict_id"),
		})
		return nil
	}

	err = es.conflictService.NotifyInterviewCompleted(ctx, conflictId, event.String("completion_message"))
	if errors.Is(err, ErrConflictNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("notify interview completed: %w", err)
	}

	es.logger.Info("EVENTS", "Creator notified of interview completion", map[string]interface{}{
		"conflict_id": conflictId.String(),
	})
	return nil
}

func (es *eventService) ConsumeLocal(ctx context.Context, pubSub *gochannel.GoChannel) error {
	for _, eventType := range []string{events.TypeInterviewCompleted, events.TypeStreamFinalized} {
		messages, err := pubSub.Subscribe(ctx, LocalTopicPrefix+eventType)
		if err != nil {
			return err
		}

		go func(eventType string, messages <-chan *message.Message) {
			for msg := range messages {
				es.processMessage(ctx, eventType, msg)
			}
		}(eventType, messages)
	}
	return nil
}

func (es *eventService) processMessage(ctx context.Context, eventType string, msg *message.Message) {
	event, err := events.Decode(eventType, msg.Payload)
	if err != nil {
		es.logger.Error("EVENTS", "Failed to decode event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
		msg.Ack() // redelivery would fail the same way
		return
	}

	if err := es.Handle(ctx, event); err != nil {
		// The in-process channel redelivers a nack at once, so failures are dropped.
		es.logger.Error("EVENTS", "Event handler failed", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
	msg.Ack()
}
