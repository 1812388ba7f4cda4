package service

import (
	"context"
	"encoding/json"
	"fmt"

	"conflict-resolution-be/internal/pkg/logger"
	"conflict-resolution-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// LocalTopicPrefix prefixes in-process event topics, mirroring the NATS subjects.
const LocalTopicPrefix = "events."

type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// localPublisher is used when no NATS server is configured. Events only
// reach consumers in the same process.
type localPublisher struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewLocalPublisher(pubSub *gochannel.GoChannel, log logger.ILogger) IEventPublisher {
	return &localPublisher{pubSub: pubSub, logger: log}
}

func (p *localPublisher) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := p.pubSub.Publish(LocalTopicPrefix+event.EventType(), msg); err != nil {
		return err
	}

	p.logger.Debug("EVENTS", "Published local event", map[string]interface{}{
		"type": event.EventType(),
	})
	return nil
}
