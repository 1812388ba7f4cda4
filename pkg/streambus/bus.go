package streambus

import (
	"context"
	"encoding/json"

	"conflict-resolution-be/pkg/textstream"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel is the redis channel shared by all instances.
const ClusterChannel = "stream_record_events"

const topicPrefix = "stream_records."

// Logger is the subset of the application logger the bus uses.
type Logger interface {
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
}

// Bus delivers stream record change notifications. Watchers in this process
// are served by an in-memory watermill pubsub; when a redis client is given,
// changes are also relayed to and from every other instance.
type Bus struct {
	pubSub     *gochannel.GoChannel
	rdb        *redis.Client
	instanceID string
	logger     Logger
}

var _ textstream.Notifier = (*Bus)(nil)

type clusterEnvelope struct {
	Origin string            `json:"origin"`
	Change textstream.Change `json:"change"`
}

func NewBus(rdb *redis.Client, log Logger) *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 16},
			watermill.NopLogger{},
		),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func topic(id string) string {
	return topicPrefix + id
}

// Notify publishes change locally and, with redis, to the cluster.
func (b *Bus) Notify(ctx context.Context, change textstream.Change) {
	b.publishLocal(change)

	if b.rdb == nil {
		return
	}
	payload, err := json.Marshal(clusterEnvelope{Origin: b.instanceID, Change: change})
	if err != nil {
		return
	}
	if err := b.rdb.Publish(context.WithoutCancel(ctx), ClusterChannel, payload).Err(); err != nil {
		b.logger.Warn("StreamBus", "Failed to relay change to cluster", map[string]interface{}{
			"stream_id": change.ID,
			"error":     err.Error(),
		})
	}
}

func (b *Bus) publishLocal(change textstream.Change) {
	payload, err := json.Marshal(change)
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubSub.Publish(topic(change.ID), msg); err != nil {
		b.logger.Warn("StreamBus", "Local publish failed", map[string]interface{}{
			"stream_id": change.ID,
			"error":     err.Error(),
		})
	}
}

// Watch subscribes to changes of one record. Wakeups are coalesced: a burst of
// changes may produce a single value.
func (b *Bus) Watch(ctx context.Context, id string) (<-chan struct{}, error) {
	messages, err := b.pubSub.Subscribe(ctx, topic(id))
	if err != nil {
		return nil, err
	}

	wake := make(chan struct{}, 1)
	go func() {
		defer close(wake)
		for msg := range messages {
			msg.Ack()
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}()
	return wake, nil
}

// Run relays changes published by other instances until ctx is done. It
// returns immediately when the bus has no redis client.
func (b *Bus) Run(ctx context.Context) {
	if b.rdb == nil {
		return
	}

	pubsub := b.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	b.logger.Info("StreamBus", "Relaying cluster stream events", map[string]interface{}{
		"channel":     ClusterChannel,
		"instance_id": b.instanceID,
	})

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env clusterEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("StreamBus", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if env.Origin == b.instanceID {
				continue
			}
			b.publishLocal(env.Change)
		}
	}
}

// Close shuts down the local pubsub; all watch channels are closed.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}
