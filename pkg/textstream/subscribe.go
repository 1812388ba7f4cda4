package textstream

import (
	"context"
	"time"
)

const defaultPollInterval = time.Second

// Subscription is a live view of one stream record.
//
// Updates yields a full snapshot first, then a snapshot for every observed
// change. Generations never decrease; content changes always carry a greater
// generation. The channel is closed after a terminal snapshot has been
// delivered, or when the subscribing context ends.
type Subscription struct {
	ID      string
	Driving bool
	Updates <-chan Snapshot
}

// ActionFinished reports whether a driving subscriber should consider the
// production it triggered complete. Passive subscribers never finish an action.
func (s *Subscription) ActionFinished(snap Snapshot) bool {
	return s.Driving && !snap.Status.IsLive()
}

type subscribeConfig struct {
	driving bool
	poll    time.Duration
	logger  Logger
}

// SubscribeOption configures Subscribe.
type SubscribeOption func(*subscribeConfig)

// WithDriving marks the subscriber as the one that started production.
func WithDriving(driving bool) SubscribeOption {
	return func(c *subscribeConfig) {
		c.driving = driving
	}
}

// WithPollInterval sets how often the store is re-read without a notification.
func WithPollInterval(d time.Duration) SubscribeOption {
	return func(c *subscribeConfig) {
		if d > 0 {
			c.poll = d
		}
	}
}

// WithSubscriberLogger sets the logger for transient read failures.
func WithSubscriberLogger(l Logger) SubscribeOption {
	return func(c *subscribeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Subscribe attaches a reader to the stream record id. It fails with
// ErrNotFound when the record does not exist. notifier may be nil, in which
// case changes are picked up by polling only.
func Subscribe(ctx context.Context, store Store, notifier Notifier, id string, opts ...SubscribeOption) (*Subscription, error) {
	cfg := subscribeConfig{
		poll:   defaultPollInterval,
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(ctx)

	// Arm the watch before the first read so no change can slip in between.
	var wake <-chan struct{}
	if notifier != nil {
		w, err := notifier.Watch(ctx, id)
		if err != nil {
			cancel()
			return nil, err
		}
		wake = w
	}

	first, err := store.Read(ctx, id)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan Snapshot, 1)
	go func() {
		defer cancel()
		defer close(out)

		send := func(s Snapshot) bool {
			select {
			case out <- s:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(first) || first.Status.IsTerminal() {
			return
		}

		ticker := time.NewTicker(cfg.poll)
		defer ticker.Stop()

		last := first
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-wake:
				if !ok {
					wake = nil
					continue
				}
			case <-ticker.C:
			}

			snap, err := store.Read(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				cfg.logger.Warn("textstream", "Subscriber read failed", map[string]interface{}{
					"stream_id": id,
					"error":     err.Error(),
				})
				continue
			}
			if !advances(last, snap) {
				continue
			}
			if !send(snap) {
				return
			}
			last = snap
			if snap.Status.IsTerminal() {
				return
			}
		}
	}()

	return &Subscription{ID: id, Driving: cfg.driving, Updates: out}, nil
}

// advances reports whether next should be delivered after last. Finalize does
// not bump the generation, so the terminal snapshot may repeat it.
func advances(last, next Snapshot) bool {
	if next.Generation > last.Generation {
		return true
	}
	return next.Generation == last.Generation && next.Status.IsTerminal() && !last.Status.IsTerminal()
}
