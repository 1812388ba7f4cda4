package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"conflict-resolution-be/internal/dto"
	"conflict-resolution-be/internal/pkg/logger"
	"conflict-resolution-be/internal/repository/contract"
	"conflict-resolution-be/pkg/events"
	"conflict-resolution-be/pkg/metrics"
	"conflict-resolution-be/pkg/textstream"
)

// StreamProducer is a ready-to-run fragment source for one stream record.
type StreamProducer struct {
	Produce textstream.ProduceFunc
	Signal  textstream.SignalHandler
}

// IProducerResolver builds the producer for stream records owned by one kind
// of business record.
type IProducerResolver interface {
	Resolve(ctx context.Context, streamId string, owner textstream.Owner) (*StreamProducer, error)
}

type IStreamService interface {
	Read(ctx context.Context, id string) (*dto.StreamBodyResponse, error)
	Subscribe(ctx context.Context, id string, driving bool) (*textstream.Subscription, error)
	// Start claims the record for production. The caller must Run or Release
	// the returned stream.
	Start(ctx context.Context, id string) (*ActiveStream, error)
	ExpireIdle(ctx context.Context) (int, error)
	RunExpiry(ctx context.Context)
}

type StreamServiceConfig struct {
	IdleTimeout     time.Duration
	ExpiryInterval  time.Duration
	PollInterval    time.Duration
	LeaseTTL        time.Duration
	FinalizeTimeout time.Duration
}

type streamService struct {
	store     contract.StreamRecordRepository
	writer    textstream.Store
	notifier  textstream.Notifier
	lease     textstream.Lease
	resolvers map[string]IProducerResolver
	publisher IEventPublisher
	logger    logger.ILogger
	cfg       StreamServiceConfig
	now       func() time.Time
}

func NewStreamService(
	store contract.StreamRecordRepository,
	notifier textstream.Notifier,
	lease textstream.Lease,
	resolvers map[string]IProducerResolver,
	publisher IEventPublisher,
	logger logger.ILogger,
	cfg StreamServiceConfig,
) IStreamService {
	return &streamService{
		store:     store,
		writer:    textstream.Notifying(store, notifier),
		notifier:  notifier,
		lease:     lease,
		resolvers: resolvers,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

func toStreamBody(snap textstream.Snapshot) *dto.StreamBodyResponse {
	return &dto.StreamBodyResponse{
		Id:         snap.ID,
		Text:       snap.Text,
		Status:     snap.Status.String(),
		Generation: snap.Generation,
	}
}

func (s *streamService) Read(ctx context.Context, id string) (*dto.StreamBodyResponse, error) {
	snap, err := s.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	return toStreamBody(snap), nil
}

func (s *streamService) Subscribe(ctx context.Context, id string, driving bool) (*textstream.Subscription, error) {
	return textstream.Subscribe(ctx, s.store, s.notifier, id,
		textstream.WithDriving(driving),
		textstream.WithPollInterval(s.cfg.PollInterval),
		textstream.WithSubscriberLogger(s.logger),
	)
}

func (s *streamService) Start(ctx context.Context, id string) (*ActiveStream, error) {
	snap, err := s.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap.Status != textstream.StatusPending {
		return nil, ErrStreamNotPending
	}

	release, err := s.lease.Acquire(ctx, id, s.cfg.LeaseTTL)
	if err != nil {
		if errors.Is(err, textstream.ErrLeaseHeld) {
			return nil, ErrStreamBusy
		}
		return nil, err
	}

	producer, err := s.resolve(ctx, id)
	if err != nil {
		release()
		return nil, err
	}

	return &ActiveStream{
		ID:       id,
		svc:      s,
		producer: producer,
		release:  release,
	}, nil
}

func (s *streamService) resolve(ctx context.Context, id string) (*StreamProducer, error) {
	// A previous producer may have finished between the first read and the lease.
	snap, err := s.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap.Status != textstream.StatusPending {
		return nil, ErrStreamNotPending
	}

	owner, err := s.store.FindOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	resolver, ok := s.resolvers[owner.Type]
	if !ok {
		return nil, fmt.Errorf("%w: owner type %q", ErrNoProducer, owner.Type)
	}
	return resolver.Resolve(ctx, id, owner)
}

func (s *streamService) ExpireIdle(ctx context.Context) (int, error) {
	ids, err := s.store.ExpireIdle(ctx, s.now().Add(-s.cfg.IdleTimeout))
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		if s.notifier != nil {
			s.notifier.Notify(ctx, textstream.Change{ID: id, Status: textstream.StatusTimeout})
		}
		metrics.StreamsFinalized.WithLabelValues(textstream.StatusTimeout.String()).Inc()
		s.publishFinalized(ctx, id, textstream.StatusTimeout, -1)
	}
	if len(ids) > 0 {
		s.logger.Warn("STREAM", "Timed out idle streams", map[string]interface{}{
			"count": len(ids),
			"ids":   ids,
		})
	}
	return len(ids), nil
}

// RunExpiry sweeps idle records every ExpiryInterval until ctx is done.
func (s *streamService) RunExpiry(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ExpiryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ExpireIdle(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("STREAM", "Expiry sweep failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

// publishFinalized emits STREAM_FINALIZED. generation is -1 when unknown.
func (s *streamService) publishFinalized(ctx context.Context, id string, status textstream.Status, generation int64) {
	if err := s.publisher.Publish(ctx, events.NewStreamFinalized(id, status.String(), generation)); err != nil {
		s.logger.Warn("STREAM", "Failed to publish finalize event", map[string]interface{}{
			"stream_id": id,
			"error":     err.Error(),
		})
	}
}

// ActiveStream is a claimed stream record whose producer has not run yet.
type ActiveStream struct {
	ID string

	svc         *streamService
	producer    *StreamProducer
	release     func()
	releaseOnce sync.Once
}

// Run pumps the producer into the record. onAppend, if set, sees every stored
// fragment in order. The lease is released when Run returns.
func (a *ActiveStream) Run(ctx context.Context, onAppend func(fragment string)) (textstream.Result, error) {
	defer a.Release()

	s := a.svc
	started := s.now()
	metrics.StreamsStarted.Inc()
	metrics.ActiveProducers.Inc()
	defer metrics.ActiveProducers.Dec()

	opts := []textstream.PumpOption{
		textstream.WithLogger(s.logger),
		textstream.WithFinalizeTimeout(s.cfg.FinalizeTimeout),
		textstream.WithOnAppend(func(fragment string, generation int64) {
			metrics.FragmentsAppended.Inc()
			if onAppend != nil {
				onAppend(fragment)
			}
		}),
		textstream.WithOnFinalize(func(ctx context.Context, res textstream.Result) {
			metrics.StreamsFinalized.WithLabelValues(res.Status.String()).Inc()
			metrics.StreamDuration.Observe(s.now().Sub(started).Seconds())
			s.publishFinalized(ctx, a.ID, res.Status, res.Generation)
		}),
	}
	if a.producer.Signal != nil {
		opts = append(opts, textstream.WithSignalHandler(a.producer.Signal))
	}

	res, err := textstream.Pump(ctx, s.writer, a.ID, a.producer.Produce, opts...)
	details := map[string]interface{}{
		"stream_id":     a.ID,
		"status":        res.Status.String(),
		"fragments":     res.Fragments,
		"generation":    res.Generation,
		"stopped_early": res.StoppedEarly,
	}
	if err != nil {
		details["error"] = err.Error()
		s.logger.Error("STREAM", "Stream finished with error", details)
	} else {
		s.logger.Info("STREAM", "Stream completed", details)
	}
	return res, err
}

// Release gives up the claim without running. Safe to call more than once.
func (a *ActiveStream) Release() {
	a.releaseOnce.Do(a.release)
}
