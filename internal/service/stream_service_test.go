package service

import (
	"context"
	"testing"
	"time"

	"conflict-resolution-be/internal/constant"
	"conflict-resolution-be/internal/dto"
	"conflict-resolution-be/internal/pkg/logger"
	"conflict-resolution-be/internal/repository/memory"
	"conflict-resolution-be/pkg/events"
	"conflict-resolution-be/pkg/llm"
	"conflict-resolution-be/pkg/streambus"
	"conflict-resolution-be/pkg/textstream"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	factory   *fakeFactory
	store     *memory.StreamRecordRepository
	lease     *memory.LeaseRepository
	publisher *recordingPublisher
	mailer    *fakeMailer
	provider  *scriptedProvider
	conflicts IConflictService
	chat      IChatService
	streams   IStreamService
	userId    uuid.UUID
}

func newHarness(t *testing.T, chunks ...llm.StreamChunk) *harness {
	t.Helper()
	log := logger.NewNopLogger()
	bus := streambus.NewBus(nil, log)
	t.Cleanup(func() { bus.Close() })

	h := &harness{
		factory:   newFakeFactory(),
		store:     memory.NewStreamRecordRepository(),
		lease:     memory.NewLeaseRepository(),
		publisher: &recordingPublisher{},
		mailer:    &fakeMailer{},
		provider:  &scriptedProvider{chunks: chunks},
		userId:    uuid.New(),
	}
	h.conflicts = NewConflictService(h.factory, h.store, h.publisher, h.mailer, "http://localhost:3000", log)
	h.chat = NewChatService(h.factory, h.store, log)
	h.streams = NewStreamService(h.store, bus, h.lease,
		map[string]IProducerResolver{
			constant.StreamOwnerConflictMessage: NewConflictMessageProducer(h.conflicts, h.provider, log),
			constant.StreamOwnerUserMessage:     NewUserMessageProducer(h.chat, h.provider, log),
		},
		h.publisher, log,
		StreamServiceConfig{
			IdleTimeout:     2 * time.Minute,
			ExpiryInterval:  time.Minute,
			PollInterval:    20 * time.Millisecond,
			LeaseTTL:        time.Minute,
			FinalizeTimeout: time.Second,
		},
	)
	return h
}

func (h *harness) newConflict(t *testing.T) *dto.ConflictResponse {
	t.Helper()
	c, err := h.conflicts.Create(context.Background(), h.userId, "owner@example.com", &dto.CreateConflictRequest{
		Title:       "Noise after midnight",
		Description: "Upstairs neighbour plays music late.",
	})
	require.NoError(t, err)
	return c
}

func (h *harness) send(t *testing.T, conflictId uuid.UUID, prompt string) *dto.SendConflictMessageResponse {
	t.Helper()
	res, err := h.conflicts.SendMessage(context.Background(), h.userId, conflictId, &dto.SendConflictMessageRequest{Prompt: prompt})
	require.NoError(t, err)
	return res
}

func TestStreamService_StartUnknownRecord(t *testing.T) {
	h := newHarness(t)
	_, err := h.streams.Start(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, textstream.ErrNotFound)
}

func TestStreamService_RunProducesIntoRecord(t *testing.T) {
	h := newHarness(t, llm.StreamChunk{Content: "Hel"}, llm.StreamChunk{Content: "lo"})
	ctx := context.Background()
	conflict := h.newConflict(t)
	sent := h.send(t, conflict.Id, "I can't sleep.")

	active, err := h.streams.Start(ctx, sent.StreamId)
	require.NoError(t, err)

	var seen []string
	res, err := active.Run(ctx, func(fragment string) { seen = append(seen, fragment) })
	require.NoError(t, err)
	assert.Equal(t, textstream.StatusDone, res.Status)
	assert.Equal(t, []string{"Hel", "lo"}, seen)

	body, err := h.streams.Read(ctx, sent.StreamId)
	require.NoError(t, err)
	assert.Equal(t, "Hello", body.Text)
	assert.Equal(t, "done", body.Status)
	assert.Equal(t, int64(2), body.Generation)

	finalized := h.publisher.ofType(events.TypeStreamFinalized)
	require.Len(t, finalized, 1)
	assert.Equal(t, sent.StreamId, finalized[0].(events.BaseEvent).String("stream_id"))
	assert.Equal(t, "done", finalized[0].(events.BaseEvent).String("status"))
}

func TestStreamService_StartTwiceIsRejected(t *testing.T) {
	h := newHarness(t, llm.StreamChunk{Content: "ok"})
	ctx := context.Background()
	conflict := h.newConflict(t)
	sent := h.send(t, conflict.Id, "hi")

	active, err := h.streams.Start(ctx, sent.StreamId)
	require.NoError(t, err)

	_, err = h.streams.Start(ctx, sent.StreamId)
	assert.ErrorIs(t, err, ErrStreamBusy)

	_, err = active.Run(ctx, nil)
	require.NoError(t, err)

	_, err = h.streams.Start(ctx, sent.StreamId)
	assert.ErrorIs(t, err, ErrStreamNotPending)
}

func TestStreamService_ReleaseAllowsRestart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conflict := h.newConflict(t)
	sent := h.send(t, conflict.Id, "hi")

	active, err := h.streams.Start(ctx, sent.StreamId)
	require.NoError(t, err)
	active.Release()
	active.Release()

	again, err := h.streams.Start(ctx, sent.StreamId)
	require.NoError(t, err)
	again.Release()
}

func TestStreamService_RecordWithoutOwnerHasNoProducer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, err := h.store.Create(ctx)
	require.NoError(t, err)

	_, err = h.streams.Start(ctx, id)
	assert.ErrorIs(t, err, ErrNoProducer)

	// The failed start must not leave the lease behind.
	release, err := h.lease.Acquire(ctx, id, time.Minute)
	require.NoError(t, err)
	release()

	snap, err := h.store.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, textstream.StatusPending, snap.Status)
}

func TestStreamService_ProducerFailureFinalizesError(t *testing.T) {
	h := newHarness(t, llm.StreamChunk{Content: "partial"})
	h.provider.err = assert.AnError
	ctx := context.Background()
	conflict := h.newConflict(t)
	sent := h.send(t, conflict.Id, "hi")

	active, err := h.streams.Start(ctx, sent.StreamId)
	require.NoError(t, err)
	res, err := active.Run(ctx, nil)

	var perr *textstream.ProducerError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, textstream.StatusError, res.Status)

	body, err := h.streams.Read(ctx, sent.StreamId)
	require.NoError(t, err)
	assert.Equal(t, "partial", body.Text)
	assert.Equal(t, "error", body.Status)
}

func TestStreamService_SubscriberSeesWholeStream(t *testing.T) {
	h := newHarness(t, llm.StreamChunk{Content: "a"}, llm.StreamChunk{Content: "b"}, llm.StreamChunk{Content: "c"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conflict := h.newConflict(t)
	sent := h.send(t, conflict.Id, "hi")

	sub, err := h.streams.Subscribe(ctx, sent.StreamId, true)
	require.NoError(t, err)

	active, err := h.streams.Start(ctx, sent.StreamId)
	require.NoError(t, err)
	go active.Run(ctx, nil)

	var last textstream.Snapshot
	for snap := range sub.Updates {
		last = snap
	}
	assert.Equal(t, "abc", last.Text)
	assert.Equal(t, textstream.StatusDone, last.Status)
	assert.True(t, sub.ActionFinished(last))
}

func TestStreamService_ExpireIdle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, err := h.store.Create(ctx)
	require.NoError(t, err)

	n, err := h.streams.ExpireIdle(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	h.streams.(*streamService).now = func() time.Time { return time.Now().Add(time.Hour) }
	n, err = h.streams.ExpireIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	body, err := h.streams.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "timeout", body.Status)

	finalized := h.publisher.ofType(events.TypeStreamFinalized)
	require.Len(t, finalized, 1)
	assert.Equal(t, int64(-1), finalized[0].Payload()["generation"])
}

func TestStreamService_ExpiredMidRunPublishesOnce(t *testing.T) {
	h := newHarness(t, llm.StreamChunk{Content: "a"}, llm.StreamChunk{Content: "b"})
	ctx := context.Background()
	conflict := h.newConflict(t)
	sent := h.send(t, conflict.Id, "hi")

	active, err := h.streams.Start(ctx, sent.StreamId)
	require.NoError(t, err)

	svc := h.streams.(*streamService)
	res, err := active.Run(ctx, func(fragment string) {
		if fragment != "a" {
			return
		}
		svc.now = func() time.Time { return time.Now().Add(time.Hour) }
		n, err := h.streams.ExpireIdle(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})
	require.Error(t, err)
	assert.Equal(t, textstream.StatusTimeout, res.Status)

	body, err := h.streams.Read(ctx, sent.StreamId)
	require.NoError(t, err)
	assert.Equal(t, "timeout", body.Status)
	assert.Equal(t, "a", body.Text)

	finalized := h.publisher.ofType(events.TypeStreamFinalized)
	require.Len(t, finalized, 1)
	assert.Equal(t, "timeout", finalized[0].(events.BaseEvent).String("status"))
}

func TestStreamService_RunExpiryStopsWithContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.streams.RunExpiry(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunExpiry did not return after cancel")
	}
}
