package textstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"conflict-resolution-be/internal/repository/memory"
	"conflict-resolution-be/pkg/textstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emitAll(parts ...string) textstream.ProduceFunc {
	return func(ctx context.Context, emit textstream.EmitFunc) error {
		for _, p := range parts {
			if err := emit(textstream.Fragment{Text: p}); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestPump_AppendsInOrderAndFinalizesDone(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStreamRecordRepository()
	id, err := store.Create(ctx)
	require.NoError(t, err)

	res, err := textstream.Pump(ctx, store, id, emitAll("Hel", "lo"))
	require.NoError(t, err)
	assert.Equal(t, textstream.StatusDone, res.Status)
	assert.Equal(t, 2, res.Fragments)
	assert.False(t, res.StoppedEarly)

	snap, err := store.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hello", snap.Text)
	assert.Equal(t, textstream.StatusDone, snap.Status)
	assert.Equal(t, int64(2), snap.Generation)
}

func TestPump_EmptyProducerFinalizesDone(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStreamRecordRepository()
	id, _ := store.Create(ctx)

	_, err := textstream.Pump(ctx, store, id, emitAll("", ""))
	require.NoError(t, err)

	snap, _ := store.Read(ctx, id)
	assert.Equal(t, "", snap.Text)
	assert.Equal(t, textstream.StatusDone, snap.Status)
	assert.Equal(t, int64(0), snap.Generation)
}

func TestPump_ProducerFailureKeepsPartialText(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStreamRecordRepository()
	id, _ := store.Create(ctx)

	boom := errors.New("upstream reset")
	produce := func(ctx context.Context, emit textstream.EmitFunc) error {
		if err := emit(textstream.Fragment{Text: "Thinking"}); err != nil {
			return err
		}
		return boom
	}

	res, err := textstream.Pump(ctx, store, id, produce)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var perr *textstream.ProducerError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, id, perr.StreamID)
	assert.Equal(t, textstream.StatusError, res.Status)

	snap, _ := store.Read(ctx, id)
	assert.Equal(t, "Thinking", snap.Text)
	assert.Equal(t, textstream.StatusError, snap.Status)
	assert.Equal(t, int64(1), snap.Generation)
}

func TestPump_ProducerPanicBecomesError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStreamRecordRepository()
	id, _ := store.Create(ctx)

	_, err := textstream.Pump(ctx, store, id, func(ctx context.Context, emit textstream.EmitFunc) error {
		panic("bad state")
	})
	require.Error(t, err)

	snap, _ := store.Read(ctx, id)
	assert.Equal(t, textstream.StatusError, snap.Status)
}

func TestPump_CancelledContextFinalizesError(t *testing.T) {
	store := memory.NewStreamRecordRepository()
	id, _ := store.Create(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	produce := func(ctx context.Context, emit textstream.EmitFunc) error {
		if err := emit(textstream.Fragment{Text: "partial"}); err != nil {
			return err
		}
		cancel()
		return emit(textstream.Fragment{Text: " never"})
	}

	res, err := textstream.Pump(ctx, store, id, produce)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, textstream.StatusError, res.Status)

	snap, _ := store.Read(context.Background(), id)
	assert.Equal(t, "partial", snap.Text)
	assert.Equal(t, textstream.StatusError, snap.Status)
}

func TestPump_StoreFailureStopsProducer(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStreamRecordRepository()
	id, _ := store.Create(ctx)
	require.NoError(t, store.Finalize(ctx, id, textstream.StatusError))

	var emitted int
	produce := func(ctx context.Context, emit textstream.EmitFunc) error {
		for _, p := range []string{"a", "b", "c"} {
			emitted++
			if err := emit(textstream.Fragment{Text: p}); err != nil {
				return err
			}
		}
		return nil
	}

	res, err := textstream.Pump(ctx, store, id, produce)
	assert.ErrorIs(t, err, textstream.ErrTerminalState)
	assert.Equal(t, 1, emitted)
	assert.Equal(t, textstream.StatusError, res.Status)
}

func TestPump_UnknownRecord(t *testing.T) {
	store := memory.NewStreamRecordRepository()
	_, err := textstream.Pump(context.Background(), store, "missing", emitAll("x"))
	assert.ErrorIs(t, err, textstream.ErrNotFound)
}

type completionArgs struct {
	CompletionMessage string `json:"completion_message"`
}

func completionHandler(calls *int32) textstream.SignalHandler {
	return func(ctx context.Context, sig textstream.Signal) (textstream.SignalResult, error) {
		var args completionArgs
		if err := json.Unmarshal([]byte(sig.Arguments), &args); err != nil {
			return textstream.SignalResult{}, fmt.Errorf("%w: %v", textstream.ErrControlSignalParse, err)
		}
		atomic.AddInt32(calls, 1)
		return textstream.SignalResult{Text: args.CompletionMessage, Stop: true}, nil
	}
}

func TestPump_EarlyCompletionSignal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStreamRecordRepository()
	id, _ := store.Create(ctx)

	var calls int32
	produce := func(ctx context.Context, emit textstream.EmitFunc) error {
		if err := emit(textstream.Fragment{Text: "Thanks. "}); err != nil {
			return err
		}
		sig := &textstream.Signal{Name: "complete_interview", Arguments: `{"completion_message":"All set"}`}
		if err := emit(textstream.Fragment{Signal: sig}); err != nil {
			return err
		}
		return emit(textstream.Fragment{Text: "ignored"})
	}

	res, err := textstream.Pump(ctx, store, id, produce, textstream.WithSignalHandler(completionHandler(&calls)))
	require.NoError(t, err)
	assert.True(t, res.StoppedEarly)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	snap, _ := store.Read(ctx, id)
	assert.Equal(t, "Thanks. All set", snap.Text)
	assert.Equal(t, textstream.StatusDone, snap.Status)
}

func TestPump_OnlyFirstSignalIsHonored(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStreamRecordRepository()
	id, _ := store.Create(ctx)

	var calls int32
	handler := func(ctx context.Context, sig textstream.Signal) (textstream.SignalResult, error) {
		atomic.AddInt32(&calls, 1)
		return textstream.SignalResult{Text: "[done]"}, nil
	}
	sig := &textstream.Signal{Name: "complete_interview", Arguments: "{}"}
	produce := func(ctx context.Context, emit textstream.EmitFunc) error {
		for _, f := range []textstream.Fragment{{Signal: sig}, {Text: "x"}, {Signal: sig}} {
			if err := emit(f); err != nil {
				return err
			}
		}
		return nil
	}

	_, err := textstream.Pump(ctx, store, id, produce, textstream.WithSignalHandler(handler))
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	snap, _ := store.Read(ctx, id)
	assert.Equal(t, "[done]x", snap.Text)
}

func TestPump_MalformedSignalIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStreamRecordRepository()
	id, _ := store.Create(ctx)

	var calls int32
	produce := func(ctx context.Context, emit textstream.EmitFunc) error {
		if err := emit(textstream.Fragment{Signal: &textstream.Signal{Name: "complete_interview", Arguments: "{not json"}}); err != nil {
			return err
		}
		return emit(textstream.Fragment{Text: "still going"})
	}

	res, err := textstream.Pump(ctx, store, id, produce, textstream.WithSignalHandler(completionHandler(&calls)))
	require.NoError(t, err)
	assert.False(t, res.StoppedEarly)
	assert.Zero(t, atomic.LoadInt32(&calls))

	snap, _ := store.Read(ctx, id)
	assert.Equal(t, "still going", snap.Text)
	assert.Equal(t, textstream.StatusDone, snap.Status)
}

func TestPump_Hooks(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStreamRecordRepository()
	id, _ := store.Create(ctx)

	var (
		mu        sync.Mutex
		appended  []string
		finalized []textstream.Result
	)
	_, err := textstream.Pump(ctx, store, id, emitAll("a", "b"),
		textstream.WithOnAppend(func(fragment string, gen int64) {
			mu.Lock()
			defer mu.Unlock()
			appended = append(appended, fmt.Sprintf("%s:%d", fragment, gen))
		}),
		textstream.WithOnFinalize(func(ctx context.Context, res textstream.Result) {
			mu.Lock()
			defer mu.Unlock()
			finalized = append(finalized, res)
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "b:2"}, appended)
	require.Len(t, finalized, 1)
	assert.Equal(t, textstream.StatusDone, finalized[0].Status)
	assert.Equal(t, int64(2), finalized[0].Generation)
}

func TestPump_RecordTimedOutMidProduction(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStreamRecordRepository()
	id, _ := store.Create(ctx)

	produce := func(ctx context.Context, emit textstream.EmitFunc) error {
		if err := emit(textstream.Fragment{Text: "a"}); err != nil {
			return err
		}
		if _, err := store.ExpireIdle(ctx, time.Now().Add(time.Hour)); err != nil {
			return err
		}
		return emit(textstream.Fragment{Text: "b"})
	}

	var finalized int32
	res, err := textstream.Pump(ctx, store, id, produce,
		textstream.WithOnFinalize(func(ctx context.Context, res textstream.Result) {
			atomic.AddInt32(&finalized, 1)
		}),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, textstream.ErrTerminalState)
	assert.Equal(t, textstream.StatusTimeout, res.Status)
	assert.Equal(t, int64(1), res.Generation)
	assert.Equal(t, int32(0), atomic.LoadInt32(&finalized))

	snap, _ := store.Read(ctx, id)
	assert.Equal(t, textstream.StatusTimeout, snap.Status)
	assert.Equal(t, "a", snap.Text)
}

func TestPump_NotifyingStoreWakesWatchers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	base := memory.NewStreamRecordRepository()
	notifier := &recordingNotifier{}
	store := textstream.Notifying(base, notifier)
	id, _ := store.Create(ctx)

	_, err := textstream.Pump(ctx, store, id, emitAll("x", "y"))
	require.NoError(t, err)

	changes := notifier.Changes()
	require.Len(t, changes, 3)
	assert.Equal(t, int64(1), changes[0].Generation)
	assert.Equal(t, int64(2), changes[1].Generation)
	assert.Equal(t, textstream.StatusDone, changes[2].Status)
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []textstream.Change
}

func (n *recordingNotifier) Notify(ctx context.Context, c textstream.Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
}

func (n *recordingNotifier) Watch(ctx context.Context, id string) (<-chan struct{}, error) {
	ch := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (n *recordingNotifier) Changes() []textstream.Change {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]textstream.Change(nil), n.changes...)
}
