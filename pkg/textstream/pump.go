package textstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultFinalizeTimeout = 10 * time.Second

// Fragment is one item yielded by a producer: either plain text or a
// structured control signal.
type Fragment struct {
	Text   string
	Signal *Signal
}

// Signal is an out-of-band early completion marker: a name plus a JSON
// encoded argument object.
type Signal struct {
	Name      string
	Arguments string
}

// EmitFunc hands one fragment to the pump. It returns after the fragment has
// been stored. A non-nil error means the producer must stop.
type EmitFunc func(Fragment) error

// ProduceFunc is the external fragment source. It must call emit sequentially.
type ProduceFunc func(ctx context.Context, emit EmitFunc) error

// SignalResult tells the pump what to do with a recognized control signal.
type SignalResult struct {
	// Text is appended after the content produced so far.
	Text string
	// Stop ends production early; the record still finalizes as done.
	Stop bool
}

// SignalHandler interprets a control signal. Returning an error wrapping
// ErrControlSignalParse is non-fatal; any other error fails the stream.
type SignalHandler func(ctx context.Context, sig Signal) (SignalResult, error)

// Result summarizes a finished pump run.
type Result struct {
	Status       Status
	Generation   int64
	Fragments    int
	StoppedEarly bool
}

type pumpConfig struct {
	signal          SignalHandler
	onAppend        func(fragment string, generation int64)
	onFinalize      func(ctx context.Context, res Result)
	logger          Logger
	finalizeTimeout time.Duration
}

// PumpOption configures Pump.
type PumpOption func(*pumpConfig)

// WithSignalHandler installs the handler for control fragments. Without one,
// signals are ignored.
func WithSignalHandler(h SignalHandler) PumpOption {
	return func(c *pumpConfig) {
		c.signal = h
	}
}

// WithOnAppend registers a hook called after every stored fragment.
func WithOnAppend(fn func(fragment string, generation int64)) PumpOption {
	return func(c *pumpConfig) {
		c.onAppend = fn
	}
}

// WithOnFinalize registers a hook called once this pump moved the record to
// its terminal status. It is not called when the record was already terminal.
func WithOnFinalize(fn func(ctx context.Context, res Result)) PumpOption {
	return func(c *pumpConfig) {
		c.onFinalize = fn
	}
}

// WithLogger sets the logger used for swallowed errors.
func WithLogger(l Logger) PumpOption {
	return func(c *pumpConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFinalizeTimeout bounds the detached Finalize call made on unwind.
func WithFinalizeTimeout(d time.Duration) PumpOption {
	return func(c *pumpConfig) {
		if d > 0 {
			c.finalizeTimeout = d
		}
	}
}

// Pump drives produce into the stream record id. Fragments are appended one
// at a time in production order. The record is finalized as done when the
// producer returns nil or a control signal stops it, and as error otherwise,
// including when ctx is cancelled. Store failures are never retried.
//
// The returned error is nil for a done stream. Producer failures are wrapped
// in *ProducerError.
func Pump(ctx context.Context, store Store, id string, produce ProduceFunc, opts ...PumpOption) (res Result, err error) {
	cfg := pumpConfig{
		logger:          nopLogger{},
		finalizeTimeout: defaultFinalizeTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, span := otel.Tracer("textstream").Start(ctx, "textstream.Pump",
		trace.WithAttributes(attribute.String("stream.id", id)))
	defer func() {
		span.SetAttributes(
			attribute.String("stream.status", res.Status.String()),
			attribute.Int("stream.fragments", res.Fragments),
			attribute.Int64("stream.generation", res.Generation),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var (
		storeErr      error
		stopped       bool
		signalHandled bool
	)

	appendText := func(text string) error {
		gen, err := store.Append(ctx, id, text)
		if err != nil {
			storeErr = err
			return err
		}
		res.Generation = gen
		res.Fragments++
		if cfg.onAppend != nil {
			cfg.onAppend(text, gen)
		}
		return nil
	}

	emit := func(f Fragment) error {
		switch {
		case storeErr != nil:
			return storeErr
		case stopped:
			return errStopped
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if f.Signal == nil {
			if f.Text == "" {
				return nil
			}
			return appendText(f.Text)
		}

		if cfg.signal == nil || signalHandled {
			cfg.logger.Debug("textstream", "Ignoring control signal", map[string]interface{}{
				"stream_id": id,
				"signal":    f.Signal.Name,
			})
			return nil
		}
		out, err := cfg.signal(ctx, *f.Signal)
		if err != nil {
			if errors.Is(err, ErrControlSignalParse) {
				cfg.logger.Warn("textstream", "Malformed control signal, continuing", map[string]interface{}{
					"stream_id": id,
					"signal":    f.Signal.Name,
					"error":     err.Error(),
				})
				return nil
			}
			return err
		}
		signalHandled = true
		if out.Text != "" {
			if err := appendText(out.Text); err != nil {
				return err
			}
		}
		if out.Stop {
			stopped = true
			return errStopped
		}
		return nil
	}

	prodErr := runProducer(ctx, produce, emit)

	outcome := StatusDone
	switch {
	case stopped:
		res.StoppedEarly = true
	case storeErr != nil:
		outcome = StatusError
		err = fmt.Errorf("append to stream %s: %w", id, storeErr)
	case prodErr != nil && ctx.Err() != nil:
		outcome = StatusError
		err = ctx.Err()
	case prodErr != nil:
		outcome = StatusError
		err = &ProducerError{StreamID: id, Err: prodErr}
	case ctx.Err() != nil:
		outcome = StatusError
		err = ctx.Err()
	}
	res.Status = outcome

	// The caller's context may already be cancelled; finalization must still
	// reach the store so the record never stays live.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.finalizeTimeout)
	defer cancel()
	if ferr := store.Finalize(fctx, id, outcome); ferr != nil {
		cfg.logger.Error("textstream", "Failed to finalize stream", map[string]interface{}{
			"stream_id": id,
			"outcome":   outcome.String(),
			"error":     ferr.Error(),
		})
		err = errors.Join(err, fmt.Errorf("finalize stream %s: %w", id, ferr))
		return res, err
	}

	// Finalize is a no-op on an already terminal record, e.g. one the idle
	// sweep timed out mid-production. Report what the store holds and leave
	// the transition to whoever made it.
	snap, rerr := store.Read(fctx, id)
	if rerr != nil {
		cfg.logger.Warn("textstream", "Failed to re-read finalized stream", map[string]interface{}{
			"stream_id": id,
			"error":     rerr.Error(),
		})
	} else if snap.Status != outcome {
		cfg.logger.Warn("textstream", "Stream was finalized elsewhere", map[string]interface{}{
			"stream_id": id,
			"outcome":   outcome.String(),
			"stored":    snap.Status.String(),
		})
		res.Status = snap.Status
		res.Generation = snap.Generation
		return res, err
	}

	if cfg.onFinalize != nil {
		cfg.onFinalize(fctx, res)
	}
	return res, err
}

func runProducer(ctx context.Context, produce ProduceFunc, emit EmitFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panic: %v", r)
		}
	}()
	err = produce(ctx, emit)
	if errors.Is(err, errStopped) {
		return nil
	}
	return err
}
