package dispatch

import (
	"context"
	"fmt"
)

// Adapter is the single capability every producer is normalized into. Invoke
// executes one job and emits its output chunks in production order. A
// producer failure is delivered as a terminal error chunk, not as a return
// value; Invoke returns an error only when emission itself fails (caller
// gone, context canceled).
type Adapter interface {
	Invoke(ctx context.Context, job *Job, emit func(OutputChunk) error) error
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, job *Job, emit func(OutputChunk) error) error

func (f AdapterFunc) Invoke(ctx context.Context, job *Job, emit func(OutputChunk) error) error {
	return f(ctx, job, emit)
}

// Producer shapes accepted at registration time. Context cancellation is the
// cancel hook; producers that ignore it run to completion and their output is
// discarded.
type (
	// UnaryFunc produces a single byte payload.
	UnaryFunc func(ctx context.Context, call Call) ([]byte, error)
	// TextUnaryFunc produces a single text payload.
	TextUnaryFunc func(ctx context.Context, call Call) (string, error)
	// StreamFunc produces a finite sequence of byte payloads via emit.
	StreamFunc func(ctx context.Context, call Call, emit func([]byte) error) error
	// TextStreamFunc produces a finite sequence of text fragments via emit.
	TextStreamFunc func(ctx context.Context, call Call, emit func(string) error) error
)

// guard runs f, converting a panic into an adapter error.
func guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = adapterError{cause: fmt.Errorf("producer panic: %v", r)}
		}
	}()
	return f()
}

func callOf(job *Job) Call { return Call{Args: job.Args, Kwargs: job.Kwargs} }

// AdaptUnary normalizes a single-result producer: exactly one terminal chunk.
func AdaptUnary(fn UnaryFunc) Adapter {
	return AdapterFunc(func(ctx context.Context, job *Job, emit func(OutputChunk) error) error {
		var payload []byte
		err := guard(func() error {
			var e error
			payload, e = fn(ctx, callOf(job))
			return e
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return emit(OutputChunk{JobID: job.ID, Terminal: true, Err: asAdapterError(err)})
		}
		return emit(OutputChunk{JobID: job.ID, Payload: payload, Terminal: true})
	})
}

// AdaptTextUnary normalizes a single-result text producer.
func AdaptTextUnary(fn TextUnaryFunc) Adapter {
	return AdaptUnary(func(ctx context.Context, call Call) ([]byte, error) {
		s, err := fn(ctx, call)
		return []byte(s), err
	})
}

// AdaptStream normalizes a sequence producer. One chunk is emitted per
// produced value, with the terminal flag set only on the last; to know which
// value is last, exactly one value is held in flight. A mid-stream producer
// failure becomes a single terminal error chunk and no further values are
// pulled.
func AdaptStream(fn StreamFunc) Adapter {
	return AdapterFunc(func(ctx context.Context, job *Job, emit func(OutputChunk) error) error {
		var pending []byte
		havePending := false
		var emitErr error
		prodErr := guard(func() error {
			return fn(ctx, callOf(job), func(p []byte) error {
				if err := ctx.Err(); err != nil {
					emitErr = err
					return err
				}
				if havePending {
					if err := emit(OutputChunk{JobID: job.ID, Payload: pending}); err != nil {
						emitErr = err
						return err
					}
				}
				// Copy: the producer may reuse its buffer for the next value.
				pending = append([]byte(nil), p...)
				havePending = true
				return nil
			})
		})
		if emitErr != nil {
			return emitErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if prodErr != nil {
			// Release the held value first: everything produced before the
			// failure reaches the caller, then the error marker ends the
			// stream.
			if havePending {
				if err := emit(OutputChunk{JobID: job.ID, Payload: pending}); err != nil {
					return err
				}
			}
			return emit(OutputChunk{JobID: job.ID, Terminal: true, Err: asAdapterError(prodErr)})
		}
		// Flush the held value as the terminal chunk. A producer of zero
		// values still ends with an explicit (empty) terminal chunk.
		return emit(OutputChunk{JobID: job.ID, Payload: pending, Terminal: true})
	})
}

// AdaptTextStream normalizes a token/text generator.
func AdaptTextStream(fn TextStreamFunc) Adapter {
	return AdaptStream(func(ctx context.Context, call Call, emit func([]byte) error) error {
		return fn(ctx, call, func(s string) error { return emit([]byte(s)) })
	})
}

// asAdapterError wraps err unless it already carries adapter provenance.
func asAdapterError(err error) error {
	if IsAdapterError(err) {
		return err
	}
	return adapterError{cause: err}
}
