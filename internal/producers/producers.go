// Package producers holds the built-in producer implementations the daemon
// can bind to pool slots. Each constructor returns a dispatch.Adapter, so the
// kind of producer (one-shot vs streaming, text vs bytes) is normalized at
// registration time.
package producers

import (
	"context"
	"fmt"
	"time"

	"dispatchd/internal/dispatch"
)

// Producer kind names recognized in configuration.
const (
	KindTokenGen = "tokengen"
	KindByteGen  = "bytegen"
	KindEcho     = "echo"
	KindLlama    = "llama"
)

// TokenGenOptions tunes the simulated text generator.
type TokenGenOptions struct {
	// Steps is the token count when the request's kwargs omit "steps".
	Steps int
	// Delay between tokens, simulating generation latency.
	Delay time.Duration
}

// TokenGen streams a prefix echoing the prompt, then N token fragments with a
// fixed delay. args[0] is the prompt; kwargs["steps"] overrides the count.
func TokenGen(opts TokenGenOptions) dispatch.Adapter {
	if opts.Steps <= 0 {
		opts.Steps = 5
	}
	if opts.Delay <= 0 {
		opts.Delay = 20 * time.Millisecond
	}
	return dispatch.AdaptTextStream(func(ctx context.Context, call dispatch.Call, emit func(string) error) error {
		prompt := argString(call, 0)
		steps := kwargInt(call, "steps", opts.Steps)
		if err := emit(fmt.Sprintf("Response to %q: ", prompt)); err != nil {
			return err
		}
		for i := 0; i < steps; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.Delay):
			}
			if err := emit(fmt.Sprintf("token_%d ", i)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ByteGenOptions tunes the simulated binary generator.
type ByteGenOptions struct {
	Blocks    int
	BlockSize int
	Delay     time.Duration
	// Fill is the byte every block is filled with.
	Fill byte
}

// ByteGen streams fixed-size byte blocks, standing in for an audio model.
// kwargs["blocks"] and kwargs["block_size"] override the defaults per call;
// block sizes are deliberately unrelated to any response chunk size, the
// encoder re-segments.
func ByteGen(opts ByteGenOptions) dispatch.Adapter {
	if opts.Blocks <= 0 {
		opts.Blocks = 20
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = 50
	}
	if opts.Delay <= 0 {
		opts.Delay = 5 * time.Millisecond
	}
	return dispatch.AdaptStream(func(ctx context.Context, call dispatch.Call, emit func([]byte) error) error {
		blocks := kwargInt(call, "blocks", opts.Blocks)
		size := kwargInt(call, "block_size", opts.BlockSize)
		block := make([]byte, size)
		for i := range block {
			block[i] = opts.Fill
		}
		for i := 0; i < blocks; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.Delay):
			}
			if err := emit(block); err != nil {
				return err
			}
		}
		return nil
	})
}

// Echo is a one-shot producer answering with a fixed phrase derived from the
// query in args[0].
func Echo(delay time.Duration) dispatch.Adapter {
	return dispatch.AdaptTextUnary(func(ctx context.Context, call dispatch.Call) (string, error) {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
		return "Async result for " + argString(call, 0), nil
	})
}

// argString returns positional argument i rendered as a string, or "".
func argString(call dispatch.Call, i int) string {
	if i >= len(call.Args) {
		return ""
	}
	switch v := call.Args[i].(type) {
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// kwargInt reads an integer keyword argument; JSON numbers arrive as float64.
func kwargInt(call dispatch.Call, key string, def int) int {
	v, ok := call.Kwargs[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}
