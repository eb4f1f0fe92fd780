//go:build llama

package producers

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"dispatchd/internal/dispatch"
)

// LlamaOptions configures the llama.cpp-backed token streamer.
type LlamaOptions struct {
	ModelPath string
	CtxSize   int
	Threads   int
	MaxTokens int
}

// NewLlama loads a gguf model and returns a streaming text adapter over it.
// The model is loaded once at registration; each job runs one prediction.
// args[0] is the prompt; kwargs may set "max_tokens", "temperature", "top_p".
func NewLlama(opts LlamaOptions) (dispatch.Adapter, error) {
	if strings.TrimSpace(opts.ModelPath) == "" {
		return nil, errors.New("llama: model path is empty")
	}
	if opts.CtxSize <= 0 {
		opts.CtxSize = 2048
	}
	if opts.Threads <= 0 {
		opts.Threads = 4
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 256
	}
	model, err := llama.New(opts.ModelPath, llama.SetContext(opts.CtxSize))
	if err != nil {
		return nil, err
	}
	return dispatch.AdaptTextStream(func(ctx context.Context, call dispatch.Call, emit func(string) error) error {
		prompt := argString(call, 0)
		var emitErr error
		model.SetTokenCallback(func(tok string) bool {
			select {
			case <-ctx.Done():
				return false
			default:
			}
			if err := emit(tok); err != nil {
				emitErr = err
				return false
			}
			return true
		})
		po := []llama.PredictOption{
			llama.SetTokens(kwargInt(call, "max_tokens", opts.MaxTokens)),
			llama.SetThreads(opts.Threads),
			llama.SetTemperature(kwargFloat(call, "temperature", llama.DefaultOptions.Temperature)),
			llama.SetTopP(kwargFloat(call, "top_p", llama.DefaultOptions.TopP)),
		}
		if _, err := model.Predict(prompt, po...); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if emitErr != nil {
				return emitErr
			}
			return err
		}
		return emitErr
	}), nil
}

func kwargFloat(call dispatch.Call, key string, def float32) float32 {
	if v, ok := call.Kwargs[key]; ok {
		if n, ok := v.(float64); ok {
			return float32(n)
		}
	}
	return def
}
