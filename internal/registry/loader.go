// Package registry turns configured worker entries into the ordered worker
// list the pool is built from. Position in the list becomes the worker's
// routing index.
package registry

import (
	"fmt"
	"time"

	"dispatchd/internal/config"
	"dispatchd/internal/dispatch"
	"dispatchd/internal/producers"
)

// Build constructs one WorkerSpec per configured entry, binding the producer
// named by its kind. Unknown kinds fail construction; a worker list is never
// silently shortened.
func Build(workers []config.WorkerConfig) ([]dispatch.WorkerSpec, error) {
	specs := make([]dispatch.WorkerSpec, 0, len(workers))
	for i, wc := range workers {
		adapter, err := buildAdapter(wc)
		if err != nil {
			return nil, fmt.Errorf("worker %d (%s): %w", i, wc.Kind, err)
		}
		specs = append(specs, dispatch.WorkerSpec{
			Tag:     wc.Tag,
			Kind:    wc.Kind,
			Adapter: adapter,
		})
	}
	return specs, nil
}

// Default is the worker list used when no config file names any: one text
// generator, one binary generator, one one-shot echo.
func Default() []dispatch.WorkerSpec {
	return []dispatch.WorkerSpec{
		{Tag: "llm", Kind: producers.KindTokenGen, Adapter: producers.TokenGen(producers.TokenGenOptions{})},
		{Tag: "tts", Kind: producers.KindByteGen, Adapter: producers.ByteGen(producers.ByteGenOptions{})},
		{Tag: "echo", Kind: producers.KindEcho, Adapter: producers.Echo(0)},
	}
}

func buildAdapter(wc config.WorkerConfig) (dispatch.Adapter, error) {
	opts := wc.Options
	switch wc.Kind {
	case producers.KindTokenGen:
		return producers.TokenGen(producers.TokenGenOptions{
			Steps: optInt(opts, "steps"),
			Delay: optMillis(opts, "delay_ms"),
		}), nil
	case producers.KindByteGen:
		return producers.ByteGen(producers.ByteGenOptions{
			Blocks:    optInt(opts, "blocks"),
			BlockSize: optInt(opts, "block_size"),
			Delay:     optMillis(opts, "delay_ms"),
		}), nil
	case producers.KindEcho:
		return producers.Echo(optMillis(opts, "delay_ms")), nil
	case producers.KindLlama:
		return producers.NewLlama(producers.LlamaOptions{
			ModelPath: optString(opts, "model_path"),
			CtxSize:   optInt(opts, "ctx_size"),
			Threads:   optInt(opts, "threads"),
			MaxTokens: optInt(opts, "max_tokens"),
		})
	default:
		return nil, fmt.Errorf("unknown producer kind %q", wc.Kind)
	}
}

// Option values come from yaml/json/toml decoding, so numbers may arrive as
// int, int64, or float64 depending on the format.
func optInt(opts map[string]any, key string) int {
	switch v := opts[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func optString(opts map[string]any, key string) string {
	if s, ok := opts[key].(string); ok {
		return s
	}
	return ""
}

func optMillis(opts map[string]any, key string) time.Duration {
	return time.Duration(optInt(opts, key)) * time.Millisecond
}
