//go:build !llama

package producers

// This file provides a no-CGO stub for the llama producer. It is compiled
// when the 'llama' build tag is NOT set, keeping default builds and CI
// CGO-free. The real producer lives in llama.go (tagged 'llama').

import "dispatchd/internal/dispatch"

// LlamaOptions configures the llama.cpp-backed token streamer.
type LlamaOptions struct {
	ModelPath string
	CtxSize   int
	Threads   int
	MaxTokens int
}

// NewLlama fails fast: the llama runtime is not available in this build.
// No mocked behavior in binaries built without CGO support.
func NewLlama(opts LlamaOptions) (dispatch.Adapter, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
