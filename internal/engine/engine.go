// Package engine hosts the model execution runtime behind an isolation
// boundary and exposes it through a small bridge contract. The default
// bridge spawns a llama-server process per load; an in-process variant
// backed by go-llama.cpp is available behind the 'llama' build tag.
//
// The bridge reports initialization progress through a callback and
// surfaces transport-level failures (the runtime dying after it was
// adopted) on an out-of-band channel, independent of any in-flight call.
package engine

import (
	"context"

	"intentd/pkg/types"
)

// Progress is one heterogeneous progress signal from a bridge. Bridges
// that know a numeric completion fraction set HasFraction; the rest
// describe the phase in Text and leave interpretation to the consumer.
type Progress struct {
	Text        string
	Fraction    float64
	HasFraction bool
}

// ProgressFunc receives progress reports during initialization. It may be
// called from the bridge's goroutines at any point until Initialize
// returns; implementations must be safe for that.
type ProgressFunc func(Progress)

// CompletionRequest is one chat-style generation request.
type CompletionRequest struct {
	SystemMessage string
	UserMessage   string
	Temperature   float64
	MaxTokens     int
	// ForceJSONObject asks the runtime to constrain output to a single
	// JSON object. Best effort; runtimes without the capability ignore it.
	ForceJSONObject bool
}

// Usage reports token accounting when the runtime provides it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// CompletionResult carries the first choice's text content; Text is empty
// when the runtime returned no choices.
type CompletionResult struct {
	Text  string
	Usage Usage
}

// Handle is one initialized engine instance. Exactly one caller owns a
// handle; Unload releases its resources and the handle must not be used
// afterwards.
type Handle interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
	ResetContext(ctx context.Context) error
	Unload(ctx context.Context) error
}

// Bridge creates engine instances. Initialize may be called again before
// a previous call resolved; each call yields an independent handle and
// the caller decides which one to keep.
type Bridge interface {
	Initialize(ctx context.Context, entry types.RegistryEntry, onProgress ProgressFunc) (Handle, error)
	// Failures surfaces out-of-band transport failures: an adopted
	// runtime dying outside any call. The channel is never closed.
	Failures() <-chan error
	// Close releases all live runtimes. The bridge is unusable after.
	Close(ctx context.Context) error
}
