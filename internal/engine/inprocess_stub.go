//go:build !llama

package engine

// No-CGO stub for the in-process runtime, compiled when the 'llama' build
// tag is not set. Default builds and CI stay CGO-free; the subprocess
// bridge is the production path there.

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"intentd/pkg/types"
)

// ErrNotBuilt reports that in-process engine support is missing from
// this binary.
var ErrNotBuilt = errors.New("in-process engine support not built (missing 'llama' build tag)")

// InProcessConfig configures the in-process go-llama.cpp runtime.
type InProcessConfig struct {
	CtxSize   int
	Threads   int
	GPULayers int
}

// InProcessBridge refuses to operate without the 'llama' build tag. No
// mocked behavior in untagged binaries.
type InProcessBridge struct{}

// NewInProcess fails fast in untagged builds.
func NewInProcess(cfg InProcessConfig, log zerolog.Logger) (*InProcessBridge, error) {
	return nil, ErrNotBuilt
}

func (b *InProcessBridge) Initialize(ctx context.Context, entry types.RegistryEntry, onProgress ProgressFunc) (Handle, error) {
	return nil, ErrNotBuilt
}

func (b *InProcessBridge) Failures() <-chan error { return nil }

func (b *InProcessBridge) Close(ctx context.Context) error { return nil }
