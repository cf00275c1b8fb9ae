//go:build llama

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"

	"intentd/pkg/types"
)

// InProcessConfig configures the in-process go-llama.cpp runtime.
type InProcessConfig struct {
	CtxSize   int
	Threads   int
	GPULayers int
}

// InProcessBridge loads gguf models into this process with go-llama.cpp.
// Heavy compute shares the process, so the subprocess bridge stays the
// default; this variant exists for single-binary deployments.
type InProcessBridge struct {
	cfg      InProcessConfig
	log      zerolog.Logger
	failures chan error
}

// NewInProcess constructs the in-process bridge.
func NewInProcess(cfg InProcessConfig, log zerolog.Logger) (*InProcessBridge, error) {
	return &InProcessBridge{cfg: cfg, log: log, failures: make(chan error, 1)}, nil
}

// Failures implements Bridge. The in-process runtime has no transport to
// lose; the channel never yields.
func (b *InProcessBridge) Failures() <-chan error { return b.failures }

// Initialize loads the model file. go-llama.cpp exposes no numeric load
// callbacks, so progress is reported as phase text only.
func (b *InProcessBridge) Initialize(ctx context.Context, entry types.RegistryEntry, onProgress ProgressFunc) (Handle, error) {
	if strings.TrimSpace(entry.Path) == "" {
		return nil, fmt.Errorf("model %q has no artifact path", entry.ID)
	}
	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	onProgress(Progress{Text: "reading model file"})
	opts := []llama.ModelOption{}
	if b.cfg.CtxSize > 0 {
		opts = append(opts, llama.SetContext(b.cfg.CtxSize))
	}
	if b.cfg.GPULayers > 0 {
		opts = append(opts, llama.SetGPULayers(b.cfg.GPULayers))
	}
	onProgress(Progress{Text: "initializing model"})
	m, err := llama.New(entry.Path, opts...)
	if err != nil {
		return nil, err
	}
	b.log.Info().Str("model", entry.ID).Msg("in-process model loaded")
	return &inProcessHandle{threads: b.cfg.Threads, model: m}, nil
}

// Close implements Bridge. Handles own their model; Unload frees it.
func (b *InProcessBridge) Close(ctx context.Context) error { return nil }

type inProcessHandle struct {
	threads int
	mu      sync.Mutex
	model   *llama.LLama
}

func (h *inProcessHandle) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.model == nil {
		return CompletionResult{}, errors.New("engine already unloaded")
	}
	po := []llama.PredictOption{
		llama.SetTokens(maxTokens(req.MaxTokens)),
		llama.SetTemperature(float32(req.Temperature)),
	}
	if h.threads > 0 {
		po = append(po, llama.SetThreads(h.threads))
	}
	h.model.SetTokenCallback(func(string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	text, err := h.model.Predict(buildPrompt(req), po...)
	if err != nil {
		if ctx.Err() != nil {
			return CompletionResult{}, ctx.Err()
		}
		return CompletionResult{}, err
	}
	return CompletionResult{Text: strings.TrimSpace(text)}, nil
}

// ResetContext is a no-op: every Complete call carries the full prompt,
// there is no server-side conversation cache to erase.
func (h *inProcessHandle) ResetContext(ctx context.Context) error { return nil }

func (h *inProcessHandle) Unload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.model != nil {
		h.model.Free()
		h.model = nil
	}
	return nil
}

func buildPrompt(req CompletionRequest) string {
	var b strings.Builder
	if req.SystemMessage != "" {
		b.WriteString(req.SystemMessage)
		b.WriteString("\n\n")
	}
	if req.ForceJSONObject {
		b.WriteString("Respond with a single JSON object and nothing else.\n\n")
	}
	b.WriteString("User: ")
	b.WriteString(req.UserMessage)
	b.WriteString("\nAssistant: ")
	return b.String()
}

func maxTokens(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
