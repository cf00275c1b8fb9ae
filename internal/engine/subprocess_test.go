package engine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"intentd/pkg/types"
)

// buildTestServer builds the fake engine server used for subprocess tests.
func buildTestServer(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "fake_engine_server")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_engine_server.go")
	cmd.Dir = "."
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake server: %v: %s", err, string(out))
	}
	return bin
}

func buildExitBinary(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "exit_fast")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/exit_fast.go")
	cmd.Dir = "."
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build exit binary: %v: %s", err, string(out))
	}
	return bin
}

// progressRecorder collects progress reports thread-safely.
type progressRecorder struct {
	mu      sync.Mutex
	reports []Progress
}

func (r *progressRecorder) record(p Progress) {
	r.mu.Lock()
	r.reports = append(r.reports, p)
	r.mu.Unlock()
}

func (r *progressRecorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.reports))
	for _, p := range r.reports {
		out = append(out, p.Text)
	}
	return out
}

func TestSubprocessInitializeAndComplete(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildTestServer(t)
	b := NewSubprocess(SubprocessConfig{Bin: bin, ReadyTimeout: 10 * time.Second}, zerolog.Nop())
	defer func() { _ = b.Close(context.Background()) }()

	rec := &progressRecorder{}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	h, err := b.Initialize(ctx, types.RegistryEntry{ID: "m1", Path: "m1.gguf"}, rec.record)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer func() { _ = h.Unload(context.Background()) }()

	texts := rec.texts()
	if len(texts) == 0 || texts[0] != "starting engine process" {
		t.Fatalf("expected starting report first, got %v", texts)
	}

	res, err := h.Complete(ctx, CompletionRequest{
		SystemMessage: "classify",
		UserMessage:   "hello",
		Temperature:   0.1,
		MaxTokens:     64,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(res.Text, `"translation":"hello"`) {
		t.Fatalf("unexpected completion text %q", res.Text)
	}
	if res.Usage.CompletionTokens != 11 {
		t.Fatalf("usage not mapped: %+v", res.Usage)
	}

	if err := h.ResetContext(ctx); err != nil {
		t.Fatalf("ResetContext: %v", err)
	}
}

func TestSubprocessWarmupStatusForwarded(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildTestServer(t)
	t.Setenv("FAKE_ENGINE_WARMUP_MS", "600")
	b := NewSubprocess(SubprocessConfig{Bin: bin, ReadyTimeout: 10 * time.Second}, zerolog.Nop())
	defer func() { _ = b.Close(context.Background()) }()

	rec := &progressRecorder{}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	h, err := b.Initialize(ctx, types.RegistryEntry{ID: "m1", Path: "m1.gguf"}, rec.record)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer func() { _ = h.Unload(context.Background()) }()

	var sawLoading bool
	for _, text := range rec.texts() {
		if text == "loading model" {
			sawLoading = true
		}
	}
	if !sawLoading {
		t.Fatalf("expected runtime warmup status in progress reports, got %v", rec.texts())
	}
}

func TestSubprocessEarlyExitFailsInitialize(t *testing.T) {
	bin := buildExitBinary(t)
	b := NewSubprocess(SubprocessConfig{Bin: bin, ReadyTimeout: 5 * time.Second}, zerolog.Nop())
	defer func() { _ = b.Close(context.Background()) }()

	_, err := b.Initialize(context.Background(), types.RegistryEntry{ID: "m1", Path: "m1.gguf"}, nil)
	if err == nil {
		t.Fatal("expected error for a runtime that exits immediately")
	}
	if !strings.Contains(err.Error(), "model file corrupt") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}

	// Pre-ready exits are initialization failures, not transport failures.
	select {
	case ferr := <-b.Failures():
		t.Fatalf("unexpected transport failure: %v", ferr)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSubprocessPostReadyExitSurfacesFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildTestServer(t)
	b := NewSubprocess(SubprocessConfig{Bin: bin, ReadyTimeout: 10 * time.Second}, zerolog.Nop())
	defer func() { _ = b.Close(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	h, err := b.Initialize(ctx, types.RegistryEntry{ID: "m1", Path: "m1.gguf"}, nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	// Kill the adopted runtime out-of-band.
	sh := h.(*subprocessHandle)
	if err := sh.proc.cmd.Process.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case ferr := <-b.Failures():
		if ferr == nil || !strings.Contains(ferr.Error(), "exited unexpectedly") {
			t.Fatalf("unexpected failure payload: %v", ferr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("transport failure never surfaced")
	}
}

func TestSubprocessUnloadStaleHandleKeepsReplacement(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildTestServer(t)
	b := NewSubprocess(SubprocessConfig{Bin: bin, ReadyTimeout: 10 * time.Second}, zerolog.Nop())
	defer func() { _ = b.Close(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	first, err := b.Initialize(ctx, types.RegistryEntry{ID: "a", Path: "a.gguf"}, nil)
	if err != nil {
		t.Fatalf("Initialize a: %v", err)
	}
	second, err := b.Initialize(ctx, types.RegistryEntry{ID: "b", Path: "b.gguf"}, nil)
	if err != nil {
		t.Fatalf("Initialize b: %v", err)
	}
	defer func() { _ = second.Unload(context.Background()) }()

	if err := first.Unload(ctx); err != nil {
		t.Fatalf("Unload a: %v", err)
	}
	if _, err := second.Complete(ctx, CompletionRequest{UserMessage: "still here", MaxTokens: 8}); err != nil {
		t.Fatalf("replacement runtime must survive stale unload: %v", err)
	}

	// Unloading a stale handle twice is a no-op.
	if err := first.Unload(ctx); err != nil {
		t.Fatalf("second Unload: %v", err)
	}
}

func TestPickPortInRange(t *testing.T) {
	p, err := pickPortInRange("127.0.0.1", 32100, 32120)
	if err != nil {
		t.Fatalf("pickPortInRange: %v", err)
	}
	if p < 32100 || p > 32120 {
		t.Fatalf("port %d out of range", p)
	}
}

func TestPickFreePort(t *testing.T) {
	p, err := pickFreePort("127.0.0.1")
	if err != nil {
		t.Fatalf("pickFreePort: %v", err)
	}
	if p <= 0 {
		t.Fatalf("invalid port %d", p)
	}
}
