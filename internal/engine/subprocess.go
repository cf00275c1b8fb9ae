package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"intentd/pkg/types"
)

const (
	healthPollInterval  = 100 * time.Millisecond
	defaultReadyTimeout = 120 * time.Second
	defaultStopGrace    = 2 * time.Second
	stderrTailBytes     = 4096
)

// SubprocessConfig configures the spawned llama-server runtime.
type SubprocessConfig struct {
	// Bin is the server binary; defaults to "llama-server" on PATH.
	Bin  string
	Host string
	// PortStart/PortEnd bound the listen port; zero picks an ephemeral
	// port.
	PortStart int
	PortEnd   int
	CtxSize   int
	GPULayers int
	Threads   int
	ExtraArgs []string
	// ReadyTimeout bounds the wait for the runtime to come up; model
	// loading happens inside this window.
	ReadyTimeout time.Duration
	// StopGrace is how long SIGTERM gets before SIGKILL.
	StopGrace time.Duration
}

// SubprocessBridge runs one llama-server process per initialized handle.
// Handles own their process; replacing a model is initialize-new then
// unload-old, decided by the caller.
type SubprocessBridge struct {
	cfg      SubprocessConfig
	log      zerolog.Logger
	client   *http.Client
	failures chan error

	mu      sync.Mutex
	procs   map[uint64]*runtimeProc
	nextGen uint64
	closed  bool
}

type runtimeProc struct {
	gen     uint64
	cmd     *exec.Cmd
	baseURL string
	// stderr is written by the process copier and read only after exited
	// is closed.
	stderr  bytes.Buffer
	exited  chan struct{}
	waitErr error

	mu      sync.Mutex
	ready   bool
	stopped bool
}

// NewSubprocess constructs the bridge.
// The HTTP client intentionally has Timeout=0: every call carries a
// context deadline instead.
func NewSubprocess(cfg SubprocessConfig, log zerolog.Logger) *SubprocessBridge {
	if strings.TrimSpace(cfg.Bin) == "" {
		cfg.Bin = "llama-server"
	}
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = defaultStopGrace
	}
	return &SubprocessBridge{
		cfg:      cfg,
		log:      log,
		client:   &http.Client{Timeout: 0},
		failures: make(chan error, 4),
		procs:    make(map[uint64]*runtimeProc),
	}
}

// Failures implements Bridge.
func (b *SubprocessBridge) Failures() <-chan error { return b.failures }

// Initialize spawns a runtime process for the entry and waits for its
// health endpoint, forwarding heterogeneous progress along the way:
// phase text when the runtime reports one, a "[k/n]" poll counter while
// it is still unreachable.
func (b *SubprocessBridge) Initialize(ctx context.Context, entry types.RegistryEntry, onProgress ProgressFunc) (Handle, error) {
	if strings.TrimSpace(entry.Path) == "" {
		return nil, fmt.Errorf("model %q has no artifact path", entry.ID)
	}
	if onProgress == nil {
		onProgress = func(Progress) {}
	}

	port, err := b.pickPort()
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s:%d", b.cfg.Host, port)

	args := []string{"-m", entry.Path, "--host", b.cfg.Host, "--port", strconv.Itoa(port)}
	if b.cfg.CtxSize > 0 {
		args = append(args, "-c", strconv.Itoa(b.cfg.CtxSize))
	}
	if b.cfg.GPULayers > 0 {
		args = append(args, "-ngl", strconv.Itoa(b.cfg.GPULayers))
	}
	if b.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(b.cfg.Threads))
	}
	args = append(args, b.cfg.ExtraArgs...)

	p := &runtimeProc{baseURL: baseURL, exited: make(chan struct{})}
	cmd := exec.Command(b.cfg.Bin, args...)
	cmd.Stderr = &p.stderr
	p.cmd = cmd

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errors.New("bridge is closed")
	}
	b.nextGen++
	p.gen = b.nextGen
	b.procs[p.gen] = p
	b.mu.Unlock()

	if err := cmd.Start(); err != nil {
		b.forget(p.gen)
		return nil, fmt.Errorf("start %s: %w", b.cfg.Bin, err)
	}
	b.log.Info().Str("model", entry.ID).Int("pid", cmd.Process.Pid).Str("url", baseURL).Msg("engine process started")
	onProgress(Progress{Text: "starting engine process"})

	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
		b.reportExit(p)
	}()

	if err := b.awaitReady(ctx, p, onProgress); err != nil {
		_ = b.stopProc(p)
		return nil, err
	}

	p.mu.Lock()
	p.ready = true
	p.mu.Unlock()
	b.log.Info().Str("model", entry.ID).Str("url", baseURL).Msg("engine online")
	return &subprocessHandle{bridge: b, proc: p}, nil
}

// awaitReady polls the runtime's health endpoint until it answers, the
// process dies, the context ends, or the deadline passes.
func (b *SubprocessBridge) awaitReady(ctx context.Context, p *runtimeProc, onProgress ProgressFunc) error {
	attempts := int(b.cfg.ReadyTimeout / healthPollInterval)
	if attempts < 1 {
		attempts = 1
	}
	lastText := ""
	for i := 1; i <= attempts; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.exited:
			return exitError("engine process exited before ready", p)
		default:
		}

		status, ok := b.health(p.baseURL)
		if ok {
			onProgress(Progress{Text: "engine online"})
			return nil
		}
		switch {
		case status != "" && status != lastText:
			lastText = status
			onProgress(Progress{Text: status})
		case status == "" && i%10 == 0:
			onProgress(Progress{Text: fmt.Sprintf("waiting for engine [%d/%d]", i, attempts)})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.exited:
			return exitError("engine process exited before ready", p)
		case <-time.After(healthPollInterval):
		}
	}
	return fmt.Errorf("engine not ready within %s: %s", b.cfg.ReadyTimeout, p.baseURL)
}

// health asks the runtime's /health endpoint. While the model is still
// loading, llama-server answers 503 with a JSON status that callers can
// show as progress text.
func (b *SubprocessBridge) health(baseURL string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return "", false
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return "", true
	}
	var payload struct {
		Status string `json:"status"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if json.Unmarshal(data, &payload) == nil {
		if payload.Status != "" {
			return payload.Status, false
		}
		if payload.Error.Message != "" {
			return payload.Error.Message, false
		}
	}
	return "", false
}

// reportExit pushes a post-adoption process death onto the failure
// channel. Pre-ready exits are handled by awaitReady and explicit stops
// are not failures.
func (b *SubprocessBridge) reportExit(p *runtimeProc) {
	p.mu.Lock()
	ready, stopped := p.ready, p.stopped
	p.mu.Unlock()
	if !ready || stopped {
		return
	}
	b.forget(p.gen)
	err := exitError("engine process exited unexpectedly", p)
	b.log.Error().Err(err).Int("pid", p.cmd.Process.Pid).Msg("engine transport failure")
	select {
	case b.failures <- err:
	default:
		b.log.Warn().Msg("failure channel full, dropping transport failure")
	}
}

func exitError(prefix string, p *runtimeProc) error {
	tail := p.stderr.String()
	if len(tail) > stderrTailBytes {
		tail = tail[len(tail)-stderrTailBytes:]
	}
	if p.waitErr != nil {
		return fmt.Errorf("%s: %v; stderr tail: %s", prefix, p.waitErr, tail)
	}
	return fmt.Errorf("%s; stderr tail: %s", prefix, tail)
}

// stopProc terminates a runtime: SIGTERM, a grace period, then SIGKILL.
// Idempotent.
func (b *SubprocessBridge) stopProc(p *runtimeProc) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.mu.Unlock()
	b.forget(p.gen)
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.exited:
	case <-time.After(b.cfg.StopGrace):
		_ = p.cmd.Process.Kill()
		<-p.exited
	}
	b.log.Info().Int("pid", p.cmd.Process.Pid).Msg("engine process stopped")
	return nil
}

func (b *SubprocessBridge) forget(gen uint64) {
	b.mu.Lock()
	delete(b.procs, gen)
	b.mu.Unlock()
}

// Close stops every live runtime. Implements Bridge.
func (b *SubprocessBridge) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	procs := make([]*runtimeProc, 0, len(b.procs))
	for _, p := range b.procs {
		procs = append(procs, p)
	}
	b.mu.Unlock()
	for _, p := range procs {
		_ = b.stopProc(p)
	}
	return nil
}

func (b *SubprocessBridge) pickPort() (int, error) {
	if b.cfg.PortStart > 0 && b.cfg.PortEnd >= b.cfg.PortStart {
		return pickPortInRange(b.cfg.Host, b.cfg.PortStart, b.cfg.PortEnd)
	}
	return pickFreePort(b.cfg.Host)
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, p))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", host+":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr := l.Addr().String()
	lastColon := strings.LastIndex(addr, ":")
	if lastColon < 0 {
		return 0, fmt.Errorf("unexpected addr: %s", addr)
	}
	return strconv.Atoi(addr[lastColon+1:])
}
