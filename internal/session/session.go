// Package session owns the model lifecycle and chat state for one daemon
// process: hardware compatibility, catalog selection, single-flight model
// loading with supersede-on-switch, single-flight generation, and the
// normalized transcript exposed to clients.
//
// All public operations are safe for concurrent use. Long-running work
// (engine initialization, completion calls) runs on detached goroutines;
// every mutation made on behalf of such work re-checks that its attempt is
// still the current one before writing.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"intentd/internal/catalog"
	"intentd/internal/engine"
	"intentd/internal/probe"
	"intentd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 256
	defaultGenTimeout  = 2 * time.Minute
	defaultLowMemoryGB = 8
	resetTimeout       = 10 * time.Second
	unloadTimeout      = 30 * time.Second
)

// DefaultSystemPrompt is the classification instruction in effect until a
// caller installs its own prompt. Replies must match the shape the
// normalizer validates.
const DefaultSystemPrompt = `You are a strict message classifier. For every user message reply with a single JSON object and nothing else, shaped exactly like {"classification": "...", "translation": "..."}. Use classification QUESTION when the message asks for information, ACTION when it asks for something to be done, NOSENSE when it is neither. Put the message translated into English in translation.`

const initialStatus = "Checking hardware compatibility..."

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Registry []types.RegistryEntry
	Filter   catalog.FilterOptions

	// Bridge reaches the execution host. Nil means the daemon runs without
	// an engine; loads are rejected until one is configured.
	Bridge engine.Bridge

	// Notifier receives lifecycle events; nil drops them.
	Notifier Notifier

	Log zerolog.Logger

	// SystemPrompt overrides DefaultSystemPrompt as the prompt restored when
	// a caller clears theirs.
	SystemPrompt string

	Temperature float64
	MaxTokens   int
	GenTimeout  time.Duration

	// LowMemoryGB is the advisory threshold under which the status line
	// warns that large models may fail to load.
	LowMemoryGB float64
}

// Manager is the session state machine. One instance per process.
type Manager struct {
	log      zerolog.Logger
	notifier Notifier
	bridge   engine.Bridge

	temperature   float64
	maxTokens     int
	genTimeout    time.Duration
	lowMemoryGB   float64
	defaultPrompt string

	mu       sync.RWMutex
	registry []types.RegistryEntry
	filter   catalog.FilterOptions
	models   []types.ModelChoice

	selectedModelID string
	selectedVRAMMB  float64
	engineStatus    string
	engineProgress  float64
	isGenerating    bool
	messages        []types.ChatMessage
	modelLoadTimeMS *float64
	systemPrompt    string

	gpuSupported      types.GPUSupport
	gpuAdapterInfo    string
	estimatedMemoryGB float64

	compatibilityError string
	modelLoadError     string
	chatError          string
	workerError        string

	// handle is the adopted engine instance, at most one at a time.
	// loadSeq identifies the load attempt allowed to commit; genEpoch
	// identifies the generation allowed to resolve.
	handle    engine.Handle
	loadSeq   uint64
	genEpoch  uint64
	genCancel context.CancelFunc
}

// New constructs a Manager and, when a bridge is present, starts the
// watcher that surfaces out-of-band execution host failures.
func New(cfg Config) *Manager {
	m := &Manager{
		log:         cfg.Log,
		notifier:    cfg.Notifier,
		bridge:      cfg.Bridge,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		genTimeout:  cfg.GenTimeout,
		lowMemoryGB: cfg.LowMemoryGB,

		registry:     append([]types.RegistryEntry(nil), cfg.Registry...),
		filter:       cfg.Filter,
		models:       catalog.Prepare(cfg.Registry, cfg.Filter),
		engineStatus: initialStatus,
		gpuSupported: types.GPUSupportUnknown,
	}
	if m.notifier == nil {
		m.notifier = noopNotifier{}
	}
	if m.temperature <= 0 {
		m.temperature = defaultTemperature
	}
	if m.maxTokens <= 0 {
		m.maxTokens = defaultMaxTokens
	}
	if m.genTimeout <= 0 {
		m.genTimeout = defaultGenTimeout
	}
	if m.lowMemoryGB <= 0 {
		m.lowMemoryGB = defaultLowMemoryGB
	}
	m.defaultPrompt = strings.TrimSpace(cfg.SystemPrompt)
	if m.defaultPrompt == "" {
		m.defaultPrompt = DefaultSystemPrompt
	}
	m.systemPrompt = m.defaultPrompt
	if m.bridge != nil {
		go m.watchBridge()
	}
	return m
}

// Snapshot returns a deep copy of the observable session state.
func (m *Manager) Snapshot() types.StateSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := types.StateSnapshot{
		SelectedModelID:     m.selectedModelID,
		SelectedModelVRAMMB: m.selectedVRAMMB,
		EngineStatus:        m.engineStatus,
		EngineProgress:      m.engineProgress,
		IsGenerating:        m.isGenerating,
		SystemPrompt:        m.systemPrompt,
		GPUSupported:        m.gpuSupported,
		GPUAdapterInfo:      m.gpuAdapterInfo,
		EstimatedMemoryGB:   m.estimatedMemoryGB,
		CompatibilityError:  m.compatibilityError,
		ModelLoadError:      m.modelLoadError,
		ChatError:           m.chatError,
		WorkerError:         m.workerError,
	}
	snap.Models = append([]types.ModelChoice(nil), m.models...)
	snap.Messages = make([]types.ChatMessage, len(m.messages))
	for i, msg := range m.messages {
		snap.Messages[i] = msg
		if msg.ExecutionTimeMS != nil {
			v := *msg.ExecutionTimeMS
			snap.Messages[i].ExecutionTimeMS = &v
		}
	}
	if m.modelLoadTimeMS != nil {
		v := *m.modelLoadTimeMS
		snap.ModelLoadTimeMS = &v
	}
	return snap
}

// Models returns a copy of the selectable catalog.
func (m *Manager) Models() []types.ModelChoice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.ModelChoice(nil), m.models...)
}

// Ready reports whether an engine is loaded and generation is permitted.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle != nil && m.engineProgress >= 1 &&
		m.compatibilityError == "" && m.workerError == "" && m.modelLoadError == ""
}

// ApplyProbeResult installs the startup hardware probe outcome. A failed
// probe is terminal for the session: the compatibility error it sets is
// never auto-cleared.
func (m *Manager) ApplyProbeResult(res probe.Result) {
	m.mu.Lock()
	if res.Supported {
		m.gpuSupported = types.GPUSupportYes
		m.gpuAdapterInfo = res.AdapterInfo
		m.estimatedMemoryGB = res.MemoryGB
		if res.Err != "" {
			m.compatibilityError = res.Err
			m.engineStatus = res.Err
		} else {
			m.engineStatus = res.StatusLine(m.lowMemoryGB)
		}
	} else {
		m.gpuSupported = types.GPUSupportNo
		m.compatibilityError = res.Err
		m.engineStatus = res.Err
	}
	status := m.engineStatus
	m.mu.Unlock()

	m.log.Info().
		Bool("supported", res.Supported).
		Str("adapter", res.AdapterInfo).
		Float64("memory_gb", res.MemoryGB).
		Msg("hardware probe applied")
	m.publish(Event{Name: EventProbeApplied, Fields: map[string]any{
		"supported": res.Supported,
		"status":    status,
	}})
}

// SetCatalog replaces the registry and re-derives the selectable list.
// Called at startup and whenever the manifest watcher fires.
func (m *Manager) SetCatalog(entries []types.RegistryEntry) {
	m.mu.Lock()
	m.registry = append([]types.RegistryEntry(nil), entries...)
	m.models = catalog.Prepare(m.registry, m.filter)
	n := len(m.models)
	m.mu.Unlock()

	m.log.Info().Int("models", n).Msg("catalog updated")
	m.publish(Event{Name: EventCatalogUpdated, Fields: map[string]any{"models": n}})
}

// Close drops the adopted engine handle. The bridge itself is owned and
// closed by the caller that constructed it.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	cancel := m.genCancel
	m.genCancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if h != nil {
		return h.Unload(ctx)
	}
	return nil
}

// watchBridge turns out-of-band execution host failures into session state.
// The worker error escalates to a compatibility error exactly once and is
// never auto-cleared; an in-flight generation is cancelled so its failure
// path can settle the transcript.
func (m *Manager) watchBridge() {
	for err := range m.bridge.Failures() {
		m.reportTransportFailure(err)
	}
}

func (m *Manager) reportTransportFailure(err error) {
	msg := err.Error()
	m.mu.Lock()
	m.workerError = msg
	m.compatibilityError = "Execution host failed: " + msg
	m.engineStatus = m.compatibilityError
	m.handle = nil
	cancel := m.genCancel
	m.genCancel = nil
	modelID := m.selectedModelID
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	transportFailuresTotal.Inc()
	m.log.Error().Err(err).Str("model", modelID).Msg("execution host failed")
	m.publish(Event{Name: EventTransportFailed, ModelID: modelID, Fields: map[string]any{
		"error": msg,
	}})
}

func (m *Manager) publish(e Event) {
	m.notifier.Publish(e)
}

// resetEngineContext asks the engine to clear its conversation context.
// Best-effort: failures are logged, never surfaced to state.
func (m *Manager) resetEngineContext(h engine.Handle) {
	ctx, cancel := context.WithTimeout(context.Background(), resetTimeout)
	defer cancel()
	if err := h.ResetContext(ctx); err != nil {
		m.log.Warn().Err(err).Msg("engine context reset failed")
	}
}

// unloadEngine tears down a replaced or defeated engine instance.
func (m *Manager) unloadEngine(h engine.Handle, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), unloadTimeout)
	defer cancel()
	if err := h.Unload(ctx); err != nil {
		m.log.Warn().Err(err).Str("reason", reason).Msg("engine unload failed")
	}
}
