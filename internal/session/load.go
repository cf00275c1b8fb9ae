package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"intentd/internal/catalog"
	"intentd/internal/engine"
	"intentd/pkg/types"
)

// vramErrPrefix marks the one recoverable compatibility error. A message
// carrying it is cleared and re-evaluated on the next load attempt; every
// other compatibility error is terminal.
const vramErrPrefix = "Insufficient memory"

// LoadModel starts loading id. The admission checks run synchronously;
// engine initialization runs on a detached goroutine and reports through
// state, events, and the progress fields. Starting a new load while one is
// in flight does not abort the old engine call: the old attempt simply
// loses the right to commit, and its engine instance is unloaded if it
// shows up late.
//
// Returns the operation id assigned to the attempt.
func (m *Manager) LoadModel(ctx context.Context, id string) (string, error) {
	op := uuid.NewString()

	m.mu.Lock()

	// A previous VRAM rejection is re-checkable; clear it so this attempt
	// gets a fresh admission decision.
	if strings.HasPrefix(m.compatibilityError, vramErrPrefix) {
		m.compatibilityError = ""
	}
	if m.compatibilityError != "" {
		msg := m.compatibilityError
		m.engineStatus = "Cannot load models: " + msg
		m.mu.Unlock()
		m.rejectLoad(op, id, "incompatible", msg)
		return op, ErrIncompatible(msg)
	}
	if m.bridge == nil {
		const msg = "no execution engine is configured on this host"
		m.modelLoadError = msg
		m.engineStatus = "Cannot load models: " + msg
		m.mu.Unlock()
		m.rejectLoad(op, id, "no_bridge", msg)
		return op, ErrBridgeUnavailable(msg)
	}

	entry, ok := catalog.Lookup(m.registry, id)
	if !ok {
		m.modelLoadError = "unknown model: " + id
		m.selectedVRAMMB = 0
		m.mu.Unlock()
		m.rejectLoad(op, id, "not_found", "unknown model: "+id)
		return op, ErrModelNotFound(id)
	}

	// VRAM admission. Memory unknown means the probe could not size the
	// host; fail open with a warning rather than blocking every model.
	availMB := m.estimatedMemoryGB * 1024
	if m.estimatedMemoryGB > 0 && entry.VRAMRequiredMB > availMB {
		msg := fmt.Sprintf("%s: %s needs %.0f MB VRAM but only about %.0f MB is available",
			vramErrPrefix, id, entry.VRAMRequiredMB, availMB)
		m.compatibilityError = msg
		m.engineStatus = msg
		m.engineProgress = 0
		m.modelLoadTimeMS = nil
		m.mu.Unlock()
		m.rejectLoad(op, id, "insufficient_memory", msg)
		return op, ErrIncompatible(msg)
	}
	if m.estimatedMemoryGB <= 0 {
		m.log.Warn().Str("model", id).Msg("host memory unknown, skipping VRAM admission check")
	}

	// Commit: from here on this attempt owns the selection until another
	// load supersedes it.
	m.loadSeq++
	seq := m.loadSeq
	m.genEpoch++
	m.modelLoadError = ""
	m.chatError = ""
	m.selectedModelID = id
	m.selectedVRAMMB = entry.VRAMRequiredMB
	m.engineProgress = 0
	m.messages = nil
	m.modelLoadTimeMS = nil
	m.isGenerating = false
	m.engineStatus = "Loading " + id + "..."
	prev := m.handle
	m.handle = nil
	m.mu.Unlock()

	engineProgressGauge.Set(0)
	m.log.Info().Str("model", id).Str("op", op).Msg("model load started")
	m.publish(Event{Name: EventLoadStarted, ModelID: id, Fields: map[string]any{"op": op}})

	go m.runLoad(seq, op, entry, prev)
	return op, nil
}

// runLoad performs the asynchronous half of a load attempt: tear down the
// replaced engine, initialize the new one, then commit or discard depending
// on whether the attempt is still current.
func (m *Manager) runLoad(seq uint64, op string, entry types.RegistryEntry, prev engine.Handle) {
	if prev != nil {
		m.unloadEngine(prev, "replaced")
	}

	start := time.Now()
	ctx := context.Background()
	h, err := m.bridge.Initialize(ctx, entry, func(p engine.Progress) {
		m.handleProgress(seq, entry.ID, p)
	})
	elapsed := time.Since(start)

	if err != nil {
		m.finishLoadErr(seq, op, entry.ID, err)
		return
	}
	m.finishLoadOK(seq, op, entry.ID, h, elapsed)
}

func (m *Manager) finishLoadOK(seq uint64, op, id string, h engine.Handle, elapsed time.Duration) {
	ms := elapsed.Seconds() * 1000

	m.mu.Lock()
	stale := m.loadSeq != seq || m.selectedModelID != id ||
		m.compatibilityError != "" || m.modelLoadError != "" || m.workerError != ""
	if stale {
		m.mu.Unlock()
		loadsTotal.WithLabelValues("superseded").Inc()
		m.log.Info().Str("model", id).Str("op", op).Msg("load finished after being superseded, discarding engine")
		m.publish(Event{Name: EventLoadSuperseded, ModelID: id, Fields: map[string]any{"op": op}})
		go m.unloadEngine(h, "superseded")
		return
	}
	m.handle = h
	m.modelLoadTimeMS = &ms
	m.engineProgress = 1
	m.engineStatus = fmt.Sprintf("%s ready (%.0f ms)", id, ms)
	m.mu.Unlock()

	loadsTotal.WithLabelValues("ready").Inc()
	loadDuration.Observe(elapsed.Seconds())
	engineProgressGauge.Set(1)
	m.log.Info().Str("model", id).Str("op", op).Float64("load_ms", ms).Msg("model ready")
	m.publish(Event{Name: EventLoadReady, ModelID: id, Fields: map[string]any{
		"op":      op,
		"load_ms": ms,
	}})
}

func (m *Manager) finishLoadErr(seq uint64, op, id string, err error) {
	m.mu.Lock()
	if m.loadSeq != seq || m.selectedModelID != id {
		m.mu.Unlock()
		loadsTotal.WithLabelValues("superseded").Inc()
		m.log.Info().Str("model", id).Str("op", op).Err(err).Msg("superseded load failed, ignoring")
		return
	}
	m.modelLoadError = err.Error()
	m.engineProgress = 0
	m.modelLoadTimeMS = nil
	// A compatibility error set while we were loading owns the narrative.
	if m.compatibilityError == "" {
		m.engineStatus = "Failed to load " + id
	}
	m.mu.Unlock()

	loadsTotal.WithLabelValues("failed").Inc()
	engineProgressGauge.Set(0)
	m.log.Error().Str("model", id).Str("op", op).Err(err).Msg("model load failed")
	m.publish(Event{Name: EventLoadFailed, ModelID: id, Fields: map[string]any{
		"op":    op,
		"error": err.Error(),
	}})
}

// rejectLoad records a synchronous admission failure.
func (m *Manager) rejectLoad(op, id, reason, msg string) {
	loadsTotal.WithLabelValues("rejected").Inc()
	m.log.Warn().Str("model", id).Str("op", op).Str("reason", reason).Msg("model load rejected")
	m.publish(Event{Name: EventLoadFailed, ModelID: id, Fields: map[string]any{
		"op":     op,
		"reason": reason,
		"error":  msg,
	}})
}

// handleProgress is the engine progress callback for one load attempt. It
// drops reports that arrive after the attempt was superseded, already
// committed (load time recorded), or already failed, then folds the report
// into the status line and the monotonically non-decreasing progress value.
func (m *Manager) handleProgress(seq uint64, id string, p engine.Progress) {
	resolved, hasValue := resolveProgress(p)

	m.mu.Lock()
	if m.loadSeq != seq || m.selectedModelID != id || m.modelLoadTimeMS != nil || m.modelLoadError != "" {
		m.mu.Unlock()
		return
	}
	if text := strings.TrimSpace(p.Text); text != "" {
		m.engineStatus = text
	}
	if hasValue && resolved > m.engineProgress {
		m.engineProgress = resolved
	}
	progress := m.engineProgress
	status := m.engineStatus
	m.mu.Unlock()

	engineProgressGauge.Set(progress)
	m.publish(Event{Name: EventLoadProgress, ModelID: id, Fields: map[string]any{
		"progress": progress,
		"status":   status,
	}})
}
