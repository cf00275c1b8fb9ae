package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"intentd/internal/engine"
	"intentd/internal/normalize"
	"intentd/pkg/types"
)

// genericGenerationError is what the transcript shows when a completion
// call fails. The underlying error goes to chatError and the log, not the
// chat history.
const genericGenerationError = "Something went wrong while generating the response. Check the logs."

// SendMessage appends a user turn and starts one generation against the
// loaded engine. At most one generation is in flight at a time; a second
// call while one runs is rejected without touching state. The assistant
// turn arrives asynchronously through state and events.
func (m *Manager) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	m.mu.Lock()
	if m.compatibilityError != "" {
		msg := m.compatibilityError
		m.mu.Unlock()
		return ErrIncompatible(msg)
	}
	if m.workerError != "" {
		msg := m.workerError
		m.mu.Unlock()
		return ErrIncompatible("execution host error: " + msg)
	}
	if m.modelLoadError != "" {
		msg := m.modelLoadError
		m.mu.Unlock()
		return ErrNotReady("model failed to load: " + msg)
	}
	if m.handle == nil || m.engineProgress < 1 {
		m.mu.Unlock()
		return ErrNotReady("no model is loaded and ready")
	}
	if text == "" {
		m.mu.Unlock()
		m.log.Debug().Msg("ignoring empty chat message")
		return nil
	}
	if m.isGenerating {
		id := m.selectedModelID
		m.mu.Unlock()
		m.log.Debug().Str("model", id).Msg("generation already in flight, dropping message")
		return busyError{modelID: id}
	}

	m.messages = append(m.messages, types.ChatMessage{
		ID:      uuid.NewString(),
		Role:    types.RoleUser,
		Content: text,
	})
	m.isGenerating = true
	m.chatError = ""
	m.genEpoch++
	epoch := m.genEpoch
	h := m.handle
	modelID := m.selectedModelID
	prompt := m.systemPrompt
	genCtx, cancel := context.WithTimeout(context.Background(), m.genTimeout)
	m.genCancel = cancel
	m.mu.Unlock()

	m.log.Info().Str("model", modelID).Int("chars", len(text)).Msg("generation started")
	m.publish(Event{Name: EventGenerateStarted, ModelID: modelID})

	go m.generate(genCtx, cancel, epoch, h, modelID, prompt, text)
	return nil
}

func (m *Manager) generate(ctx context.Context, cancel context.CancelFunc, epoch uint64, h engine.Handle, modelID, sysPrompt, userText string) {
	defer cancel()

	start := time.Now()
	res, err := h.Complete(ctx, engine.CompletionRequest{
		SystemMessage:   sysPrompt,
		UserMessage:     userText,
		Temperature:     m.temperature,
		MaxTokens:       m.maxTokens,
		ForceJSONObject: true,
	})
	elapsed := time.Since(start)

	if err != nil {
		m.finishGenerationErr(epoch, modelID, err, elapsed)
		return
	}
	m.finishGenerationOK(epoch, modelID, normalize.Normalize(res.Text), elapsed, res.Usage)
}

func (m *Manager) finishGenerationOK(epoch uint64, modelID, display string, elapsed time.Duration, usage engine.Usage) {
	ms := elapsed.Seconds() * 1000

	m.mu.Lock()
	if m.genEpoch != epoch {
		m.mu.Unlock()
		generationsTotal.WithLabelValues("superseded").Inc()
		m.log.Info().Str("model", modelID).Msg("generation finished after chat was reset, discarding reply")
		return
	}
	m.messages = append(m.messages, types.ChatMessage{
		ID:              uuid.NewString(),
		Role:            types.RoleAssistant,
		Content:         display,
		ExecutionTimeMS: &ms,
	})
	m.isGenerating = false
	m.genCancel = nil
	m.mu.Unlock()

	generationsTotal.WithLabelValues("ok").Inc()
	generationDuration.Observe(elapsed.Seconds())
	m.log.Info().
		Str("model", modelID).
		Float64("execution_ms", ms).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Msg("generation finished")
	m.publish(Event{Name: EventGenerateDone, ModelID: modelID, Fields: map[string]any{
		"execution_ms":      ms,
		"completion_tokens": usage.CompletionTokens,
	}})
}

func (m *Manager) finishGenerationErr(epoch uint64, modelID string, err error, elapsed time.Duration) {
	m.mu.Lock()
	if m.genEpoch != epoch {
		m.mu.Unlock()
		generationsTotal.WithLabelValues("superseded").Inc()
		m.log.Info().Str("model", modelID).Err(err).Msg("superseded generation failed, ignoring")
		return
	}
	m.chatError = err.Error()
	m.messages = append(m.messages, types.ChatMessage{
		ID:      uuid.NewString(),
		Role:    types.RoleSystem,
		Content: genericGenerationError,
	})
	m.isGenerating = false
	m.genCancel = nil
	m.mu.Unlock()

	generationsTotal.WithLabelValues("error").Inc()
	m.log.Error().Str("model", modelID).Err(err).Dur("elapsed", elapsed).Msg("generation failed")
	m.publish(Event{Name: EventGenerateFailed, ModelID: modelID, Fields: map[string]any{
		"error": err.Error(),
	}})
}

// SetSystemPrompt replaces the system prompt. Empty input restores the
// default instruction. A no-op when the trimmed text matches the current
// prompt; otherwise the transcript is cleared and, when an engine is
// loaded, its conversation context is reset in the background.
func (m *Manager) SetSystemPrompt(ctx context.Context, text string) error {
	next := strings.TrimSpace(text)

	m.mu.Lock()
	if next == "" {
		next = m.defaultPrompt
	}
	if next == m.systemPrompt {
		m.mu.Unlock()
		return nil
	}
	m.systemPrompt = next
	m.messages = nil
	m.chatError = ""
	h := m.handle
	m.mu.Unlock()

	m.log.Info().Int("chars", len(next)).Msg("system prompt updated")
	m.publish(Event{Name: EventPromptUpdated})
	if h != nil {
		go m.resetEngineContext(h)
	}
	return nil
}

// ResetChat clears the transcript and any in-flight generation's claim on
// it. The engine's conversation context is reset best-effort.
func (m *Manager) ResetChat(ctx context.Context) error {
	m.mu.Lock()
	m.messages = nil
	m.isGenerating = false
	m.chatError = ""
	m.genEpoch++
	m.genCancel = nil
	h := m.handle
	m.mu.Unlock()

	m.log.Info().Msg("chat reset")
	m.publish(Event{Name: EventChatReset})
	if h != nil {
		go m.resetEngineContext(h)
	}
	return nil
}
