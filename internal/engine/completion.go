package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenAI-compatible chat completion wire types for llama-server.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
	// CachePrompt keeps the server-side KV cache warm between turns;
	// ResetContext erases it.
	CachePrompt    bool            `json:"cache_prompt,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// subprocessHandle is the Handle for one spawned runtime process.
type subprocessHandle struct {
	bridge *SubprocessBridge
	proc   *runtimeProc
}

// Complete sends a non-streaming chat completion. No choices is not an
// error; the result simply carries empty text.
func (h *subprocessHandle) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	payload := chatCompletionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemMessage},
			{Role: "user", Content: req.UserMessage},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
		CachePrompt: true,
	}
	if req.ForceJSONObject {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return CompletionResult{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.proc.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return CompletionResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := h.bridge.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return CompletionResult{}, ctx.Err()
		}
		return CompletionResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return CompletionResult{}, fmt.Errorf("engine http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	var cr chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return CompletionResult{}, fmt.Errorf("decode completion: %w", err)
	}
	out := CompletionResult{Usage: Usage{
		PromptTokens:     cr.Usage.PromptTokens,
		CompletionTokens: cr.Usage.CompletionTokens,
	}}
	if len(cr.Choices) > 0 {
		out.Text = cr.Choices[0].Message.Content
	}
	return out, nil
}

// ResetContext erases the runtime's prompt cache so the next turn starts
// from a clean conversation context. Servers without the slots endpoint
// report 404/501; that is treated as "nothing to erase".
func (h *subprocessHandle) ResetContext(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.proc.baseURL+"/slots/0?action=erase", nil)
	if err != nil {
		return err
	}
	resp, err := h.bridge.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNotImplemented:
		return nil
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("reset context: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
}

// Unload stops this handle's runtime process. Safe to call more than
// once; never touches a replacement process.
func (h *subprocessHandle) Unload(ctx context.Context) error {
	return h.bridge.stopProc(h.proc)
}
