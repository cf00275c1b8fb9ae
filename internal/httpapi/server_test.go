package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"intentd/pkg/types"
)

type mockService struct {
	snapshot  types.StateSnapshot
	models    []types.ModelChoice
	ready     bool
	loadOp    string
	loadErr   error
	sendErr   error
	promptErr error
	resetErr  error

	loadedID string
	sentMsg  string
	prompt   string
	resets   int
}

func (m *mockService) Snapshot() types.StateSnapshot { return m.snapshot }
func (m *mockService) Models() []types.ModelChoice {
	return append([]types.ModelChoice(nil), m.models...)
}
func (m *mockService) Ready() bool { return m.ready }
func (m *mockService) LoadModel(ctx context.Context, id string) (string, error) {
	m.loadedID = id
	if m.loadErr != nil {
		return "", m.loadErr
	}
	return m.loadOp, nil
}
func (m *mockService) SendMessage(ctx context.Context, text string) error {
	m.sentMsg = text
	return m.sendErr
}
func (m *mockService) SetSystemPrompt(ctx context.Context, text string) error {
	m.prompt = text
	return m.promptErr
}
func (m *mockService) ResetChat(ctx context.Context) error {
	m.resets++
	return m.resetErr
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func TestStateHandler(t *testing.T) {
	svc := &mockService{snapshot: types.StateSnapshot{
		SelectedModelID: "m1",
		EngineStatus:    "m1 ready (120 ms)",
		EngineProgress:  1,
	}}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/state", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") { t.Fatalf("content-type=%s", ct) }
	var body types.StateSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.SelectedModelID != "m1" || body.EngineProgress != 1 { t.Fatalf("unexpected body: %+v", body) }
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.ModelChoice{{ID: "m1"}, {ID: "m2"}}}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if len(body.Models) != 2 { t.Fatalf("models len=%d", len(body.Models)) }
}

func TestLoadModelAccepted(t *testing.T) {
	svc := &mockService{loadOp: "op-1"}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/models/m1/load", nil))
	if w.Code != http.StatusAccepted { t.Fatalf("status=%d body=%s", w.Code, w.Body.String()) }
	var body types.LoadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.Op != "op-1" || body.ModelID != "m1" { t.Fatalf("unexpected body: %+v", body) }
	if svc.loadedID != "m1" { t.Fatalf("service saw id %q", svc.loadedID) }
}

func TestChatAccepted(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewBufferString(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted { t.Fatalf("status=%d body=%s", w.Code, w.Body.String()) }
	var body types.AcceptedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if !body.Accepted { t.Fatalf("unexpected body: %+v", body) }
	if svc.sentMsg != "hi" { t.Fatalf("service saw message %q", svc.sentMsg) }
}

func TestChatMessageRequired(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewBufferString(`{"message":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest { t.Fatalf("expected 400 for blank message, got %d", w.Code) }
	if svc.sentMsg != "" { t.Fatalf("blank message reached the service: %q", svc.sentMsg) }
}

func TestChatBadJSON(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewBufferString("not-json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest { t.Fatalf("status=%d", w.Code) }
}

func TestChatUnsupportedMediaType(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewBufferString(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType { t.Fatalf("status=%d", w.Code) }
}

func TestChatContentTypeCaseInsensitive(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewBufferString(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "Application/JSON; charset=utf-8")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted { t.Fatalf("expected 202 with mixed-case content-type, got %d", w.Code) }
}

func TestChatBodyTooLarge(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	// Create >1MiB body
	big := make([]byte, (1<<20)+10)
	for i := range big { big[i] = 'a' }
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest { t.Fatalf("expected 400 for too-large body, got %d", w.Code) }
}

func TestResetChatHandler(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/chat/reset", nil))
	if w.Code != http.StatusNoContent { t.Fatalf("status=%d", w.Code) }
	if svc.resets != 1 { t.Fatalf("resets=%d", svc.resets) }
}

func TestSetSystemPromptHandler(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/system-prompt", bytes.NewBufferString(`{"prompt":"be terse"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent { t.Fatalf("status=%d body=%s", w.Code, w.Body.String()) }
	if svc.prompt != "be terse" { t.Fatalf("service saw prompt %q", svc.prompt) }
}

func TestHealthz(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
}

func TestReadyz(t *testing.T) {
	svc := &mockService{ready: true}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
}

func TestReadyz_NotReady(t *testing.T) {
	svc := &mockService{ready: false}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable { t.Fatalf("status=%d", w.Code) }
	if !strings.Contains(w.Body.String(), "loading") { t.Fatalf("body=%q", w.Body.String()) }
}
