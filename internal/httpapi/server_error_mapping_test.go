package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"intentd/internal/session"
)

func postChat(t *testing.T, svc Service) *httptest.ResponseRecorder {
	t.Helper()
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewBufferString(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestLoadModel_NotFoundMaps404(t *testing.T) {
	svc := &mockService{loadErr: session.ErrModelNotFound("m-missing")}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/models/m-missing/load", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestLoadModel_IncompatibleMaps503(t *testing.T) {
	svc := &mockService{loadErr: session.ErrIncompatible("No supported GPU runtime found")}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/models/m1/load", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestLoadModel_BridgeUnavailableMaps503(t *testing.T) {
	svc := &mockService{loadErr: session.ErrBridgeUnavailable("no execution bridge configured")}
	r := NewMux(svc, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/models/m1/load", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestChat_BusyMaps429AndCountsBackpressure(t *testing.T) {
	baseline := testutil.ToFloat64(backpressureTotal.WithLabelValues("generation_in_flight"))
	svc := &mockService{sendErr: session.ErrBusy("m1")}
	w := postChat(t, svc)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	got := testutil.ToFloat64(backpressureTotal.WithLabelValues("generation_in_flight"))
	if got < baseline+1 {
		t.Fatalf("expected backpressure counter to grow: before=%v after=%v", baseline, got)
	}
}

func TestChat_NotReadyMaps409(t *testing.T) {
	svc := &mockService{sendErr: session.ErrNotReady("no model is loaded and ready")}
	if w := postChat(t, svc); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestChat_IncompatibleMaps503(t *testing.T) {
	svc := &mockService{sendErr: session.ErrIncompatible("Execution host failed: exit status 2")}
	if w := postChat(t, svc); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestChat_HTTPErrorMapping(t *testing.T) {
	svc := &mockService{sendErr: mockHTTPError{msg: "nope", code: http.StatusForbidden}}
	if w := postChat(t, svc); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestChat_GenericErrorMaps500(t *testing.T) {
	svc := &mockService{sendErr: io.EOF}
	if w := postChat(t, svc); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
