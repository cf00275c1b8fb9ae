package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intentd/pkg/types"
)

// Service defines the session operations required by the HTTP API layer.
type Service interface {
	Snapshot() types.StateSnapshot
	Models() []types.ModelChoice
	LoadModel(ctx context.Context, id string) (string, error)
	SendMessage(ctx context.Context, text string) error
	SetSystemPrompt(ctx context.Context, text string) error
	ResetChat(ctx context.Context) error
	Ready() bool
}

type api struct {
	svc Service
	hub *EventHub
}

// NewMux builds the daemon router. hub may be nil when no event stream is
// wired; the endpoint then simply never emits events.
func NewMux(svc Service, hub *EventHub) http.Handler {
	if hub == nil {
		hub = NewEventHub()
	}
	a := &api{svc: svc, hub: hub}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/v1/state", a.state)
	r.Get("/v1/models", a.models)
	r.Post("/v1/models/{id}/load", a.loadModel)
	r.Post("/v1/chat", a.chat)
	r.Post("/v1/chat/reset", a.resetChat)
	r.Put("/v1/system-prompt", a.setSystemPrompt)
	r.Get("/v1/events", a.hub.serveEvents)

	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.readyz)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

func corsOptions() cors.Options {
	opts := cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: corsAllowedMethods,
		AllowedHeaders: corsAllowedHeaders,
		MaxAge:         300,
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if len(opts.AllowedMethods) == 0 {
		opts.AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	}
	if len(opts.AllowedHeaders) == 0 {
		opts.AllowedHeaders = []string{"Accept", "Content-Type", "X-Log-Level"}
	}
	return opts
}

// decodeJSON enforces content type and body size before decoding into dst.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Warn().Err(err).Msg("failed to encode response")
	}
}

func logRequest(r *http.Request, status int, start time.Time, err error, msg string) {
	ev := zlog.Info()
	if err != nil {
		ev = zlog.Warn().Err(err)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	ev.Str("path", r.URL.Path).Int("status", status).Dur("dur", time.Since(start)).Msg(msg)
}

// state godoc
// @Summary  Current session state
// @Description  Full observable session state: catalog, selection, load progress, transcript, and error fields.
// @Tags     session
// @Produce  json
// @Success  200 {object} types.StateSnapshot
// @Router   /v1/state [get]
func (a *api) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Snapshot())
}

// models godoc
// @Summary  Selectable models
// @Description  Models that passed catalog filtering, ordered by VRAM requirement.
// @Tags     models
// @Produce  json
// @Success  200 {object} types.ModelsResponse
// @Router   /v1/models [get]
func (a *api) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: a.svc.Models()})
}

// loadModel godoc
// @Summary  Load a model
// @Description  Starts loading the model into the execution engine. Returns once admission checks pass; progress arrives via /v1/state and /v1/events.
// @Tags     models
// @Produce  json
// @Param    id path string true "Model id"
// @Success  202 {object} types.LoadResponse
// @Failure  404 {object} types.ErrorResponse
// @Failure  503 {object} types.ErrorResponse
// @Router   /v1/models/{id}/load [post]
func (a *api) loadModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lvl := requestLogLevel(r)
	start := time.Now()

	op, err := a.svc.LoadModel(r.Context(), id)
	if err != nil {
		status := writeServiceError(w, err)
		if lvl >= LevelError {
			logRequest(r, status, start, err, "load rejected")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, types.LoadResponse{Op: op, ModelID: id})
	if lvl >= LevelInfo {
		logRequest(r, http.StatusAccepted, start, nil, "load accepted")
	}
}

// chat godoc
// @Summary  Send a chat message
// @Description  Appends a user turn and generates a reply asynchronously. The assistant turn arrives via /v1/state and /v1/events.
// @Tags     chat
// @Accept   json
// @Produce  json
// @Param    request body types.ChatRequest true "Chat message"
// @Success  202 {object} types.AcceptedResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  409 {object} types.ErrorResponse
// @Failure  429 {object} types.ErrorResponse
// @Failure  503 {object} types.ErrorResponse
// @Router   /v1/chat [post]
func (a *api) chat(w http.ResponseWriter, r *http.Request) {
	lvl := requestLogLevel(r)
	start := time.Now()

	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}
	if err := a.svc.SendMessage(r.Context(), req.Message); err != nil {
		status := writeServiceError(w, err)
		if lvl >= LevelError {
			logRequest(r, status, start, err, "chat rejected")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, types.AcceptedResponse{Accepted: true})
	if lvl >= LevelInfo {
		logRequest(r, http.StatusAccepted, start, nil, "chat accepted")
	}
}

// resetChat godoc
// @Summary  Reset the conversation
// @Description  Clears the transcript and resets the engine's conversation context.
// @Tags     chat
// @Success  204 "cleared"
// @Router   /v1/chat/reset [post]
func (a *api) resetChat(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.ResetChat(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setSystemPrompt godoc
// @Summary  Replace the system prompt
// @Description  Installs a new system prompt. An empty prompt restores the default instruction. A changed prompt clears the transcript.
// @Tags     chat
// @Accept   json
// @Param    request body types.SystemPromptRequest true "System prompt"
// @Success  204 "updated"
// @Failure  400 {object} types.ErrorResponse
// @Router   /v1/system-prompt [put]
func (a *api) setSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var req types.SystemPromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.svc.SetSystemPrompt(r.Context(), req.Prompt); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// healthz godoc
// @Summary  Liveness probe
// @Tags     ops
// @Success  200 "ok"
// @Router   /healthz [get]
func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// readyz godoc
// @Summary  Readiness probe
// @Description  Ready once a model is loaded and generation is permitted.
// @Tags     ops
// @Success  200 "ready"
// @Failure  503 "loading"
// @Router   /readyz [get]
func (a *api) readyz(w http.ResponseWriter, r *http.Request) {
	if a.svc.Ready() {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("loading"))
}
