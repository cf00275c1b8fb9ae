package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"intentd/internal/session"
)

const (
	// Per-subscriber buffer; events beyond it are dropped rather than
	// blocking the session manager.
	eventBufferSize = 32

	heartbeatInterval = 15 * time.Second
)

// EventHub fans session events out to subscribed SSE clients. It implements
// session.Notifier so it can be wired straight into the manager.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan session.Event]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan session.Event]struct{})}
}

// Publish delivers e to every subscriber without blocking. Slow clients
// lose events; the state endpoint is the source of truth.
func (h *EventHub) Publish(e session.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (h *EventHub) subscribe() chan session.Event {
	ch := make(chan session.Event, eventBufferSize)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) unsubscribe(ch chan session.Event) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// serveEvents streams session events as SSE until the client disconnects or
// the daemon shuts down.
func (h *EventHub) serveEvents(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ch := h.subscribe()
	defer h.unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	ctx, cancel := joinContexts(baseCtx, r.Context())
	defer cancel()
	ping := time.NewTicker(heartbeatInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			fl.Flush()
		case e := <-ch:
			payload := map[string]any{"name": e.Name}
			if e.ModelID != "" {
				payload["model_id"] = e.ModelID
			}
			for k, v := range e.Fields {
				payload[k] = v
			}
			b, err := json.Marshal(payload)
			if err != nil {
				zlog.Warn().Err(err).Str("event", e.Name).Msg("dropping unencodable event")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Name, b)
			fl.Flush()
		}
	}
}
