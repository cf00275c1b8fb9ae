package session

// Event represents a session lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// Event names published by the manager. One event per completed public
// operation, plus one per asynchronous resolution; progress events are
// emitted per accepted engine callback.
const (
	EventProbeApplied    = "probe_applied"
	EventCatalogUpdated  = "catalog_updated"
	EventLoadStarted     = "load_started"
	EventLoadProgress    = "load_progress"
	EventLoadReady       = "load_ready"
	EventLoadFailed      = "load_failed"
	EventLoadSuperseded  = "load_superseded"
	EventPromptUpdated   = "prompt_updated"
	EventChatReset       = "chat_reset"
	EventGenerateStarted = "generate_started"
	EventGenerateDone    = "generate_done"
	EventGenerateFailed  = "generate_failed"
	EventTransportFailed = "transport_failed"
)

// Notifier receives events from the session manager. Implementations should
// be lightweight and non-blocking; Publish must not panic.
type Notifier interface {
	Publish(Event)
}

// noopNotifier is the default; it drops events.
type noopNotifier struct{}

func (noopNotifier) Publish(Event) {}
