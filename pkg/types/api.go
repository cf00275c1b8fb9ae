package types

// StateSnapshot is the full observable session state returned by GET /v1/state.
// It is a deep copy; mutating it never affects the live session.
type StateSnapshot struct {
	// Selectable models, ascending by VRAM requirement.
	Models []ModelChoice `json:"models"`
	// Currently selected model id; empty when nothing was loaded yet.
	// example: tinyllama-q4
	SelectedModelID string `json:"selected_model_id,omitempty" example:"tinyllama-q4"`
	// Human-readable narrative status; never empty.
	// example: tinyllama-q4 ready (1342 ms)
	EngineStatus string `json:"engine_status" example:"tinyllama-q4 ready (1342 ms)"`
	// Load progress in [0,1]; 1 only after a confirmed successful load.
	// example: 0.75
	EngineProgress float64 `json:"engine_progress" example:"0.75"`
	// True while exactly one generation request is in flight.
	// example: false
	IsGenerating bool `json:"is_generating" example:"false"`
	// Conversation log in turn order.
	Messages []ChatMessage `json:"messages"`
	// Duration of the last successful load in milliseconds; absent while a
	// load attempt is still active or after a failure.
	// example: 1342.7
	ModelLoadTimeMS *float64 `json:"model_load_time_ms,omitempty" example:"1342.7"`
	// Active system prompt, trimmed.
	SystemPrompt string `json:"system_prompt"`
	// Tri-state GPU capability verdict.
	// example: supported
	GPUSupported GPUSupport `json:"gpu_supported" example:"supported"`
	// Best-effort adapter description (vendor/architecture).
	// example: NVIDIA GeForce RTX 3060
	GPUAdapterInfo string `json:"gpu_adapter_info,omitempty" example:"NVIDIA GeForce RTX 3060"`
	// Estimated system memory in GB; 0 when unknown.
	// example: 16
	EstimatedMemoryGB float64 `json:"estimated_memory_gb,omitempty" example:"16"`
	// Declared VRAM requirement of the selected model in MB.
	// example: 3000
	SelectedModelVRAMMB float64 `json:"selected_model_vram_mb,omitempty" example:"3000"`
	// Blocking compatibility error; presence gates all model operations.
	CompatibilityError string `json:"compatibility_error,omitempty"`
	// Error from the last load attempt of the selected model.
	ModelLoadError string `json:"model_load_error,omitempty"`
	// Error from the last generation attempt.
	ChatError string `json:"chat_error,omitempty"`
	// Sticky transport-level failure of the execution bridge.
	WorkerError string `json:"worker_error,omitempty"`
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	// User message to send to the model.
	// example: hello
	Message string `json:"message" example:"hello"`
}

// SystemPromptRequest is the body of PUT /v1/system-prompt.
type SystemPromptRequest struct {
	// Replacement system prompt; trimmed before comparison.
	// example: You are a strict command interpreter.
	Prompt string `json:"prompt" example:"You are a strict command interpreter."`
}

// LoadResponse acknowledges an accepted asynchronous model load.
type LoadResponse struct {
	// Operation id of the background load.
	// example: 0b6e2d1f-9c3a-4f2e-8d5b-1a7c9e0f4b63
	Op string `json:"op" example:"0b6e2d1f-9c3a-4f2e-8d5b-1a7c9e0f4b63"`
	// Model being loaded.
	// example: tinyllama-q4
	ModelID string `json:"model_id" example:"tinyllama-q4"`
}

// AcceptedResponse acknowledges an accepted asynchronous operation whose
// result arrives through state and events.
type AcceptedResponse struct {
	// example: true
	Accepted bool `json:"accepted" example:"true"`
}

// ModelsResponse wraps the list of selectable models returned by GET /v1/models.
type ModelsResponse struct {
	// Filtered, ordered model choices.
	Models []ModelChoice `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
