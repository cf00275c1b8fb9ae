package types

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// GPUSupport is the tri-state outcome of the hardware capability probe.
type GPUSupport string

const (
	// GPUSupportUnknown means the probe has not completed yet.
	GPUSupportUnknown GPUSupport = "unknown"
	// GPUSupportYes means a supported GPU runtime entry point exists.
	GPUSupportYes GPUSupport = "supported"
	// GPUSupportNo means no supported GPU runtime was found; terminal.
	GPUSupportNo GPUSupport = "unsupported"
)

// RegistryEntry describes one model artifact in the registry manifest.
type RegistryEntry struct {
	// Stable identifier for the model.
	// example: tinyllama-q4
	ID string `json:"model_id" yaml:"model_id" example:"tinyllama-q4"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/TinyLlama.Q4_K_M.gguf
	Path string `json:"path,omitempty" yaml:"path,omitempty" example:"/home/user/models/TinyLlama.Q4_K_M.gguf"`
	// Declared VRAM requirement in MB; admission and filtering key.
	// example: 3000
	VRAMRequiredMB float64 `json:"vram_required_mb" yaml:"vram_required_mb" example:"3000"`
	// Model class tag (e.g., chat, embedding).
	// example: chat
	Type string `json:"model_type,omitempty" yaml:"model_type,omitempty" example:"chat"`
	// Quantization level or variant string.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" yaml:"quant,omitempty" example:"Q4_K_M"`
	// Optional family (e.g., llama, mistral, phi).
	// example: llama
	Family string `json:"family,omitempty" yaml:"family,omitempty" example:"llama"`
}

// ModelChoice is a filtered, display-ready catalog entry offered to the user.
type ModelChoice struct {
	// Stable identifier for the model.
	// example: tinyllama-q4
	ID string `json:"id" example:"tinyllama-q4"`
	// Human-friendly name embedding the VRAM requirement.
	// example: tinyllama-q4 (3000 MB VRAM)
	DisplayName string `json:"display_name" example:"tinyllama-q4 (3000 MB VRAM)"`
}

// ChatMessage is one turn in the conversation log.
type ChatMessage struct {
	// Unique message identifier.
	// example: 7a1e9f6c-2b34-4d7e-9c1a-0f5b6d8e4a21
	ID string `json:"id" example:"7a1e9f6c-2b34-4d7e-9c1a-0f5b6d8e4a21"`
	// Author of the turn: user, assistant or system.
	// example: user
	Role Role `json:"role" example:"user"`
	// Display text of the turn.
	// example: hello
	Content string `json:"content" example:"hello"`
	// Wall-clock generation duration in milliseconds; assistant turns only.
	// example: 412.5
	ExecutionTimeMS *float64 `json:"execution_time_ms,omitempty" example:"412.5"`
}
