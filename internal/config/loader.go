// Package config loads the daemon configuration file. YAML, JSON and
// TOML are supported, chosen by extension; absent fields keep their
// defaults, so a config file only states what it changes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server" toml:"server"`
	Catalog    CatalogConfig    `json:"catalog" yaml:"catalog" toml:"catalog"`
	Engine     EngineConfig     `json:"engine" yaml:"engine" toml:"engine"`
	Generation GenerationConfig `json:"generation" yaml:"generation" toml:"generation"`
	Probe      ProbeConfig      `json:"probe" yaml:"probe" toml:"probe"`
	Log        LogConfig        `json:"log" yaml:"log" toml:"log"`
}

// ServerConfig covers the HTTP listener.
type ServerConfig struct {
	Addr         string   `json:"addr" yaml:"addr" toml:"addr"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled  bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods  []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders  []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`
}

// CatalogConfig covers registry sources and the model filter. When both
// sources are set the manifest wins; when neither is set the daemon runs
// with an empty catalog.
type CatalogConfig struct {
	ManifestPath string  `json:"manifest_path" yaml:"manifest_path" toml:"manifest_path"`
	ModelsDir    string  `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	MaxVRAMMB    float64 `json:"max_vram_mb" yaml:"max_vram_mb" toml:"max_vram_mb"`
	QuantTag     string  `json:"quant_tag" yaml:"quant_tag" toml:"quant_tag"`
	ExcludeType  string  `json:"exclude_type" yaml:"exclude_type" toml:"exclude_type"`
}

// EngineConfig covers the execution runtime. Mode selects the bridge:
// "subprocess" spawns a llama-server binary, "inprocess" uses the
// embedded runtime (requires a build with the llama tag).
type EngineConfig struct {
	Mode          string   `json:"mode" yaml:"mode" toml:"mode"`
	Bin           string   `json:"bin" yaml:"bin" toml:"bin"`
	Host          string   `json:"host" yaml:"host" toml:"host"`
	PortStart     int      `json:"port_start" yaml:"port_start" toml:"port_start"`
	PortEnd       int      `json:"port_end" yaml:"port_end" toml:"port_end"`
	CtxSize       int      `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	GPULayers     int      `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	Threads       int      `json:"threads" yaml:"threads" toml:"threads"`
	ExtraArgs     []string `json:"extra_args" yaml:"extra_args" toml:"extra_args"`
	ReadyTimeoutS int      `json:"ready_timeout_s" yaml:"ready_timeout_s" toml:"ready_timeout_s"`
}

// ReadyTimeout converts the configured seconds to a duration.
func (e EngineConfig) ReadyTimeout() time.Duration {
	return time.Duration(e.ReadyTimeoutS) * time.Second
}

// GenerationConfig covers completion sampling and pacing.
type GenerationConfig struct {
	Temperature float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	TimeoutS    int     `json:"timeout_s" yaml:"timeout_s" toml:"timeout_s"`
	// SystemPrompt overrides the built-in classification instruction.
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt"`
}

// Timeout converts the configured seconds to a duration.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutS) * time.Second
}

// ProbeConfig covers the hardware compatibility check.
type ProbeConfig struct {
	// LowMemoryGB is the advisory threshold below which the status line
	// warns that larger models may fail to load.
	LowMemoryGB float64 `json:"low_memory_gb" yaml:"low_memory_gb" toml:"low_memory_gb"`
}

// LogConfig covers structured logging output.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8090",
			MaxBodyBytes: 1 << 20,
		},
		Catalog: CatalogConfig{
			MaxVRAMMB:   8192,
			QuantTag:    "q4",
			ExcludeType: "embedding",
		},
		Engine: EngineConfig{
			Mode:          "subprocess",
			Bin:           "llama-server",
			Host:          "127.0.0.1",
			CtxSize:       4096,
			ReadyTimeoutS: 120,
		},
		Generation: GenerationConfig{
			Temperature: 0.1,
			MaxTokens:   256,
			TimeoutS:    120,
		},
		Probe: ProbeConfig{
			LowMemoryGB: 8,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a configuration file based on its extension, layered over
// Default. Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	switch c.Engine.Mode {
	case "subprocess", "inprocess":
	default:
		return fmt.Errorf("engine.mode must be subprocess or inprocess, got %q", c.Engine.Mode)
	}
	if c.Engine.PortStart < 0 || c.Engine.PortEnd < 0 {
		return fmt.Errorf("engine ports must not be negative")
	}
	if c.Engine.PortEnd != 0 && c.Engine.PortEnd < c.Engine.PortStart {
		return fmt.Errorf("engine.port_end %d below engine.port_start %d", c.Engine.PortEnd, c.Engine.PortStart)
	}
	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("generation.max_tokens must be positive")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature %v out of range [0,2]", c.Generation.Temperature)
	}
	return nil
}
