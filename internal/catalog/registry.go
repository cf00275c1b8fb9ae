// Package catalog loads the model registry and derives the selectable
// model list from it. The registry is either a manifest file (YAML or
// JSON) or, as a fallback, a directory scan over *.gguf artifacts.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"intentd/internal/common/fsutil"
	"intentd/pkg/types"
)

// LoadManifest reads a registry manifest based on its extension.
// Supported: .yaml/.yml and .json. The manifest is a flat list of
// entries; duplicate ids keep the first occurrence.
func LoadManifest(path string) ([]types.RegistryEntry, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var entries []types.RegistryEntry
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse yaml manifest: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse json manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest extension: %s", ext)
	}
	return dedupe(entries), nil
}

// ScanDir builds a registry by scanning a directory for *.gguf files.
// ID is the filename, the VRAM requirement is estimated from file size,
// and entries whose name suggests an embedding model are typed as such
// so the filter can exclude them.
func ScanDir(dir string) ([]types.RegistryEntry, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	dirents, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var entries []types.RegistryEntry
	for _, e := range dirents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		p := filepath.Join(abs, name)
		entries = append(entries, types.RegistryEntry{
			ID:             name,
			Path:           p,
			VRAMRequiredMB: estimateVRAMMB(p),
			Type:           inferType(name),
		})
	}
	return dedupe(entries), nil
}

// Lookup resolves an id against the registry.
func Lookup(entries []types.RegistryEntry, id string) (types.RegistryEntry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return types.RegistryEntry{}, false
}

func dedupe(entries []types.RegistryEntry) []types.RegistryEntry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// estimateVRAMMB estimates the requirement from file size. Returns a
// conservative 1 MB minimum when the file cannot be statted so the
// admission check is never bypassed by an unknown size.
func estimateVRAMMB(path string) float64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 1
	}
	mb := float64(fi.Size()) / (1024 * 1024)
	if mb < 1 {
		mb = 1
	}
	return mb
}

// inferType classifies an artifact by filename tags.
func inferType(name string) string {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "embed") {
		return "embedding"
	}
	return "chat"
}
