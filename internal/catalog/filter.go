package catalog

import (
	"fmt"
	"sort"
	"strings"

	"intentd/pkg/types"
)

// FilterOptions are the inclusion rules for the selectable model list.
// They are configuration, not contract: deployments tune the ceiling and
// the quantization tag without code changes.
type FilterOptions struct {
	// MaxVRAMMB excludes models at or above this requirement. Zero
	// disables the ceiling.
	MaxVRAMMB float64
	// QuantTag must appear in the model id (case-folded contains).
	// Empty accepts any id.
	QuantTag string
	// ExcludeType drops entries of this model class.
	ExcludeType string
}

// Prepare derives the ordered selectable model list from the registry.
// Pure: same registry and options always yield the same result. Entries
// pass when the requirement is known and under the ceiling, the class is
// not excluded and the id carries the quantization tag; survivors sort
// ascending by requirement with registry order breaking ties.
func Prepare(entries []types.RegistryEntry, opts FilterOptions) []types.ModelChoice {
	var kept []types.RegistryEntry
	for _, e := range entries {
		if !keep(e, opts) {
			continue
		}
		kept = append(kept, e)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].VRAMRequiredMB < kept[j].VRAMRequiredMB
	})
	choices := make([]types.ModelChoice, 0, len(kept))
	for _, e := range kept {
		choices = append(choices, types.ModelChoice{
			ID:          e.ID,
			DisplayName: fmt.Sprintf("%s (%.0f MB VRAM)", e.ID, e.VRAMRequiredMB),
		})
	}
	return choices
}

func keep(e types.RegistryEntry, opts FilterOptions) bool {
	if e.VRAMRequiredMB <= 0 {
		return false
	}
	if opts.MaxVRAMMB > 0 && e.VRAMRequiredMB >= opts.MaxVRAMMB {
		return false
	}
	if opts.ExcludeType != "" && e.Type == opts.ExcludeType {
		return false
	}
	if opts.QuantTag != "" && !strings.Contains(strings.ToLower(e.ID), strings.ToLower(opts.QuantTag)) {
		return false
	}
	return true
}
