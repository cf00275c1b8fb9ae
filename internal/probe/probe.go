// Package probe answers whether this host can run the model engine at all
// and describes the hardware it found. It is consulted exactly once at
// startup; the session manager gates every model operation on its verdict.
package probe

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NoRuntimeMessage is the terminal failure string when no GPU runtime entry
// point exists on the host. It is fixed so callers can key off it.
const NoRuntimeMessage = "No supported GPU runtime detected on this host"

// placeholderAdapter is used when a runtime exists but no strategy could
// extract a description. Missing info is a degradation, not a failure.
const placeholderAdapter = "Unknown adapter"

const probeTimeout = 10 * time.Second

// Result is the probe verdict.
type Result struct {
	// Supported reports whether a GPU runtime entry point exists. When
	// false the probe stopped at the capability check and Err carries
	// NoRuntimeMessage.
	Supported bool
	// AdapterInfo is a best-effort vendor/model description, possibly
	// placeholderAdapter, empty only when Supported is false or the
	// adapter query hard-failed.
	AdapterInfo string
	// MemoryGB is the estimated system memory; 0 means unknown.
	MemoryGB float64
	// Err is set on a terminal failure: either the capability entry point
	// is missing or the adapter query failed on a present runtime.
	Err string
}

// adapterStrategy is one way of describing the GPU. tool is the executable
// the strategy needs; run returns a description, an empty string when the
// strategy does not apply on this host, or an error when the tool exists
// but the query failed.
type adapterStrategy struct {
	name string
	tool string
	run  func(ctx context.Context) (string, error)
}

// Prober runs the hardware compatibility check. The strategy list and the
// memory reader are fields so tests can substitute them.
type Prober struct {
	log        zerolog.Logger
	lookPath   func(string) (string, error)
	strategies []adapterStrategy
	readMemGB  func(ctx context.Context) float64
}

// New returns a Prober wired to the real detection tools.
func New(log zerolog.Logger) *Prober {
	p := &Prober{log: log, lookPath: exec.LookPath}
	p.strategies = defaultStrategies()
	p.readMemGB = readSystemMemoryGB
	return p
}

// Run executes the probe. The steps mirror the compatibility contract:
// capability presence first (absence is terminal and skips everything
// else), then adapter acquisition, then best-effort description
// extraction, then best-effort memory estimation. Only the first two can
// fail the probe.
func (p *Prober) Run(ctx context.Context) Result {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, probeTimeout)
		defer cancel()
	}

	present := p.presentStrategies()
	if len(present) == 0 {
		p.log.Warn().Msg("no GPU runtime tooling found on PATH")
		return Result{Err: NoRuntimeMessage}
	}

	res := Result{Supported: true}
	desc, err := p.describeAdapter(ctx, present)
	switch {
	case err != nil:
		res.Err = fmt.Sprintf("failed to query GPU adapter: %v", err)
		p.log.Error().Str("error", res.Err).Msg("adapter query failed")
	case desc == "":
		res.AdapterInfo = placeholderAdapter
		p.log.Warn().Msg("no strategy produced an adapter description")
	default:
		res.AdapterInfo = desc
	}

	res.MemoryGB = p.readMemGB(ctx)
	if res.MemoryGB == 0 {
		p.log.Warn().Msg("system memory estimate unavailable")
	}
	return res
}

// presentStrategies filters the cascade down to strategies whose tool is on
// PATH. An empty result means the capability entry point is missing.
func (p *Prober) presentStrategies() []adapterStrategy {
	var out []adapterStrategy
	for _, s := range p.strategies {
		if s.tool == "" {
			out = append(out, s)
			continue
		}
		if _, err := p.lookPath(s.tool); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// describeAdapter walks the cascade in order; the first strategy that
// yields a description wins. A strategy returning an empty description is
// skipped silently. If nothing succeeded and at least one strategy
// hard-failed, the first such failure is returned.
func (p *Prober) describeAdapter(ctx context.Context, strategies []adapterStrategy) (string, error) {
	var firstErr error
	for _, s := range strategies {
		desc, err := s.run(ctx)
		if err != nil {
			p.log.Debug().Str("strategy", s.name).Err(err).Msg("adapter strategy failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", s.name, err)
			}
			continue
		}
		if desc != "" {
			p.log.Debug().Str("strategy", s.name).Str("adapter", desc).Msg("adapter described")
			return desc, nil
		}
	}
	return "", firstErr
}

// StatusLine renders a passed probe for the narrative status field:
// adapter description, memory estimate and a low-memory advisory below
// the given threshold.
func (r Result) StatusLine(lowMemoryGB float64) string {
	if !r.Supported || r.Err != "" {
		return r.Err
	}
	var b strings.Builder
	b.WriteString("GPU: ")
	b.WriteString(r.AdapterInfo)
	if r.MemoryGB > 0 {
		fmt.Fprintf(&b, " | Memory: ~%.0f GB", r.MemoryGB)
		if lowMemoryGB > 0 && r.MemoryGB < lowMemoryGB {
			b.WriteString(" (low memory: large models may fail to load)")
		}
	} else {
		b.WriteString(" | Memory: Unknown")
	}
	return b.String()
}
