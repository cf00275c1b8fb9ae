package session

import (
	"regexp"
	"strconv"
	"strings"

	"intentd/internal/engine"
)

// Floors applied when a status line only names a phase. Fetch keywords map
// low because downloading dominates early wall-clock time; init keywords map
// high because the engine is nearly ready once weights are on disk.
const (
	fetchPhaseFloor = 0.1
	initPhaseFloor  = 0.9
	stepParseCap    = 0.99
)

var stepCounterRE = regexp.MustCompile(`\[(\d+)\s*/\s*(\d+)\]`)

// resolveProgress maps one engine progress report onto the 0..1 scale.
// Explicit fractions win, then bracketed "[current/total]" counters, then
// phase keywords. ok is false when the report carries no usable signal.
//
// Text-derived values never reach 1.0; only the load completion path writes
// an exact 1.
func resolveProgress(p engine.Progress) (float64, bool) {
	if p.HasFraction {
		return clamp01(p.Fraction), true
	}
	if f, ok := parseStepCounter(p.Text); ok {
		return f, true
	}
	return phaseFloor(p.Text)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func parseStepCounter(text string) (float64, bool) {
	m := stepCounterRE.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	cur, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	total, err := strconv.Atoi(m[2])
	if err != nil || total <= 0 {
		return 0, false
	}
	f := float64(cur) / float64(total)
	if f > stepParseCap {
		f = stepParseCap
	}
	return f, true
}

// phaseFloor matches phase keywords in a status line. Fetch keywords are
// checked first: "download" itself contains "load", so the other order would
// misread a download phase as initialization.
func phaseFloor(text string) (float64, bool) {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, "fetch", "download"):
		return fetchPhaseFloor, true
	case containsAny(t, "init", "load", "warm"):
		return initPhaseFloor, true
	}
	return 0, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
