package session

import (
	"testing"

	"intentd/internal/engine"
)

func TestResolveProgressExplicitFractionWins(t *testing.T) {
	got, ok := resolveProgress(engine.Progress{Text: "[1/10]", Fraction: 0.42, HasFraction: true})
	if !ok || got != 0.42 {
		t.Fatalf("resolveProgress=%v ok=%v, want 0.42 true", got, ok)
	}
}

func TestResolveProgressClampsExplicitFraction(t *testing.T) {
	if got, _ := resolveProgress(engine.Progress{Fraction: 1.7, HasFraction: true}); got != 1 {
		t.Fatalf("fraction above range resolved to %v, want 1", got)
	}
	if got, _ := resolveProgress(engine.Progress{Fraction: -0.3, HasFraction: true}); got != 0 {
		t.Fatalf("fraction below range resolved to %v, want 0", got)
	}
}

func TestResolveProgressStepCounter(t *testing.T) {
	got, ok := resolveProgress(engine.Progress{Text: "loading shards [3/4]"})
	if !ok || got != 0.75 {
		t.Fatalf("resolveProgress=%v ok=%v, want 0.75 true", got, ok)
	}
}

func TestResolveProgressStepCounterNeverReachesOne(t *testing.T) {
	got, ok := resolveProgress(engine.Progress{Text: "[100/100]"})
	if !ok || got != 0.99 {
		t.Fatalf("complete step counter resolved to %v ok=%v, want 0.99 true", got, ok)
	}
}

func TestResolveProgressStepCounterZeroTotalIgnored(t *testing.T) {
	got, ok := resolveProgress(engine.Progress{Text: "[3/0]"})
	if ok {
		t.Fatalf("zero-total counter resolved to %v, want no signal", got)
	}
}

func TestResolveProgressDownloadKeywordFloorsLow(t *testing.T) {
	// "download" contains "load"; the fetch floor must win over the init floor.
	got, ok := resolveProgress(engine.Progress{Text: "Downloading model weights"})
	if !ok || got != fetchPhaseFloor {
		t.Fatalf("download phase resolved to %v ok=%v, want %v true", got, ok, fetchPhaseFloor)
	}
}

func TestResolveProgressFetchKeyword(t *testing.T) {
	got, ok := resolveProgress(engine.Progress{Text: "fetching artifact"})
	if !ok || got != fetchPhaseFloor {
		t.Fatalf("fetch phase resolved to %v ok=%v, want %v true", got, ok, fetchPhaseFloor)
	}
}

func TestResolveProgressInitKeywordsFloorHigh(t *testing.T) {
	for _, text := range []string{"Initializing engine", "loading model into memory", "warming up"} {
		got, ok := resolveProgress(engine.Progress{Text: text})
		if !ok || got != initPhaseFloor {
			t.Fatalf("%q resolved to %v ok=%v, want %v true", text, got, ok, initPhaseFloor)
		}
	}
}

func TestResolveProgressNoSignal(t *testing.T) {
	for _, text := range []string{"", "engine online", "compiling kernels"} {
		if got, ok := resolveProgress(engine.Progress{Text: text}); ok {
			t.Fatalf("%q resolved to %v, want no signal", text, got)
		}
	}
}

func TestResolveProgressStepCounterWithSpaces(t *testing.T) {
	got, ok := resolveProgress(engine.Progress{Text: "shard [2 / 8] done"})
	if !ok || got != 0.25 {
		t.Fatalf("resolveProgress=%v ok=%v, want 0.25 true", got, ok)
	}
}
