package normalize

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNormalizeDirectJSON(t *testing.T) {
	raw, err := json.Marshal(map[string]string{"classification": "QUESTION", "translation": "hi"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := Normalize(string(raw))
	want := "{\n  \"classification\": \"QUESTION\",\n  \"translation\": \"hi\"\n}"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestNormalizeFencedBlock(t *testing.T) {
	raw := "Sure! Here is the result:\n```json\n{\"classification\": \"ACTION\", \"translation\": \"open the door\"}\n```\nLet me know if you need anything else."
	got := Normalize(raw)
	if strings.HasPrefix(got, warnPrefix) || strings.HasPrefix(got, errPrefix) {
		t.Fatalf("expected clean render, got %q", got)
	}
	if !strings.Contains(got, "\"classification\": \"ACTION\"") {
		t.Fatalf("missing classification in %q", got)
	}
	if !strings.Contains(got, "\"translation\": \"open the door\"") {
		t.Fatalf("missing translation in %q", got)
	}
}

func TestNormalizeFencedBlockUppercaseTag(t *testing.T) {
	raw := "```JSON\n{\"classification\":\"NOSENSE\",\"translation\":\"???\"}\n```"
	got := Normalize(raw)
	if !strings.Contains(got, "\"classification\": \"NOSENSE\"") {
		t.Fatalf("uppercase fence tag not handled: %q", got)
	}
}

func TestNormalizeWrongShape(t *testing.T) {
	got := Normalize(`{"classification": "QUESTION"}`)
	if !strings.HasPrefix(got, warnPrefix) {
		t.Fatalf("expected warning prefix, got %q", got)
	}
	if !strings.Contains(got, "\"classification\": \"QUESTION\"") {
		t.Fatalf("warning should carry the produced JSON, got %q", got)
	}
}

func TestNormalizeUnknownClassification(t *testing.T) {
	got := Normalize(`{"classification": "MAYBE", "translation": "hi"}`)
	if !strings.HasPrefix(got, warnPrefix) {
		t.Fatalf("unknown classification must not validate, got %q", got)
	}
}

func TestNormalizeNonObjectJSON(t *testing.T) {
	got := Normalize(`[1, 2, 3]`)
	if !strings.HasPrefix(got, warnPrefix) {
		t.Fatalf("expected warning prefix for array, got %q", got)
	}
}

func TestNormalizePlainText(t *testing.T) {
	got := Normalize("I cannot answer that.")
	if !strings.HasPrefix(got, errPrefix) {
		t.Fatalf("expected error prefix, got %q", got)
	}
	if !strings.Contains(got, "I cannot answer that.") {
		t.Fatalf("raw text must survive verbatim, got %q", got)
	}
}

func TestNormalizeMalformedJSON(t *testing.T) {
	got := Normalize(`{"classification": "QUESTION", "translation": `)
	if !strings.HasPrefix(got, errPrefix) {
		t.Fatalf("expected error prefix, got %q", got)
	}
}

func TestNormalizeMalformedFencedBlock(t *testing.T) {
	got := Normalize("```json\n{not json}\n```")
	if !strings.HasPrefix(got, errPrefix) {
		t.Fatalf("unparseable fenced content falls through to error, got %q", got)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	got := Normalize("")
	if got == "" {
		t.Fatal("result must be non-empty for empty input")
	}
	if !strings.HasPrefix(got, errPrefix) {
		t.Fatalf("expected error prefix, got %q", got)
	}
}

func TestNormalizeExtraFieldsStillCanonical(t *testing.T) {
	got := Normalize(`{"classification":"QUESTION","translation":"hi","confidence":0.9}`)
	want := "{\n  \"classification\": \"QUESTION\",\n  \"translation\": \"hi\"\n}"
	if got != want {
		t.Fatalf("extra fields should be dropped from canonical output, got %q", got)
	}
}

func TestNormalizeNeverPanics(t *testing.T) {
	inputs := []string{
		"", " ", "null", "true", "42", "\"just a string\"",
		"{}", "[]", "```json```", "```json\n```", "{\"a\":", "\x00\xff",
		strings.Repeat("{", 1000),
	}
	for _, in := range inputs {
		if got := Normalize(in); got == "" {
			t.Fatalf("empty result for input %q", in)
		}
	}
}
