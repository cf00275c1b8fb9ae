// Package normalize repairs free-text model output into the strict
// {classification, translation} display contract.
//
// Models under a JSON-output instruction still produce a spread of shapes:
// clean JSON, JSON wrapped in markdown fences with surrounding prose, JSON
// with a wrong or missing field, or no JSON at all. Normalize folds all of
// them into a displayable string and never fails.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Classification values the contract accepts.
const (
	ClassQuestion = "QUESTION"
	ClassAction   = "ACTION"
	ClassNosense  = "NOSENSE"
)

const (
	warnPrefix = "Warning: model returned JSON that does not match the expected format:\n"
	errPrefix  = "Error: model did not return valid JSON. Raw output:\n"
)

// fencedJSON matches the first ```json ... ``` block, tag case-insensitive,
// content spanning newlines.
var fencedJSON = regexp.MustCompile("(?is)```json\\s*(.+?)```")

// contract is the canonical output shape; field order is fixed by the struct.
type contract struct {
	Classification string `json:"classification"`
	Translation    string `json:"translation"`
}

// Normalize converts raw model output into a display string. The cascade is
// ordered and load-bearing: direct JSON parse, then fenced-block extraction,
// then shape validation; a conforming object renders as indented canonical
// JSON, a non-conforming JSON value renders pretty-printed behind a warning
// line, and anything unparseable comes back verbatim behind an error line.
// Normalize is total: every input, including the empty string, yields a
// non-empty result.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if v, ok := parseJSON(trimmed); ok {
		return render(v)
	}
	if m := fencedJSON.FindStringSubmatch(trimmed); m != nil {
		if v, ok := parseJSON(strings.TrimSpace(m[1])); ok {
			return render(v)
		}
	}
	return errPrefix + raw
}

func parseJSON(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

func render(v any) string {
	if obj, ok := v.(map[string]any); ok {
		cls, clsOK := obj["classification"].(string)
		tr, trOK := obj["translation"].(string)
		if clsOK && trOK && validClassification(cls) {
			return pretty(contract{Classification: cls, Translation: tr})
		}
	}
	return warnPrefix + pretty(v)
}

func validClassification(c string) bool {
	switch c {
	case ClassQuestion, ClassAction, ClassNosense:
		return true
	}
	return false
}

func pretty(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		// Values produced by json.Unmarshal always re-marshal; this branch
		// keeps the function total for hand-constructed inputs.
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}
