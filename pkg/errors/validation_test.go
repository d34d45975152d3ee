package errors

import (
	"math"
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	valid := []string{
		"doc/api-reference",
		"readme.md",
		"guide_v2",
		"a1b",
		"docs/nested/deeply/page-1",
	}
	for _, id := range valid {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) unexpected error: %v", id, err)
		}
	}

	invalid := []struct {
		id     string
		reason string
	}{
		{"", "empty"},
		{"ab", "too short"},
		{strings.Repeat("a", 257), "too long"},
		{"../etc/passwd", "path traversal"},
		{"docs/../secret", "embedded traversal"},
		{"/absolute/path", "leading slash"},
		{"docs//double", "double slash"},
		{"docs\\windows", "backslash"},
		{"javascript:alert(1)", "javascript scheme"},
		{"JAVASCRIPT:alert(1)", "uppercase scheme"},
		{"file:local", "file scheme"},
		{"data:text/html", "data scheme"},
		{"vbscript:run", "vbscript scheme"},
		{"doc\x00id", "null byte"},
		{"doc\nid", "control char"},
		{"doc id", "space"},
		{"doc<script>", "angle brackets"},
		{".hidden", "leading dot"},
	}
	for _, tc := range invalid {
		err := ValidateID(tc.id)
		if err == nil {
			t.Errorf("ValidateID(%q) should fail (%s)", tc.id, tc.reason)
			continue
		}
		if !Is(err, ErrCodeInvalidID) {
			t.Errorf("ValidateID(%q) wrong code: %v", tc.id, err)
		}
	}
}

func TestValidateStrength(t *testing.T) {
	for _, x := range []float64{0.0, 0.5, 1.0} {
		if err := ValidateStrength(x); err != nil {
			t.Errorf("ValidateStrength(%v) unexpected error: %v", x, err)
		}
	}
	for _, x := range []float64{-0.1, 1.1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := ValidateStrength(x)
		if err == nil {
			t.Errorf("ValidateStrength(%v) should fail", x)
			continue
		}
		if !Is(err, ErrCodeOutOfRangeStrength) {
			t.Errorf("ValidateStrength(%v) wrong code: %v", x, err)
		}
	}
}

func TestSanitizeMetadataDropsHandlerKeys(t *testing.T) {
	meta := map[string]any{
		"title":   "API Guide",
		"onclick": "alert(1)",
		"onload":  "evil()",
		"once":    "still dropped",
		"on_call": "kept, underscore breaks the handler shape",
		"ontology": map[string]any{
			"kind": "kept? no - ontology is on+alpha",
		},
	}
	out, err := SanitizeMetadata(meta, 0, 0)
	if err != nil {
		t.Fatalf("SanitizeMetadata error: %v", err)
	}
	if _, ok := out["onclick"]; ok {
		t.Error("onclick key should be dropped")
	}
	if _, ok := out["onload"]; ok {
		t.Error("onload key should be dropped")
	}
	if _, ok := out["once"]; ok {
		t.Error("once key should be dropped (handler-shaped)")
	}
	if _, ok := out["ontology"]; ok {
		t.Error("ontology key should be dropped (handler-shaped)")
	}
	if _, ok := out["on_call"]; !ok {
		t.Error("on_call key should be kept")
	}
	if out["title"] != "API Guide" {
		t.Errorf("title unexpected: %v", out["title"])
	}
}

func TestSanitizeMetadataEscapesMarkup(t *testing.T) {
	meta := map[string]any{
		"summary": "<script>alert(1)</script>",
		"plain":   "no markup here",
		"nested": map[string]any{
			"items": []any{"<b>bold</b>", 42, true},
		},
	}
	out, err := SanitizeMetadata(meta, 0, 0)
	if err != nil {
		t.Fatalf("SanitizeMetadata error: %v", err)
	}
	if s := out["summary"].(string); strings.Contains(s, "<script") {
		t.Errorf("script content should be escaped: %s", s)
	}
	if out["plain"] != "no markup here" {
		t.Errorf("plain strings must pass through unchanged: %v", out["plain"])
	}
	nested := out["nested"].(map[string]any)
	items := nested["items"].([]any)
	if s := items[0].(string); strings.Contains(s, "<b>") {
		t.Errorf("nested markup should be escaped: %s", s)
	}
	if items[1] != 42 || items[2] != true {
		t.Error("non-string values must pass through unchanged")
	}
}

func TestSanitizeMetadataSizeCeiling(t *testing.T) {
	meta := map[string]any{
		"blob": strings.Repeat("x", 2048),
	}
	if _, err := SanitizeMetadata(meta, 1024, 0); !Is(err, ErrCodeOversizedMetadata) {
		t.Errorf("expected OVERSIZED_METADATA, got %v", err)
	}
	if _, err := SanitizeMetadata(meta, 4096, 0); err != nil {
		t.Errorf("metadata under the ceiling should pass: %v", err)
	}
}

func TestSanitizeMetadataNestingCeiling(t *testing.T) {
	// Build a map nested deeper than the ceiling.
	leaf := map[string]any{"v": 1}
	cur := leaf
	for i := 0; i < 12; i++ {
		cur = map[string]any{"next": cur}
	}
	if _, err := SanitizeMetadata(cur, 0, 0); !Is(err, ErrCodeOversizedMetadata) {
		t.Errorf("expected OVERSIZED_METADATA for deep nesting, got %v", err)
	}
}

func TestSanitizeMetadataNil(t *testing.T) {
	out, err := SanitizeMetadata(nil, 0, 0)
	if err != nil {
		t.Fatalf("SanitizeMetadata(nil) error: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Error("nil metadata should sanitize to an empty map")
	}
}

func TestSanitizeMetadataDoesNotMutateInput(t *testing.T) {
	meta := map[string]any{"summary": "<i>x</i>", "onclick": "evil"}
	if _, err := SanitizeMetadata(meta, 0, 0); err != nil {
		t.Fatalf("SanitizeMetadata error: %v", err)
	}
	if meta["summary"] != "<i>x</i>" {
		t.Error("input map value was mutated")
	}
	if _, ok := meta["onclick"]; !ok {
		t.Error("input map key was removed")
	}
}
