package errors

import (
	"encoding/json"
	"html"
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Validation ceilings. Callers can enforce tighter limits via SanitizeMetadata
// parameters; these are the hard bounds the validators never relax.
const (
	// MinIDLength is the minimum length of a document id.
	MinIDLength = 3

	// MaxIDLength is the maximum length of a document id.
	MaxIDLength = 256

	// DefaultMaxMetadataBytes is the serialized-size ceiling for metadata maps.
	DefaultMaxMetadataBytes = 64 * 1024

	// DefaultMaxMetadataNesting is the maximum nesting depth for metadata maps.
	DefaultMaxMetadataNesting = 8
)

// idCharsetRegex matches permitted document ids: a letter or digit followed
// by letters, digits, dots, underscores, hyphens, and slash-separated segments.
var idCharsetRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)

// deniedSchemes are URI schemes that must never appear at the start of an id.
// Matching is case-insensitive.
var deniedSchemes = []string{
	"javascript:",
	"vbscript:",
	"file:",
	"data:",
}

// ValidateID validates a document id for safety and correctness.
// It rejects ids that could be used for path traversal or injection attacks.
//
// The validation rules are intentionally conservative:
//   - Length between 3 and 256 characters
//   - No control characters or null bytes
//   - No path traversal sequences (.., //, leading /)
//   - No backslashes (Windows path injection)
//   - No protocol schemes (javascript:, file:, data:, vbscript:)
//   - Restricted charset (letters, digits, . _ - and / as separator)
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "document id cannot be empty")
	}
	if len(id) < MinIDLength {
		return New(ErrCodeInvalidID, "document id too short (min %d characters)", MinIDLength)
	}
	if len(id) > MaxIDLength {
		return New(ErrCodeInvalidID, "document id too long (max %d characters)", MaxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidID, "document id contains control characters")
		}
	}

	lower := strings.ToLower(id)
	for _, scheme := range deniedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return New(ErrCodeInvalidID, "document id cannot start with scheme %q", scheme)
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidID, "document id contains invalid sequence: %q", pattern)
		}
	}

	if strings.HasPrefix(id, "/") {
		return New(ErrCodeInvalidID, "document id cannot start with /")
	}

	if !idCharsetRegex.MatchString(id) {
		return New(ErrCodeInvalidID, "document id contains characters outside the permitted set: %q", id)
	}

	return nil
}

// ValidateStrength validates a relationship strength value.
// Strength must be a finite number in [0.0, 1.0].
func ValidateStrength(x float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return New(ErrCodeOutOfRangeStrength, "strength must be a finite number")
	}
	if x < 0.0 || x > 1.0 {
		return New(ErrCodeOutOfRangeStrength, "strength %v outside [0.0, 1.0]", x)
	}
	return nil
}

// SanitizeMetadata returns a sanitized copy of a metadata map.
//
// Sanitization is recursive over nested maps and slices:
//   - Keys resembling event handlers (on*) are dropped
//   - Keys containing angle brackets or control characters are dropped
//   - String values containing angle brackets are HTML-escaped
//   - Nesting beyond maxNesting levels is rejected
//   - The sanitized map's serialized size must not exceed maxBytes
//
// Pass 0 for maxBytes or maxNesting to use the package defaults. The input
// map is never modified; no mutation occurs if an error is returned.
func SanitizeMetadata(meta map[string]any, maxBytes, maxNesting int) (map[string]any, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMetadataBytes
	}
	if maxNesting <= 0 {
		maxNesting = DefaultMaxMetadataNesting
	}
	if meta == nil {
		return map[string]any{}, nil
	}

	sanitized, err := sanitizeMap(meta, maxNesting)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(sanitized)
	if err != nil {
		return nil, Wrap(ErrCodeOversizedMetadata, err, "metadata is not serializable")
	}
	if len(encoded) > maxBytes {
		return nil, New(ErrCodeOversizedMetadata, "metadata serializes to %d bytes (max %d)", len(encoded), maxBytes)
	}
	return sanitized, nil
}

func sanitizeMap(m map[string]any, depth int) (map[string]any, error) {
	if depth <= 0 {
		return nil, New(ErrCodeOversizedMetadata, "metadata nesting too deep")
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if !safeKey(k) {
			continue
		}
		sv, err := sanitizeValue(v, depth-1)
		if err != nil {
			return nil, err
		}
		out[k] = sv
	}
	return out, nil
}

func sanitizeValue(v any, depth int) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		return sanitizeMap(val, depth)
	case []any:
		if depth <= 0 {
			return nil, New(ErrCodeOversizedMetadata, "metadata nesting too deep")
		}
		out := make([]any, 0, len(val))
		for _, item := range val {
			sv, err := sanitizeValue(item, depth-1)
			if err != nil {
				return nil, err
			}
			out = append(out, sv)
		}
		return out, nil
	case string:
		return sanitizeString(val), nil
	default:
		return val, nil
	}
}

// safeKey reports whether a metadata key is free of script-injection shapes.
// Event-handler-like keys (onclick, onload, ...) are the main target.
func safeKey(k string) bool {
	if k == "" {
		return false
	}
	lower := strings.ToLower(k)
	if strings.HasPrefix(lower, "on") && len(lower) > 2 {
		rest := lower[2:]
		alpha := true
		for _, r := range rest {
			if r < 'a' || r > 'z' {
				alpha = false
				break
			}
		}
		if alpha {
			return false
		}
	}
	if strings.ContainsAny(k, "<>") {
		return false
	}
	for _, r := range k {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// sanitizeString neutralizes markup-bearing strings. Values without angle
// brackets pass through unchanged so ordinary text keeps its identity.
func sanitizeString(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	return html.EscapeString(s)
}
