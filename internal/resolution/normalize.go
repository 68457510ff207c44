package resolution

import "strings"

// Normalize canonicalizes a candidate value for comparison: strings are
// whitespace-trimmed and case-folded to lowercase, everything else passes
// through unchanged. Normalize is idempotent and must be applied both when
// tallying candidates and when comparing against the current value, so that
// "Der Spiegel", "DER SPIEGEL" and " der spiegel " count as one value.
func Normalize(value any) any {
	if s, ok := value.(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return value
}

// IsEmpty reports whether a value counts as absent: nil, or a string that is
// empty after trimming.
func IsEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
