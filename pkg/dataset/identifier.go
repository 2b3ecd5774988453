package dataset

import (
	"strconv"
	"strings"
)

// EmptyHeader names a column whose header cell is blank.
const EmptyHeader = "__EMPTY"

// SanitizeIdentifier replaces every character outside [A-Za-z0-9_] with '_'.
func SanitizeIdentifier(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// IsIdentifier reports whether name only uses [A-Za-z0-9_] and is non-empty.
func IsIdentifier(name string) bool {
	return name != "" && SanitizeIdentifier(name) == name
}

// NormalizeHeaders turns a raw header row into unique, sanitized column names.
// Blank headers become __EMPTY and repeats get _1, _2... suffixes.
func NormalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if h == "" {
			h = EmptyHeader
		}
		name := SanitizeIdentifier(h)
		candidate := name
		for n := 1; seen[candidate]; n++ {
			candidate = name + "_" + strconv.Itoa(n)
		}
		seen[candidate] = true
		out[i] = candidate
	}
	return out
}
