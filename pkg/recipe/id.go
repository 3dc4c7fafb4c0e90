package recipe

import (
	"fmt"
	"strings"
)

// ID identifies a recipe on the platform, e.g. "r123456"
type ID string

func (id ID) String() string {
	return string(id)
}

// NormalizeID trims raw and ensures the "r" prefix ("123" becomes "r123").
// Empty values and values that cannot be used as a file name are rejected.
func NormalizeID(raw string) (ID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty recipe id")
	}
	if !strings.HasPrefix(s, "r") {
		s = "r" + s
	}
	if len(s) == 1 {
		return "", fmt.Errorf("invalid recipe id %q", raw)
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return "", fmt.Errorf("invalid recipe id %q", raw)
		}
	}
	return ID(s), nil
}

// NormalizeIDs normalizes every value, dropping duplicates and keeping the
// first occurrence. Rejected values are returned separately.
func NormalizeIDs(raw []string) (ids []ID, invalid []string) {
	seen := make(map[ID]bool, len(raw))
	for _, r := range raw {
		id, err := NormalizeID(r)
		if err != nil {
			invalid = append(invalid, r)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, invalid
}

// Dedupe returns ids without duplicates, keeping first occurrences in order
func Dedupe(ids []ID) []ID {
	seen := make(map[ID]bool, len(ids))
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
