package utils

import (
	"sort"
	"strings"
)

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TrimBaseURL strips trailing slashes so paths can be appended directly.
func TrimBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
