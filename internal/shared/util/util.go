package util

import (
	"sort"
	"strings"
)

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// UniqueSorted collapses duplicates and returns the values in lexical order.
func UniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return SortedStringKeys(seen)
}

// LeadingWhitespace returns the run of spaces and tabs that prefixes line.
func LeadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// DottedPath converts a slash separated relative path into a dotted module path.
// The extension is dropped and a trailing "__init__" segment is removed.
func DottedPath(rel string) string {
	rel = strings.TrimSuffix(strings.ReplaceAll(rel, "\\", "/"), ".py")
	parts := make([]string, 0, strings.Count(rel, "/")+1)
	for _, part := range strings.Split(rel, "/") {
		if part == "" || part == "." {
			continue
		}
		parts = append(parts, part)
	}
	if n := len(parts); n > 0 && parts[n-1] == "__init__" {
		parts = parts[:n-1]
	}
	return strings.Join(parts, ".")
}
