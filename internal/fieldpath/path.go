// Package fieldpath provides parsing and prefix matching for dotted field
// paths as they arrive in request parameters (e.g. "address__city,name").
package fieldpath

import (
	"strings"
	"sync"
)

// Separator is the reserved delimiter between path segments in raw input.
const Separator = "__"

// Path is an ordered sequence of field-name segments describing a traversal
// through nested schema nodes.
type Path []string

// parseCache memoizes Parse results. The same raw strings recur across many
// requests, and parsing is pure, so cached slices are shared. Callers must
// treat returned paths as read-only.
var parseCache sync.Map // string -> []Path

// Parse parses a comma-separated list of field paths into a slice of Paths.
// Empty input yields nil, not a slice containing one empty path. Malformed
// tokens (empty segments) are kept as literal empty-string segments; they
// surface as non-matches during filtering rather than as parse errors.
func Parse(raw string) []Path {
	if raw == "" {
		return nil
	}

	if cached, ok := parseCache.Load(raw); ok {
		return cached.([]Path)
	}

	tokens := strings.Split(raw, ",")
	paths := make([]Path, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		paths = append(paths, Path(strings.Split(token, Separator)))
	}

	parseCache.Store(raw, paths)
	return paths
}

// String joins the path segments with the reserved separator.
func (p Path) String() string {
	return strings.Join(p, Separator)
}

// SegmentAt returns the segment at the given depth, or false if the path is
// too short to have one.
func (p Path) SegmentAt(depth int) (string, bool) {
	if depth < 0 || depth >= len(p) {
		return "", false
	}
	return p[depth], true
}

// Child returns a new path with the given segment appended. The receiver is
// not modified.
func (p Path) Child(segment string) Path {
	child := make(Path, len(p)+1)
	copy(child, p)
	child[len(p)] = segment
	return child
}

// HasPrefix reports whether q is a segment-wise prefix of p. Every path is a
// prefix of itself, and the empty path is a prefix of every path.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	for i, segment := range q {
		if p[i] != segment {
			return false
		}
	}
	return true
}

// Matches reports whether p and q are related by the bidirectional prefix
// rule: one is a segment-wise prefix of the other. The relation is symmetric
// and reflexive.
func (p Path) Matches(q Path) bool {
	return p.HasPrefix(q) || q.HasPrefix(p)
}

// Join renders a slice of paths back into the comma-separated wire form.
// Useful for building cache keys that are stable across equivalent requests.
func Join(paths []Path) string {
	if len(paths) == 0 {
		return ""
	}
	parts := make([]string, len(paths))
	for i, p := range paths {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}
