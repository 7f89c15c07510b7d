// Package plan computes relation load plans: which relation paths must be
// eagerly materialized before serialization, split into select paths (single
// valued, fetchable in one combined retrieval with the parent) and prefetch
// paths (multi-valued, requiring a separate batched retrieval keyed by parent
// identity).
package plan

import (
	"encoding/json"

	"github.com/fieldlens/fieldlens/internal/fieldpath"
)

// Plan describes the relation paths to eagerly materialize for one root node.
// Plans are shared read-only once computed; narrowing produces new values.
type Plan struct {
	Select   []fieldpath.Path
	Prefetch []fieldpath.Path
}

// planJSON is the wire form used for the narrowed-plan cache, with paths in
// their separator-joined notation.
type planJSON struct {
	Select   []string `json:"select"`
	Prefetch []string `json:"prefetch"`
}

// MarshalJSON encodes the plan with paths in separator-joined notation.
func (p *Plan) MarshalJSON() ([]byte, error) {
	out := planJSON{
		Select:   make([]string, len(p.Select)),
		Prefetch: make([]string, len(p.Prefetch)),
	}
	for i, path := range p.Select {
		out.Select[i] = path.String()
	}
	for i, path := range p.Prefetch {
		out.Prefetch[i] = path.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a plan from its wire form.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var in planJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.Select = decodePaths(in.Select)
	p.Prefetch = decodePaths(in.Prefetch)
	return nil
}

func decodePaths(raw []string) []fieldpath.Path {
	if len(raw) == 0 {
		return nil
	}
	paths := make([]fieldpath.Path, 0, len(raw))
	for _, s := range raw {
		parsed := fieldpath.Parse(s)
		if len(parsed) == 1 {
			paths = append(paths, parsed[0])
		}
	}
	return paths
}

// SelectStrings returns the select paths in separator-joined notation.
func (p *Plan) SelectStrings() []string {
	return pathStrings(p.Select)
}

// PrefetchStrings returns the prefetch paths in separator-joined notation.
func (p *Plan) PrefetchStrings() []string {
	return pathStrings(p.Prefetch)
}

func pathStrings(paths []fieldpath.Path) []string {
	out := make([]string, len(paths))
	for i, path := range paths {
		out[i] = path.String()
	}
	return out
}
