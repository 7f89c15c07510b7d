// Package selector implements per-request dynamic field selection: deciding
// which of a node's fields are visible at a given tree depth and which
// reduced allow/omit paths propagate to each nested child node.
package selector

import (
	"errors"
	"strings"

	"github.com/fieldlens/fieldlens/internal/fieldpath"
	"github.com/fieldlens/fieldlens/internal/schema"
)

// ErrMutuallyExclusive is returned when a caller supplies both allow and
// omit paths for the same serialization scope.
var ErrMutuallyExclusive = errors.New("pass either allow or omit paths, not both")

// idSuffix marks a requested field as "the raw foreign-key id of relation X".
const idSuffix = "_id"

// Selector holds the allow/omit path state for one schema-tree position at
// one depth. Selectors are created per request, are immutable after
// construction, and propagate by constructing new values for children; a
// node never reaches up to a parent to discover its own filtering state.
type Selector struct {
	allow   []fieldpath.Path
	omit    []fieldpath.Path
	depth   int
	enabled bool
}

// New creates a root selector from the request's allow and omit paths.
// Supplying both is a caller error. Supplying neither yields a disabled
// selector that filters nothing.
func New(allow, omit []fieldpath.Path) (*Selector, error) {
	if len(allow) > 0 && len(omit) > 0 {
		return nil, ErrMutuallyExclusive
	}
	if len(allow) == 0 && len(omit) == 0 {
		return Disabled(), nil
	}
	return &Selector{allow: allow, omit: omit, enabled: true}, nil
}

// Disabled returns the no-op selector: full visibility, no filtering. It is
// also the sentinel a child inherits when its parent never requested
// filtering of it.
func Disabled() *Selector {
	return &Selector{}
}

// Enabled reports whether the selector applies any filtering.
func (s *Selector) Enabled() bool {
	return s.enabled
}

// Depth returns the tree depth this selector is scoped to.
func (s *Selector) Depth() int {
	return s.depth
}

// VisibleFields decides which of the node's fields are visible at this
// selector's depth. Write-only fields are hidden unless surfaced through the
// id-shadow convention. Order is irrelevant; membership is what matters.
func (s *Selector) VisibleFields(node *schema.Node) map[string]struct{} {
	existing := make(map[string]struct{}, len(node.Fields))
	for name, field := range node.Fields {
		if field.WriteOnly {
			continue
		}
		existing[name] = struct{}{}
	}

	if !s.enabled {
		return existing
	}

	allowSegments := s.allowSegmentsAtDepth()

	// No positive filter means "allow everything by default".
	visible := existing
	if len(allowSegments) > 0 {
		visible = make(map[string]struct{})
		for segment := range allowSegments {
			if _, ok := existing[segment]; ok {
				visible[segment] = struct{}{}
			}
		}
	}

	// An omission excludes a field only when it is terminal exactly at this
	// node; longer omit paths keep propagating instead.
	for _, path := range s.omit {
		if len(path) != s.depth+1 {
			continue
		}
		if segment := path[s.depth]; segment != "" {
			delete(visible, segment)
		}
	}

	// Id-shadow fields: a requested "<relation>_id" over a write-only field
	// whose base relation exists becomes visible, letting callers fetch the
	// relation's id without materializing the relation itself.
	for segment := range allowSegments {
		if !strings.HasSuffix(segment, idSuffix) {
			continue
		}
		field, ok := node.Fields[segment]
		if !ok || !field.WriteOnly {
			continue
		}
		base := strings.TrimSuffix(segment, idSuffix)
		if baseField, ok := node.Fields[base]; ok && baseField.IsRelation() {
			visible[segment] = struct{}{}
		}
	}

	return visible
}

// Children builds the reduced selector for every nested plannable child that
// still has path segments remaining beyond this depth. Paths pass through
// unchanged; only the depth counter advances. Children that cannot be
// resolved as plannable nodes are skipped silently. Fields absent from the
// result inherit the disabled sentinel.
func (s *Selector) Children(intro *schema.Introspector, node *schema.Node) map[string]*Selector {
	if !s.enabled {
		return nil
	}

	children := make(map[string]*Selector)

	attach := func(paths []fieldpath.Path, pick func(child *Selector) *[]fieldpath.Path) {
		for _, path := range paths {
			if len(path) <= s.depth+1 {
				continue
			}
			segment := path[s.depth]
			if segment == "" {
				continue
			}
			child, ok := children[segment]
			if !ok {
				if _, err := intro.ResolveChild(node, segment); err != nil {
					continue
				}
				child = &Selector{depth: s.depth + 1, enabled: true}
				children[segment] = child
			}
			*pick(child) = append(*pick(child), path)
		}
	}

	attach(s.allow, func(child *Selector) *[]fieldpath.Path { return &child.allow })
	attach(s.omit, func(child *Selector) *[]fieldpath.Path { return &child.omit })

	return children
}

// Child returns the propagated selector for one field, falling back to the
// disabled sentinel when the parent never requested filtering of it.
func (s *Selector) Child(intro *schema.Introspector, node *schema.Node, field string) *Selector {
	child, ok := s.Children(intro, node)[field]
	if !ok {
		return Disabled()
	}
	return child
}

// allowSegmentsAtDepth extracts the segment at this selector's depth from
// every allow path long enough to have one, dropping empties.
func (s *Selector) allowSegmentsAtDepth() map[string]struct{} {
	segments := make(map[string]struct{})
	for _, path := range s.allow {
		if segment, ok := path.SegmentAt(s.depth); ok && segment != "" {
			segments[segment] = struct{}{}
		}
	}
	return segments
}
