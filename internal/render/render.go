// Package render walks retrieved records and emits exactly the fields a
// request's selector makes visible, recursing into relation values with the
// propagated child selectors.
package render

import (
	"github.com/fieldlens/fieldlens/internal/schema"
	"github.com/fieldlens/fieldlens/internal/selector"
)

// Record is one retrieved row with relation values attached: a nested map
// for single-valued relations, a slice of maps for multi-valued ones.
type Record = map[string]interface{}

// Renderer filters records down to their visible field sets.
type Renderer struct {
	intro *schema.Introspector
}

// NewRenderer creates a renderer backed by the given introspector.
func NewRenderer(intro *schema.Introspector) *Renderer {
	return &Renderer{intro: intro}
}

// Render produces the output map for one record of the given node under the
// given selector.
func (r *Renderer) Render(node *schema.Node, record Record, sel *selector.Selector) Record {
	if record == nil {
		return nil
	}

	visible := sel.VisibleFields(node)
	children := sel.Children(r.intro, node)

	out := make(Record, len(visible))
	for name := range visible {
		value, ok := record[name]
		if !ok {
			continue
		}

		field := node.Fields[name]
		if field == nil || !field.IsRelation() {
			out[name] = value
			continue
		}

		childSel, ok := children[name]
		if !ok {
			childSel = selector.Disabled()
		}

		info, err := r.intro.ResolveChild(node, name)
		if err != nil {
			// Unresolvable children were never expanded by planning; emit
			// the raw value untouched.
			out[name] = value
			continue
		}

		switch nested := value.(type) {
		case Record:
			out[name] = r.Render(info.Target, nested, childSel)
		case []Record:
			out[name] = r.RenderList(info.Target, nested, childSel)
		case []interface{}:
			rendered := make([]interface{}, 0, len(nested))
			for _, item := range nested {
				if rec, ok := item.(Record); ok {
					rendered = append(rendered, r.Render(info.Target, rec, childSel))
				} else {
					rendered = append(rendered, item)
				}
			}
			out[name] = rendered
		default:
			out[name] = value
		}
	}

	return out
}

// RenderList renders a slice of records of the same node.
func (r *Renderer) RenderList(node *schema.Node, records []Record, sel *selector.Selector) []Record {
	out := make([]Record, len(records))
	for i, record := range records {
		out[i] = r.Render(node, record, sel)
	}
	return out
}
