package plan

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fieldlens/fieldlens/internal/fieldpath"
	"github.com/fieldlens/fieldlens/internal/schema"
)

// Planner walks schema trees and produces full load plans: the complete set
// of select and prefetch paths reachable from a root, assuming every field is
// potentially wanted. Full plans are cached per node identity for the process
// lifetime; the node set is finite and fixed at startup, so the cache is
// unbounded. Duplicate concurrent computation for the same node is tolerated.
type Planner struct {
	intro  *schema.Introspector
	logger *zap.Logger
	full   sync.Map // node name -> *Plan
}

// NewPlanner creates a planner over the given introspector. A nil logger
// disables logging.
func NewPlanner(intro *schema.Introspector, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{intro: intro, logger: logger}
}

// Introspector returns the backing introspector.
func (p *Planner) Introspector() *schema.Introspector {
	return p.intro
}

// Full returns the complete load plan for the given root node. A node that
// lacks the metadata required for planning fails with a configuration error
// at the first attempt.
func (p *Planner) Full(node *schema.Node) (*Plan, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", schema.ErrNotPlannable)
	}

	if cached, ok := p.full.Load(node.Name); ok {
		return cached.(*Plan), nil
	}

	selectPaths, prefetchPaths, err := p.evaluate(node, map[string]bool{})
	if err != nil {
		return nil, fmt.Errorf("planning %s: %w", node.Name, err)
	}

	plan := &Plan{Select: selectPaths, Prefetch: prefetchPaths}
	p.full.Store(node.Name, plan)
	return plan, nil
}

// Warm eagerly computes the full plan for every registered node. Hosts call
// this once at startup so the first request never pays the planning cost.
func (p *Planner) Warm() error {
	for name, node := range p.intro.Registry().All() {
		plan, err := p.Full(node)
		if err != nil {
			return fmt.Errorf("pre-warming plan for %s: %w", name, err)
		}
		p.logger.Debug("full plan ready",
			zap.String("node", name),
			zap.Strings("select", plan.SelectStrings()),
			zap.Strings("prefetch", plan.PrefetchStrings()),
		)
	}
	return nil
}

// evaluate computes the select/prefetch paths below one node, relative to
// that node. visited tracks the node names on the current walk path so that
// type-level cycles terminate as leaves instead of recursing forever.
func (p *Planner) evaluate(node *schema.Node, visited map[string]bool) ([]fieldpath.Path, []fieldpath.Path, error) {
	relations, err := p.intro.RelationFields(node)
	if err != nil {
		return nil, nil, err
	}

	visited[node.Name] = true
	defer delete(visited, node.Name)

	// Map iteration order is random; sort so the plan is deterministic.
	names := make([]string, 0, len(relations))
	for name := range relations {
		names = append(names, name)
	}
	sort.Strings(names)

	var selectPaths, prefetchPaths []fieldpath.Path

	for _, name := range names {
		info := relations[name]
		single := info.Cardinality == schema.CardinalitySingle
		own := fieldpath.Path{name}

		// Unresolved targets and type-level cycles contribute their own
		// path as a leaf but are never expanded.
		if info.Target == nil || visited[info.Target.Name] {
			if single {
				selectPaths = append(selectPaths, own)
			} else {
				prefetchPaths = append(prefetchPaths, own)
			}
			continue
		}

		subSelect, subPrefetch, err := p.evaluate(info.Target, visited)
		if err != nil {
			return nil, nil, err
		}

		// A chain of single-valued relations collapses into one combined
		// retrieval; a multi-valued hop forces everything beneath it into
		// batch-fetch territory.
		if len(subSelect) > 0 {
			if single {
				selectPaths = append(selectPaths, prefixPaths(name, subSelect)...)
			} else {
				prefetchPaths = append(prefetchPaths, prefixPaths(name, subSelect)...)
			}
		} else if single {
			selectPaths = append(selectPaths, own)
		}

		// Sub-prefetch paths always stay prefetch: a multi-valued
		// descendant remains a separate batched fetch regardless of the
		// current relation's cardinality.
		if len(subPrefetch) > 0 {
			prefetchPaths = append(prefetchPaths, prefixPaths(name, subPrefetch)...)
		} else if !single {
			prefetchPaths = append(prefetchPaths, own)
		}
	}

	return selectPaths, prefetchPaths, nil
}

// prefixPaths prepends segment to each path, producing new values.
func prefixPaths(segment string, paths []fieldpath.Path) []fieldpath.Path {
	out := make([]fieldpath.Path, len(paths))
	for i, path := range paths {
		prefixed := make(fieldpath.Path, 0, len(path)+1)
		prefixed = append(prefixed, segment)
		prefixed = append(prefixed, path...)
		out[i] = prefixed
	}
	return out
}
