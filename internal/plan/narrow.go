package plan

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldlens/fieldlens/internal/fieldpath"
	"github.com/fieldlens/fieldlens/internal/plancache"
	"github.com/fieldlens/fieldlens/internal/schema"
)

// Narrower reduces a full load plan to only what a specific request's field
// selection needs. Narrowed plans are derived values memoized in a bounded
// cache keyed by (node, allow paths, omit paths); the cache is advisory and
// cache failures never fail a request.
type Narrower struct {
	planner *Planner
	cache   plancache.Cache
	logger  *zap.Logger
}

// NewNarrower creates a narrower over the given planner. A nil cache falls
// back to an in-process LRU with default capacity; a nil logger disables
// logging.
func NewNarrower(planner *Planner, cache plancache.Cache, logger *zap.Logger) *Narrower {
	if cache == nil {
		cache = plancache.NewMemory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Narrower{planner: planner, cache: cache, logger: logger}
}

// Introspector exposes the schema introspector the underlying planner walks.
func (n *Narrower) Introspector() *schema.Introspector {
	return n.planner.Introspector()
}

// Narrow computes the load paths actually needed for a request that selects
// the given allow/omit paths. With both lists empty the full plan is returned
// unchanged. Unknown field paths silently match nothing.
func (n *Narrower) Narrow(ctx context.Context, node *schema.Node, allow, omit []fieldpath.Path) (*Plan, error) {
	full, err := n.planner.Full(node)
	if err != nil {
		return nil, err
	}

	if len(allow) == 0 && len(omit) == 0 {
		return full, nil
	}

	key := narrowKey(node.Name, allow, omit)
	if data, err := n.cache.Get(ctx, key); err == nil {
		var cached Plan
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	} else if !plancache.IsCacheMiss(err) {
		n.logger.Warn("narrowed plan cache read failed", zap.String("key", key), zap.Error(err))
	}

	narrowed := narrowPlan(full, allow, omit)

	if data, err := json.Marshal(narrowed); err == nil {
		if err := n.cache.Set(ctx, key, data, 0); err != nil {
			n.logger.Warn("narrowed plan cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return narrowed, nil
}

// narrowPlan is the pure narrowing step. Result lists preserve the relative
// order of the full plan's lists.
func narrowPlan(full *Plan, allow, omit []fieldpath.Path) *Plan {
	selectPaths := full.Select
	prefetchPaths := full.Prefetch

	if len(allow) > 0 {
		selectPaths = keepMatching(selectPaths, allow)
		prefetchPaths = keepMatching(prefetchPaths, allow)
	}
	if len(omit) > 0 {
		selectPaths = dropMatching(selectPaths, omit)
		prefetchPaths = dropMatching(prefetchPaths, omit)
	}

	return &Plan{Select: selectPaths, Prefetch: prefetchPaths}
}

// keepMatching keeps plan paths related to at least one requested path by the
// bidirectional prefix rule.
func keepMatching(paths, requested []fieldpath.Path) []fieldpath.Path {
	var kept []fieldpath.Path
	for _, p := range paths {
		for _, r := range requested {
			if p.Matches(r) {
				kept = append(kept, p)
				break
			}
		}
	}
	return kept
}

// dropMatching removes plan paths related to any omitted path by the
// bidirectional prefix rule.
func dropMatching(paths, omitted []fieldpath.Path) []fieldpath.Path {
	var kept []fieldpath.Path
	for _, p := range paths {
		matched := false
		for _, o := range omitted {
			if p.Matches(o) {
				matched = true
				break
			}
		}
		if !matched {
			kept = append(kept, p)
		}
	}
	return kept
}

// narrowKey builds a stable cache key from the narrowing inputs.
func narrowKey(nodeName string, allow, omit []fieldpath.Path) string {
	var b strings.Builder
	b.WriteString("narrow:")
	b.WriteString(nodeName)
	b.WriteString("|")
	b.WriteString(fieldpath.Join(allow))
	b.WriteString("|")
	b.WriteString(fieldpath.Join(omit))
	return b.String()
}
