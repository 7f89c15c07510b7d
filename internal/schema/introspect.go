package schema

import (
	"fmt"
	"sync"
)

// RelationInfo describes one relation field resolved against the registry.
type RelationInfo struct {
	Field       *Field
	Cardinality Cardinality

	// Target is the resolved target node, or nil when the relation points
	// at a name that is not registered. Unresolved targets still contribute
	// their own path as a leaf during planning but are never expanded.
	Target *Node
}

// Introspector reports which of a node's fields are relations and resolves
// their target nodes. Results are memoized per node identity for the process
// lifetime; nodes don't change after startup, so no invalidation is needed.
type Introspector struct {
	registry *Registry
	cache    sync.Map // *Node -> map[string]RelationInfo
}

// NewIntrospector creates an introspector backed by the given registry.
func NewIntrospector(registry *Registry) *Introspector {
	return &Introspector{registry: registry}
}

// Registry returns the backing registry.
func (in *Introspector) Registry() *Registry {
	return in.registry
}

// RelationFields returns a mapping from field name to relation descriptor
// for every relation field declared on the node. A node lacking the minimum
// metadata fails fast with ErrNotPlannable.
func (in *Introspector) RelationFields(node *Node) (map[string]RelationInfo, error) {
	if err := validateNode(node); err != nil {
		return nil, err
	}

	if cached, ok := in.cache.Load(node); ok {
		return cached.(map[string]RelationInfo), nil
	}

	relations := make(map[string]RelationInfo)
	for name, field := range node.Fields {
		if field.Relation == nil {
			continue
		}
		target, _ := in.registry.Get(field.Relation.Target)
		relations[name] = RelationInfo{
			Field:       field,
			Cardinality: field.Relation.Kind.Cardinality(),
			Target:      target,
		}
	}

	// Concurrent first-writes may race here; both compute the same value,
	// so last-write-wins is harmless.
	in.cache.Store(node, relations)
	return relations, nil
}

// ResolveChild resolves the nested plannable node behind a relation field.
// Non-relation fields and relations to unregistered targets return
// ErrUnsupportedChild, a recoverable condition distinct from configuration
// errors.
func (in *Introspector) ResolveChild(node *Node, fieldName string) (RelationInfo, error) {
	relations, err := in.RelationFields(node)
	if err != nil {
		return RelationInfo{}, err
	}

	info, ok := relations[fieldName]
	if !ok {
		return RelationInfo{}, fmt.Errorf("%w: %s.%s is not a relation field", ErrUnsupportedChild, node.Name, fieldName)
	}
	if info.Target == nil {
		return RelationInfo{}, fmt.Errorf("%w: %s.%s targets unregistered node %s",
			ErrUnsupportedChild, node.Name, fieldName, info.Field.Relation.Target)
	}
	return info, nil
}
