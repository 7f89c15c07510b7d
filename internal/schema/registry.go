package schema

import (
	"fmt"
	"sync"
)

// Registry manages all plannable nodes in the application. It is populated
// explicitly at startup by the host application; nodes never mutate or
// unregister afterwards.
type Registry struct {
	nodes map[string]*Node
	mu    sync.RWMutex
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[string]*Node),
	}
}

// Register registers a node. Registration fails for duplicate names and for
// nodes that lack the minimum metadata required for introspection.
func (r *Registry) Register(node *Node) error {
	if err := validateNode(node); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[node.Name]; exists {
		return fmt.Errorf("node %s is already registered", node.Name)
	}

	r.nodes[node.Name] = node
	return nil
}

// Get retrieves a node by name.
func (r *Registry) Get(name string) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.nodes[name]
	return node, exists
}

// All returns a copy of all registered nodes keyed by name.
func (r *Registry) All() map[string]*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Node, len(r.nodes))
	for name, node := range r.nodes {
		result[name] = node
	}
	return result
}

// List returns the names of all registered nodes.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.nodes))
	for name := range r.nodes {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered nodes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.nodes)
}

// Exists checks if a node with the given name is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.nodes[name]
	return exists
}

// ValidateAll checks that every declared relation resolves to a registered
// node. Unresolved targets are tolerated at planning time (the branch simply
// stops expanding), but a host application can call this at startup to catch
// typos early.
func (r *Registry) ValidateAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, node := range r.nodes {
		for _, field := range node.Fields {
			if field.Relation == nil {
				continue
			}
			if _, exists := r.nodes[field.Relation.Target]; !exists {
				return fmt.Errorf("node %s: relation %s references unknown node %s",
					name, field.Name, field.Relation.Target)
			}
		}
	}
	return nil
}

// validateNode checks the minimum metadata required for a node to
// participate in planning.
func validateNode(node *Node) error {
	if node == nil {
		return fmt.Errorf("%w: nil node", ErrNotPlannable)
	}
	if node.Name == "" {
		return fmt.Errorf("%w: node has no name", ErrNotPlannable)
	}
	if node.Fields == nil {
		return fmt.Errorf("%w: node %s has no field declarations", ErrNotPlannable, node.Name)
	}
	for name, field := range node.Fields {
		if field == nil {
			return fmt.Errorf("%w: node %s field %s is nil", ErrNotPlannable, node.Name, name)
		}
		if field.Relation != nil && field.Relation.Target == "" {
			return fmt.Errorf("%w: node %s relation %s has no target", ErrNotPlannable, node.Name, name)
		}
	}
	return nil
}
