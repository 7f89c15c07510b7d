package schema

import "errors"

var (
	// ErrNotPlannable is returned when a node lacks the metadata required
	// for introspection. This is a configuration error: the node was wired
	// into the system without the required declarations.
	ErrNotPlannable = errors.New("node is not plannable")

	// ErrUnsupportedChild is returned when a field's target cannot be
	// resolved into a plannable node. Callers may recover by treating the
	// branch as "do not expand further".
	ErrUnsupportedChild = errors.New("unsupported child")
)
