// Package schema defines the immutable record-type metadata that field
// selection and load planning operate on: nodes, their fields, and the
// relations between them.
package schema

// RelationKind represents the kind of relation between two nodes.
type RelationKind int

const (
	// RelationBelongsTo is a single-valued relation whose foreign key lives
	// on the owning node (e.g. Teacher belongs_to School via school_id).
	RelationBelongsTo RelationKind = iota
	// RelationHasOne is a single-valued relation whose foreign key lives on
	// the target node.
	RelationHasOne
	// RelationHasMany is a multi-valued relation keyed by the parent's
	// identity on the target node.
	RelationHasMany
)

// String returns the string representation of the relation kind.
func (k RelationKind) String() string {
	switch k {
	case RelationBelongsTo:
		return "belongs_to"
	case RelationHasOne:
		return "has_one"
	case RelationHasMany:
		return "has_many"
	default:
		return "unknown"
	}
}

// Cardinality classifies a relation as single-valued or multi-valued. Single
// relations can be fetched in the same retrieval as their parent; many
// relations require a separate batched retrieval keyed by parent identity.
type Cardinality int

const (
	CardinalitySingle Cardinality = iota
	CardinalityMany
)

// String returns the string representation of the cardinality.
func (c Cardinality) String() string {
	if c == CardinalityMany {
		return "many"
	}
	return "single"
}

// Cardinality returns the cardinality implied by the relation kind.
func (k RelationKind) Cardinality() Cardinality {
	if k == RelationHasMany {
		return CardinalityMany
	}
	return CardinalitySingle
}

// Relation declares that a field traverses to another node.
type Relation struct {
	Kind   RelationKind
	Target string // name of the target node in the registry

	// ForeignKey is the column holding the linking identifier. For
	// belongs_to it lives on the owning node, otherwise on the target.
	// Empty means the conventional default (target/owner name + "_id").
	ForeignKey string
}

// Field represents one declared field of a node.
type Field struct {
	Name string

	// Relation is non-nil when the field traverses to another node.
	Relation *Relation

	// WriteOnly fields are hidden from serialization by default. A caller
	// can still surface a write-only identifier field through the "_id"
	// request convention when its base relation exists.
	WriteOnly bool
}

// IsRelation reports whether the field traverses to another node.
func (f *Field) IsRelation() bool {
	return f.Relation != nil
}

// Node represents one record type's field layout. Nodes are defined once at
// process startup and are immutable and shared for the process lifetime.
type Node struct {
	Name      string
	TableName string
	Fields    map[string]*Field
}

// NewNode creates a node with an empty field set.
func NewNode(name, tableName string) *Node {
	return &Node{
		Name:      name,
		TableName: tableName,
		Fields:    make(map[string]*Field),
	}
}

// AddField declares a scalar field on the node and returns the node for
// chaining during startup wiring.
func (n *Node) AddField(name string) *Node {
	n.Fields[name] = &Field{Name: name}
	return n
}

// AddWriteOnlyField declares a write-only field (hidden from reads by
// default).
func (n *Node) AddWriteOnlyField(name string) *Node {
	n.Fields[name] = &Field{Name: name, WriteOnly: true}
	return n
}

// AddRelation declares a relation field on the node.
func (n *Node) AddRelation(name string, kind RelationKind, target string) *Node {
	n.Fields[name] = &Field{
		Name:     name,
		Relation: &Relation{Kind: kind, Target: target},
	}
	return n
}

// HasField returns true if the node declares a field with the given name.
func (n *Node) HasField(name string) bool {
	_, exists := n.Fields[name]
	return exists
}

// FieldNames returns the names of all declared fields, including write-only
// ones. Order is unspecified.
func (n *Node) FieldNames() []string {
	names := make([]string, 0, len(n.Fields))
	for name := range n.Fields {
		names = append(names, name)
	}
	return names
}
