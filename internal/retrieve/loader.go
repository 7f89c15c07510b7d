package retrieve

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/fieldlens/fieldlens/internal/fieldpath"
	"github.com/fieldlens/fieldlens/internal/plan"
	"github.com/fieldlens/fieldlens/internal/schema"
)

// List retrieves all root records of a node.
func (l *Loader) List(ctx context.Context, node *schema.Node) ([]Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s", pq.QuoteIdentifier(node.TableName))

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", node.Name, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// Get retrieves one root record by id.
func (l *Loader) Get(ctx context.Context, node *schema.Node, id interface{}) (Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", pq.QuoteIdentifier(node.TableName))

	rows, err := l.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", node.Name, err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s %v", ErrNotFound, node.Name, id)
	}
	return records[0], nil
}

// Apply eagerly materializes every path of the plan onto the given records.
// Select paths and prefetch paths are walked hop by hop; every hop is one
// batched query regardless of the number of parent records.
func (l *Loader) Apply(ctx context.Context, records []Record, node *schema.Node, p *plan.Plan) error {
	if len(records) == 0 || p == nil {
		return nil
	}

	for _, path := range p.Select {
		if err := l.loadPath(ctx, records, node, path); err != nil {
			return err
		}
	}
	for _, path := range p.Prefetch {
		if err := l.loadPath(ctx, records, node, path); err != nil {
			return err
		}
	}
	return nil
}

// loadPath walks one relation path from the root records, loading each hop
// that is not already attached and descending into the loaded children.
func (l *Loader) loadPath(ctx context.Context, records []Record, node *schema.Node, path fieldpath.Path) error {
	current := records
	currentNode := node

	for _, segment := range path {
		if len(current) == 0 {
			return nil
		}

		field, ok := currentNode.Fields[segment]
		if !ok || field.Relation == nil {
			// Unknown or scalar segments select nothing extra.
			return nil
		}
		target, ok := l.registry.Get(field.Relation.Target)
		if !ok {
			return nil
		}

		if err := l.loadHop(ctx, current, currentNode, segment, field.Relation, target); err != nil {
			return fmt.Errorf("failed to load relation %s.%s: %w", currentNode.Name, segment, err)
		}

		current = childRecords(current, segment)
		currentNode = target
	}
	return nil
}

// loadHop attaches one relation level onto the records that don't have it
// yet.
func (l *Loader) loadHop(
	ctx context.Context,
	records []Record,
	node *schema.Node,
	fieldName string,
	rel *schema.Relation,
	target *schema.Node,
) error {
	pending := make([]Record, 0, len(records))
	for _, record := range records {
		if _, loaded := record[fieldName]; !loaded {
			pending = append(pending, record)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	if rel.Kind == schema.RelationBelongsTo {
		return l.loadBelongsTo(ctx, pending, node, fieldName, rel, target)
	}
	return l.loadKeyedByParent(ctx, pending, node, fieldName, rel, target)
}

// childRecords collects the nested records attached under a relation field,
// deduplicated by id so shared children are walked once on the next hop.
func childRecords(records []Record, fieldName string) []Record {
	var children []Record
	seen := make(map[string]bool)

	appendChild := func(child Record) {
		if child == nil {
			return
		}
		if id, ok := child["id"]; ok && id != nil {
			key := idToString(id)
			if seen[key] {
				return
			}
			seen[key] = true
		}
		children = append(children, child)
	}

	for _, record := range records {
		switch value := record[fieldName].(type) {
		case Record:
			appendChild(value)
		case []Record:
			for _, child := range value {
				appendChild(child)
			}
		}
	}
	return children
}
