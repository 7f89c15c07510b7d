package retrieve

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/fieldlens/fieldlens/internal/schema"
)

// loadBelongsTo loads a single-valued relation whose foreign key lives on
// the parent records.
//   - Collect all unique foreign key ids from the parents
//   - Single query: SELECT * FROM targets WHERE id = ANY($1)
//   - Map targets back to parents
func (l *Loader) loadBelongsTo(
	ctx context.Context,
	records []Record,
	node *schema.Node,
	fieldName string,
	rel *schema.Relation,
	target *schema.Node,
) error {
	fk := foreignKey(node, fieldName, rel)

	var ids []interface{}
	seen := make(map[string]bool)
	for _, record := range records {
		id, ok := record[fk]
		if !ok || id == nil {
			continue
		}
		key := idToString(id)
		if !seen[key] {
			seen[key] = true
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		for _, record := range records {
			record[fieldName] = nil
		}
		return nil
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ANY($1)", pq.QuoteIdentifier(target.TableName))
	rows, err := l.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	results, err := scanRows(rows)
	if err != nil {
		return err
	}

	related := make(map[string]Record, len(results))
	for _, result := range results {
		related[idToString(result["id"])] = result
	}

	for _, record := range records {
		if id, ok := record[fk]; ok && id != nil {
			if child, ok := related[idToString(id)]; ok {
				record[fieldName] = child
				continue
			}
		}
		record[fieldName] = nil
	}
	return nil
}

// loadKeyedByParent loads has-one and has-many relations, whose foreign key
// lives on the target records.
//   - Collect all parent ids
//   - Single query: SELECT * FROM targets WHERE fk = ANY($1)
//   - Group targets by foreign key and attach to parents
func (l *Loader) loadKeyedByParent(
	ctx context.Context,
	records []Record,
	node *schema.Node,
	fieldName string,
	rel *schema.Relation,
	target *schema.Node,
) error {
	fk := foreignKey(node, fieldName, rel)
	many := rel.Kind.Cardinality() == schema.CardinalityMany

	var ids []interface{}
	seen := make(map[string]bool)
	for _, record := range records {
		id, ok := record["id"]
		if !ok || id == nil {
			continue
		}
		key := idToString(id)
		if !seen[key] {
			seen[key] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ANY($1)",
		pq.QuoteIdentifier(target.TableName), pq.QuoteIdentifier(fk))
	rows, err := l.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	results, err := scanRows(rows)
	if err != nil {
		return err
	}

	grouped := make(map[string][]Record)
	for _, result := range results {
		if parentID, ok := result[fk]; ok && parentID != nil {
			key := idToString(parentID)
			grouped[key] = append(grouped[key], result)
		}
	}

	for _, record := range records {
		id, ok := record["id"]
		if !ok || id == nil {
			continue
		}
		children := grouped[idToString(id)]
		if many {
			if children == nil {
				children = []Record{}
			}
			record[fieldName] = children
		} else if len(children) > 0 {
			record[fieldName] = children[0]
		} else {
			record[fieldName] = nil
		}
	}
	return nil
}

// scanRows scans SQL rows into records, converting []byte values to strings.
func scanRows(rows *sql.Rows) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []Record
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make(Record, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
