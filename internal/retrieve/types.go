// Package retrieve executes narrowed load plans against a SQL database:
// root record retrieval plus batched eager materialization of the plan's
// select and prefetch paths.
package retrieve

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fieldlens/fieldlens/internal/schema"
)

// Record is one retrieved row; relation values are attached as nested
// Records (single-valued) or []Record (multi-valued).
type Record = map[string]interface{}

// Querier is an interface for executing SQL queries, allowing for testing
// and instrumentation.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Loader retrieves records and eagerly materializes relation paths with
// batched queries, preventing N+1 retrieval.
type Loader struct {
	db       Querier
	registry *schema.Registry
}

// NewLoader creates a loader over the given database and schema registry.
func NewLoader(db Querier, registry *schema.Registry) *Loader {
	return &Loader{db: db, registry: registry}
}

// ErrNotFound is returned when a requested root record does not exist.
var ErrNotFound = errors.New("record not found")

// foreignKey returns the linking column for a relation, applying the
// conventional default when none was declared.
func foreignKey(parent *schema.Node, fieldName string, rel *schema.Relation) string {
	if rel.ForeignKey != "" {
		return rel.ForeignKey
	}
	if rel.Kind == schema.RelationBelongsTo {
		return fieldName + "_id"
	}
	return toSnakeCase(parent.Name) + "_id"
}

// idToString normalizes identifier values for use as map keys.
func idToString(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toSnakeCase converts a node name to its snake_case column prefix.
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			if prev >= 'a' && prev <= 'z' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}
