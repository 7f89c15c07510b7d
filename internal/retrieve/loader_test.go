package retrieve

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldlens/fieldlens/internal/fieldpath"
	"github.com/fieldlens/fieldlens/internal/plan"
	"github.com/fieldlens/fieldlens/internal/schema"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func setupTestRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	registry := schema.NewRegistry()

	teacher := schema.NewNode("Teacher", "teachers").
		AddField("id").
		AddField("name").
		AddField("school_id").
		AddRelation("school", schema.RelationBelongsTo, "School")

	school := schema.NewNode("School", "schools").
		AddField("id").
		AddField("name").
		AddField("district_id").
		AddRelation("district", schema.RelationBelongsTo, "District").
		AddRelation("students", schema.RelationHasMany, "Student")

	district := schema.NewNode("District", "districts").
		AddField("id").
		AddField("name")

	student := schema.NewNode("Student", "students").
		AddField("id").
		AddField("name").
		AddField("school_id")

	for _, node := range []*schema.Node{teacher, school, district, student} {
		require.NoError(t, registry.Register(node))
	}
	return registry
}

func TestList(t *testing.T) {
	db, mock := setupTestDB(t)
	registry := setupTestRegistry(t)
	loader := NewLoader(db, registry)

	mock.ExpectQuery(`SELECT \* FROM "teachers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "school_id"}).
			AddRow("t-1", "Ada", "s-1").
			AddRow("t-2", "Grace", "s-1"))

	teacher, _ := registry.Get("Teacher")
	records, err := loader.List(context.Background(), teacher)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "Ada", records[0]["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	db, mock := setupTestDB(t)
	registry := setupTestRegistry(t)
	loader := NewLoader(db, registry)
	teacher, _ := registry.Get("Teacher")

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "teachers" WHERE id = \$1`).
			WithArgs("t-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("t-1", "Ada"))

		record, err := loader.Get(context.Background(), teacher, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "Ada", record["name"])
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "teachers" WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

		_, err := loader.Get(context.Background(), teacher, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestApplyBelongsTo(t *testing.T) {
	db, mock := setupTestDB(t)
	registry := setupTestRegistry(t)
	loader := NewLoader(db, registry)
	teacher, _ := registry.Get("Teacher")

	records := []Record{
		{"id": "t-1", "school_id": "s-1"},
		{"id": "t-2", "school_id": "s-2"},
		{"id": "t-3", "school_id": "s-1"}, // shared school
	}

	mock.ExpectQuery(`SELECT \* FROM "schools" WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("s-1", "Hilltop").
			AddRow("s-2", "Riverside"))

	p := &plan.Plan{Select: []fieldpath.Path{{"school"}}}
	err := loader.Apply(context.Background(), records, teacher, p)
	require.NoError(t, err)

	school1 := records[0]["school"].(Record)
	assert.Equal(t, "Hilltop", school1["name"])
	school2 := records[1]["school"].(Record)
	assert.Equal(t, "Riverside", school2["name"])

	// Shared parent resolves to the same record.
	assert.Equal(t, records[0]["school"], records[2]["school"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyHasMany(t *testing.T) {
	db, mock := setupTestDB(t)
	registry := setupTestRegistry(t)
	loader := NewLoader(db, registry)
	school, _ := registry.Get("School")

	records := []Record{
		{"id": "s-1"},
		{"id": "s-2"},
	}

	mock.ExpectQuery(`SELECT \* FROM "students" WHERE "school_id" = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "school_id"}).
			AddRow("st-1", "Sam", "s-1").
			AddRow("st-2", "Kim", "s-1"))

	p := &plan.Plan{Prefetch: []fieldpath.Path{{"students"}}}
	err := loader.Apply(context.Background(), records, school, p)
	require.NoError(t, err)

	students := records[0]["students"].([]Record)
	require.Len(t, students, 2)
	assert.Equal(t, "Sam", students[0]["name"])

	// A parent without children gets an empty slice, not nil.
	assert.Equal(t, []Record{}, records[1]["students"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySelectChain(t *testing.T) {
	db, mock := setupTestDB(t)
	registry := setupTestRegistry(t)
	loader := NewLoader(db, registry)
	teacher, _ := registry.Get("Teacher")

	records := []Record{{"id": "t-1", "school_id": "s-1"}}

	mock.ExpectQuery(`SELECT \* FROM "schools" WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "district_id"}).
			AddRow("s-1", "Hilltop", "d-1"))

	mock.ExpectQuery(`SELECT \* FROM "districts" WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("d-1", "North"))

	p := &plan.Plan{Select: []fieldpath.Path{{"school", "district"}}}
	err := loader.Apply(context.Background(), records, teacher, p)
	require.NoError(t, err)

	school := records[0]["school"].(Record)
	district := school["district"].(Record)
	assert.Equal(t, "North", district["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySkipsLoadedHops(t *testing.T) {
	db, mock := setupTestDB(t)
	registry := setupTestRegistry(t)
	loader := NewLoader(db, registry)
	teacher, _ := registry.Get("Teacher")

	records := []Record{{"id": "t-1", "school_id": "s-1"}}

	// select:[school] prefetch:[school__students] issues exactly two
	// queries: the school hop is reused by the prefetch path.
	mock.ExpectQuery(`SELECT \* FROM "schools" WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("s-1", "Hilltop"))

	mock.ExpectQuery(`SELECT \* FROM "students" WHERE "school_id" = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "school_id"}).
			AddRow("st-1", "Sam", "s-1"))

	p := &plan.Plan{
		Select:   []fieldpath.Path{{"school"}},
		Prefetch: []fieldpath.Path{{"school", "students"}},
	}
	err := loader.Apply(context.Background(), records, teacher, p)
	require.NoError(t, err)

	school := records[0]["school"].(Record)
	students := school["students"].([]Record)
	require.Len(t, students, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyUnknownSegmentIsNoOp(t *testing.T) {
	db, mock := setupTestDB(t)
	registry := setupTestRegistry(t)
	loader := NewLoader(db, registry)
	teacher, _ := registry.Get("Teacher")

	records := []Record{{"id": "t-1"}}

	p := &plan.Plan{Select: []fieldpath.Path{{"nonexistent"}}}
	err := loader.Apply(context.Background(), records, teacher, p)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMissingForeignKeys(t *testing.T) {
	db, mock := setupTestDB(t)
	registry := setupTestRegistry(t)
	loader := NewLoader(db, registry)
	teacher, _ := registry.Get("Teacher")

	records := []Record{{"id": "t-1", "school_id": nil}}

	p := &plan.Plan{Select: []fieldpath.Path{{"school"}}}
	err := loader.Apply(context.Background(), records, teacher, p)
	require.NoError(t, err)

	assert.Nil(t, records[0]["school"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
