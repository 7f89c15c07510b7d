package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldlens/fieldlens/internal/plan"
	"github.com/fieldlens/fieldlens/internal/retrieve"
	"github.com/fieldlens/fieldlens/internal/schema"
)

func setupTestServer(t *testing.T) (*chi.Mux, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry := schema.NewRegistry()
	teacher := schema.NewNode("Teacher", "teachers").
		AddField("id").
		AddField("name").
		AddField("school_id").
		AddRelation("school", schema.RelationBelongsTo, "School")
	school := schema.NewNode("School", "schools").
		AddField("id").
		AddField("name")
	require.NoError(t, registry.Register(teacher))
	require.NoError(t, registry.Register(school))

	intro := schema.NewIntrospector(registry)
	narrower := plan.NewNarrower(plan.NewPlanner(intro, nil), nil, nil)
	loader := retrieve.NewLoader(db, registry)

	router := chi.NewRouter()
	NewResources(registry, narrower, loader, nil).Mount(router)
	return router, mock
}

func doRequest(router *chi.Mux, method, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, url, nil))
	return w
}

func TestListUnknownResource(t *testing.T) {
	router, _ := setupTestServer(t)
	w := doRequest(router, "GET", "/widgets")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRejectsFieldsWithOmit(t *testing.T) {
	router, _ := setupTestServer(t)
	w := doRequest(router, "GET", "/teachers?fields=name&omit=id")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "mutually exclusive")
}

func TestListWithRelations(t *testing.T) {
	router, mock := setupTestServer(t)

	mock.ExpectQuery(`SELECT \* FROM "teachers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "school_id"}).
			AddRow("t-1", "Ada", "s-1"))
	mock.ExpectQuery(`SELECT \* FROM "schools" WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("s-1", "Hilltop"))

	w := doRequest(router, "GET", "/teachers")
	require.Equal(t, http.StatusOK, w.Code)

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "Ada", body[0]["name"])

	school, ok := body[0]["school"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Hilltop", school["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFieldsNarrowsPlanAndResponse(t *testing.T) {
	router, mock := setupTestServer(t)

	// fields=name matches nothing in the load plan, so only the root
	// query runs and the response carries only the name field.
	mock.ExpectQuery(`SELECT \* FROM "teachers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "school_id"}).
			AddRow("t-1", "Ada", "s-1"))

	w := doRequest(router, "GET", "/teachers?fields=name")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"name":"Ada"}]`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecord(t *testing.T) {
	router, mock := setupTestServer(t)

	mock.ExpectQuery(`SELECT \* FROM "teachers" WHERE id = \$1`).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "school_id"}).
			AddRow("t-1", "Ada", "s-1"))
	mock.ExpectQuery(`SELECT \* FROM "schools" WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("s-1", "Hilltop"))

	// omit=name is terminal at the root only; the school relation still
	// loads and renders in full.
	w := doRequest(router, "GET", "/teachers/t-1?omit=name")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body, "name")
	assert.Equal(t, "t-1", body["id"])

	school, ok := body["school"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Hilltop", school["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecordNotFound(t *testing.T) {
	router, mock := setupTestServer(t)

	mock.ExpectQuery(`SELECT \* FROM "teachers" WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	w := doRequest(router, "GET", "/teachers/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveNodeByName(t *testing.T) {
	router, mock := setupTestServer(t)

	mock.ExpectQuery(`SELECT \* FROM "schools"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("s-1", "Hilltop"))

	// The node name works as well as the table name.
	w := doRequest(router, "GET", "/School")
	assert.Equal(t, http.StatusOK, w.Code)
}
