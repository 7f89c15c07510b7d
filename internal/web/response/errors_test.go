package response

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestRenderError(t *testing.T) {
	w := httptest.NewRecorder()
	RenderError(w, 404, errors.New("no such resource"))

	assert.Equal(t, 404, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	body := decodeError(t, w)
	assert.Equal(t, "error", body.Error)
	assert.Equal(t, "no such resource", body.Message)
	assert.Equal(t, "not_found", body.Code)
}

func TestRenderErrorWithCode(t *testing.T) {
	w := httptest.NewRecorder()
	RenderErrorWithCode(w, 400, errors.New("bad paths"), "mutually_exclusive")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "mutually_exclusive", decodeError(t, w).Code)
}

func TestRenderBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	RenderBadRequest(w, "fields and omit cannot be combined")

	assert.Equal(t, 400, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "fields and omit cannot be combined", body.Message)
	assert.Equal(t, "bad_request", body.Code)
}

func TestRenderNotFoundDefaultMessage(t *testing.T) {
	w := httptest.NewRecorder()
	RenderNotFound(w, "")

	assert.Equal(t, 404, w.Code)
	assert.Equal(t, "Resource not found", decodeError(t, w).Message)
}

func TestRenderJSON(t *testing.T) {
	w := httptest.NewRecorder()
	RenderJSON(w, 200, map[string]string{"name": "Ada"})

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"name":"Ada"}`, w.Body.String())
}
