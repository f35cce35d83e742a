package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/tagcatalog/pkg/response"
)

func TestNewPagination(t *testing.T) {
	assert.Equal(t, 3, response.NewPagination(1, 10, 21).LastPage)
	assert.Equal(t, 2, response.NewPagination(2, 10, 20).LastPage)
	assert.Equal(t, 1, response.NewPagination(1, 10, 0).LastPage)
}

func TestValidationErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	response.ValidationError(rec, map[string]string{"article": "The article field is required."})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 422, body["status"])
	assert.Equal(t, "Validation failed", body["message"])
	assert.Contains(t, body["errors"], "article")
}
