package problems

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypePrecedence(t *testing.T) {
	t.Setenv("PROBLEM_BASE_URL", "")
	t.Setenv("BASE_PUBLIC_URL", "")
	assert.Equal(t, "https://example.com/problems/bad-request", Type("bad-request"))

	t.Setenv("BASE_PUBLIC_URL", "https://app.example.org/")
	assert.Equal(t, "https://app.example.org/problems/x", Type("x"))

	t.Setenv("PROBLEM_BASE_URL", "https://errors.example.org/p/")
	assert.Equal(t, "https://errors.example.org/p/x", Type("x"))
}

func TestWrite(t *testing.T) {
	t.Setenv("PROBLEM_BASE_URL", "https://errors.example.org")
	rec := httptest.NewRecorder()
	Write(rec, http.StatusBadRequest, "invalid-callback", "Invalid callback body", "unexpected EOF")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "https://errors.example.org/invalid-callback", p.Type)
	assert.Equal(t, http.StatusBadRequest, p.Status)
}
