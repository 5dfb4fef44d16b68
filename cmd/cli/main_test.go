package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 8))
	assert.Equal(t, "abcde...", truncate("abcdefghijkl", 8))
}

func TestStringField(t *testing.T) {
	m := map[string]interface{}{"id": "abc", "size": 12.0}
	assert.Equal(t, "abc", stringField(m, "id"))
	assert.Equal(t, "", stringField(m, "size"))
	assert.Equal(t, "", stringField(m, "missing"))
}

func TestRelative(t *testing.T) {
	assert.Equal(t, "not-a-time", relative("not-a-time"))
	ts := time.Now().Add(-2 * time.Hour).Format(time.RFC3339Nano)
	assert.Equal(t, "2 hours ago", relative(ts))
}

func TestCall_DecodesUnauthorizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/downloads", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://cdn.example.com/a.mp4", body["url"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"id": "d1", "redirect_to": "/auth?next=%2Fwatch"})
	}))
	defer srv.Close()

	prev := serverURL
	serverURL = srv.URL
	defer func() { serverURL = prev }()

	var result map[string]interface{}
	code := call(http.MethodPost, "/api/v1/downloads", map[string]string{"url": "https://cdn.example.com/a.mp4"}, &result)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "d1", result["id"])
	assert.Equal(t, "/auth?next=%2Fwatch", result["redirect_to"])
}
