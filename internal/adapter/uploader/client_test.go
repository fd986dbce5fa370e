package uploader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/uploads", r.URL.Path)

		var req uploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "image/png", req.ContentType)
		assert.Equal(t, "aGVsbG8=", req.Data)

		json.NewEncoder(w).Encode(uploadResponse{URL: "https://cdn.example.com/a.png"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	url, err := c.Upload(context.Background(), "image/png", "aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png", url)
}

func TestUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage full", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Upload(context.Background(), "image/png", "aGVsbG8=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage full")
}

func TestUploadMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Upload(context.Background(), "image/png", "aGVsbG8=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no URL")
}

func TestUploadUnconfigured(t *testing.T) {
	c := NewClient("", time.Second)
	_, err := c.Upload(context.Background(), "image/png", "aGVsbG8=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no upload service configured")
}
