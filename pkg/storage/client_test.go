package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	var gotPath, gotAuth, gotUpsert, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUpsert = r.Header.Get("x-upsert")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		Bucket:     "clinic-media",
		PathPrefix: "inbound",
		APIKey:     "secret",
	})

	url, err := client.Upload(context.Background(), "123-audio.ogg", []byte("payload"), "audio/ogg")

	require.NoError(t, err)
	assert.Equal(t, "/object/clinic-media/inbound/123-audio.ogg", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "true", gotUpsert)
	assert.Equal(t, "audio/ogg", gotContentType)
	assert.Equal(t, []byte("payload"), gotBody)
	assert.Equal(t, server.URL+"/object/public/clinic-media/inbound/123-audio.ogg", url)
}

func TestUpload_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Bucket: "missing", APIKey: "secret"})
	_, err := client.Upload(context.Background(), "file.bin", []byte("x"), "application/octet-stream")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestPublicURL_NoPrefix(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "https://store.example.com/", Bucket: "b", APIKey: "k"})
	assert.Equal(t, "https://store.example.com/object/public/b/f.jpg", client.PublicURL("f.jpg"))
}

func TestHasCredentials(t *testing.T) {
	assert.True(t, NewClient(ClientConfig{BaseURL: "http://x", Bucket: "b", APIKey: "k"}).HasCredentials())
	assert.False(t, NewClient(ClientConfig{BaseURL: "http://x", Bucket: "b"}).HasCredentials())
	assert.False(t, NewClient(ClientConfig{}).HasCredentials())
}
