package images

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestPublicID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://img.example.com/uploads/abc123.png", want: "abc123"},
		{url: "https://img.example.com/uploads/abc123.jpeg", want: "abc123"},
		{url: "https://img.example.com/deep/path/xyz.webp", want: "xyz"},
		{url: "https://img.example.com/no-extension", want: "no-extension"},
		{url: "https://img.example.com/", wantErr: true},
		{url: "://bad", wantErr: true},
	}

	for _, tt := range tests {
		got, err := PublicID(tt.url)
		if tt.wantErr {
			assert.Error(t, err, tt.url)
			continue
		}
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestUpload(t *testing.T) {
	var gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename

		json.NewEncoder(w).Encode(map[string]string{"url": "https://img.example.com/uploads/new42.png"})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "test-key", testLogger())

	url, err := client.Upload(context.Background(), "photo.png", strings.NewReader("fake-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/uploads/new42.png", url)
	assert.Equal(t, "photo.png", gotFilename)
}

func TestUploadRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "", testLogger())

	_, err := client.Upload(context.Background(), "photo.png", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestDeleteUsesPublicID(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "", testLogger())

	err := client.Delete(context.Background(), "https://img.example.com/uploads/abc123.png")
	require.NoError(t, err)
	assert.Equal(t, "/abc123", gotPath)
}
