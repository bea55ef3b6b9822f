// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-catalog/pkg/types"
)

func writeTempImage(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRecognizeRemote(t *testing.T) {
	path := writeTempImage(t, "fake image bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "token secret-key", r.Header.Get("Authorization"))

		var req remoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		decoded, err := base64.StdEncoding.DecodeString(req.File)
		require.NoError(t, err)
		assert.Equal(t, "fake image bytes", string(decoded))
		assert.Equal(t, 1, req.FileType)

		fmt.Fprint(w, `{"result": {"layoutParsingResults": [
			{"markdown": {"text": "发明专利证书"}},
			{"markdown": {"text": "专利号：ZL202211551727.X"}}
		]}}`)
	}))
	defer server.Close()

	c := New(server.Client(), types.OCRConfig{APIURL: server.URL, APIKey: "secret-key"}, nil)
	text, err := c.Recognize(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "发明专利证书\n\n专利号：ZL202211551727.X", text)
}

func TestRecognizePDFFileType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cert.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0, req.FileType)
		fmt.Fprint(w, `{"result": {"layoutParsingResults": [{"markdown": {"text": "ok"}}]}}`)
	}))
	defer server.Close()

	c := New(server.Client(), types.OCRConfig{APIURL: server.URL, APIKey: "k"}, nil)
	text, err := c.Recognize(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestRecognizeRemoteServiceError(t *testing.T) {
	path := writeTempImage(t, "x")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error": "invalid api key"}`)
	}))
	defer server.Close()

	c := New(server.Client(), types.OCRConfig{APIURL: server.URL, APIKey: "bad"}, nil)
	_, err := c.Recognize(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestRecognizeFallsBackToLocalEngine(t *testing.T) {
	path := writeTempImage(t, "x")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	// "echo" stands in for a tesseract-style engine: it prints its
	// arguments, which is enough to see the fallback ran.
	c := New(server.Client(), types.OCRConfig{
		APIURL:          server.URL,
		APIKey:          "k",
		LocalEnginePath: "echo",
	}, nil)
	text, err := c.Recognize(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, path)
}

func TestRecognizeNothingConfigured(t *testing.T) {
	path := writeTempImage(t, "x")

	c := New(nil, types.OCRConfig{}, nil)
	_, err := c.Recognize(context.Background(), path)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRecognizeUnreadableFile(t *testing.T) {
	c := New(nil, types.OCRConfig{APIURL: "http://127.0.0.1:0", APIKey: "k"}, nil)
	_, err := c.Recognize(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
