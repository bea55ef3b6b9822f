// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-catalog/internal/httputil"
	"github.com/pdiddy/research-catalog/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func swapOpenAlex(t *testing.T, server *httptest.Server) {
	t.Helper()
	old := openAlexWorksBase
	openAlexWorksBase = server.URL + "/works/"
	t.Cleanup(func() {
		openAlexWorksBase = old
		server.Close()
	})
}

func newTestDownloader(cfg types.AcquireConfig) *Downloader {
	return New(&http.Client{Timeout: 5 * time.Second}, cfg, "lab@example.edu", nil)
}

func TestDownloadPDFSavesUnderDownloads(t *testing.T) {
	pdfSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/pdf", r.Header.Get("Accept"))
		fmt.Fprint(w, "%PDF-1.4 body")
	}))
	defer pdfSrv.Close()

	oaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/works/https:/")
		assert.Equal(t, "lab@example.edu", r.URL.Query().Get("mailto"))
		fmt.Fprintf(w, `{"best_oa_location":{"pdf_url":%q}}`, pdfSrv.URL+"/paper.pdf")
	}))
	swapOpenAlex(t, oaSrv)

	root := t.TempDir()
	d := newTestDownloader(types.AcquireConfig{})

	rel, err := d.DownloadPDF(context.Background(), root, "10.1000/test.42")
	require.NoError(t, err)
	assert.Equal(t, "downloads/10.1000_test.42.pdf", rel)

	data, err := os.ReadFile(filepath.Join(root, "downloads", "10.1000_test.42.pdf"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "%PDF-1.4")

	// No stray temp files left behind.
	entries, err := os.ReadDir(filepath.Join(root, "downloads"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloadPDFSkipsExistingFile(t *testing.T) {
	// The resolver must never be consulted when the file is present.
	oaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected OpenAlex call")
	}))
	swapOpenAlex(t, oaSrv)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "downloads"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "downloads", "10.1000_test.42.pdf"), []byte("existing"), 0o644))

	d := newTestDownloader(types.AcquireConfig{})
	rel, err := d.DownloadPDF(context.Background(), root, "10.1000/test.42")
	require.NoError(t, err)
	assert.Equal(t, "downloads/10.1000_test.42.pdf", rel)
}

func TestDownloadPDFNoOpenAccessLocation(t *testing.T) {
	oaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"best_oa_location":null}`)
	}))
	swapOpenAlex(t, oaSrv)

	d := newTestDownloader(types.AcquireConfig{})
	_, err := d.DownloadPDF(context.Background(), t.TempDir(), "10.1000/closed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no open-access PDF")
}

func TestDownloadPDFUnknownDOI(t *testing.T) {
	oaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	swapOpenAlex(t, oaSrv)

	d := newTestDownloader(types.AcquireConfig{})
	_, err := d.DownloadPDF(context.Background(), t.TempDir(), "10.1000/nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not known to OpenAlex")
}

func TestDownloadPDFFailedDownloadLeavesNoFile(t *testing.T) {
	pdfSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer pdfSrv.Close()

	oaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"best_oa_location":{"pdf_url":%q}}`, pdfSrv.URL+"/paper.pdf")
	}))
	swapOpenAlex(t, oaSrv)

	root := t.TempDir()
	d := newTestDownloader(types.AcquireConfig{})
	_, err := d.DownloadPDF(context.Background(), root, "10.1000/gone")
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(root, "downloads", "10.1000_gone.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDOISlug(t *testing.T) {
	assert.Equal(t, "10.1000_test.42", doiSlug("10.1000/Test.42"))
	assert.Equal(t, "10.1145_3292500.3330919", doiSlug(" 10.1145/3292500.3330919 "))
}
