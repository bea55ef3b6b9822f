// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr recognizes text in scanned certificates and papers. A
// remote recognition service is tried first; a locally installed engine
// is the fallback. Both are optional.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-catalog/pkg/types"
)

// ErrNotConfigured is returned when neither the remote service nor a
// local engine is available. Callers route the file to manual review.
var ErrNotConfigured = errors.New("no OCR engine configured")

// Client drives text recognition.
type Client struct {
	client *http.Client
	cfg    types.OCRConfig
	log    *zap.Logger
}

// New builds a Client. A nil http client gets http.DefaultClient; a nil
// logger is replaced by a no-op one.
func New(client *http.Client, cfg types.OCRConfig, log *zap.Logger) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{client: client, cfg: cfg, log: log}
}

// RemoteConfigured reports whether the remote service is usable.
func (c *Client) RemoteConfigured() bool {
	return c.cfg.APIURL != "" && c.cfg.APIKey != ""
}

// Recognize extracts text from a document on disk. The remote service is
// preferred; when it is unconfigured, fails, or recognizes nothing, the
// local engine runs instead. With neither available the error wraps
// ErrNotConfigured.
func (c *Client) Recognize(ctx context.Context, path string) (string, error) {
	var remoteErr error
	if c.RemoteConfigured() {
		text, err := c.recognizeRemote(ctx, path)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		remoteErr = err
		if err != nil {
			c.log.Warn("remote OCR failed, trying local engine",
				zap.String("path", path), zap.Error(err))
		} else {
			c.log.Warn("remote OCR recognized no text, trying local engine",
				zap.String("path", path))
		}
	}

	if c.cfg.LocalEnginePath != "" {
		text, err := c.recognizeLocal(ctx, path)
		if err != nil {
			if remoteErr != nil {
				return "", fmt.Errorf("remote OCR: %w; local OCR: %v", remoteErr, err)
			}
			return "", fmt.Errorf("local OCR: %w", err)
		}
		return text, nil
	}

	if remoteErr != nil {
		return "", fmt.Errorf("remote OCR: %w", remoteErr)
	}
	return "", ErrNotConfigured
}

// remoteRequest is the recognition payload: the document as base64 with
// a type discriminator (0 for PDF, 1 for image).
type remoteRequest struct {
	File     string `json:"file"`
	FileType int    `json:"fileType"`
}

type remoteResponse struct {
	Result struct {
		LayoutParsingResults []struct {
			Markdown struct {
				Text string `json:"text"`
			} `json:"markdown"`
		} `json:"layoutParsingResults"`
	} `json:"result"`
	Error string `json:"error"`
}

func fileType(path string) int {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return 0
	}
	return 1
}

func (c *Client) recognizeRemote(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	payload, err := json.Marshal(remoteRequest{
		File:     base64.StdEncoding.EncodeToString(data),
		FileType: fileType(path),
	})
	if err != nil {
		return "", fmt.Errorf("encoding OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating OCR request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR service returned HTTP %d", resp.StatusCode)
	}

	var body remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("parsing OCR response: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("OCR service error: %s", body.Error)
	}

	var texts []string
	for _, r := range body.Result.LayoutParsingResults {
		if r.Markdown.Text != "" {
			texts = append(texts, r.Markdown.Text)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}

// recognizeLocal shells out to the configured engine in tesseract
// calling convention: <engine> <input> stdout.
func (c *Client) recognizeLocal(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, c.cfg.LocalEnginePath, path, "stdout")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running %s on %s: %w (%s)",
			c.cfg.LocalEnginePath, path, err, stderr.String())
	}
	return stdout.String(), nil
}
