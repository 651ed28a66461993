// Package tika is the text-extraction collaborator (§6): it resolves
// an attachment's path to its file content, extracts text through a
// Tika-compatible HTTP service, and caches results by content hash so
// repeated builds of the same attachment don't re-extract it.
package tika

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/musearch/bridge/clog"
	"github.com/musearch/bridge/internal/lru"
)

// Extractor resolves a relative attachment path to extracted text, or
// nil if the file is missing, empty, or over the configured size
// limit (§4.3: "missing attachment" is not an error — content becomes
// null).
type Extractor interface {
	Extract(ctx context.Context, relPath string) (*string, error)
}

// Client extracts text via an HTTP Tika-compatible service, reading
// files from a local attachment base directory and caching results
// in an in-memory LRU keyed by the file's SHA-256.
type Client struct {
	Endpoint    string
	BaseDir     string
	MaxFileSize int64
	HTTPClient  *http.Client
	cache       *lru.Cache
}

// NewClient returns a Client with a bounded result cache.
func NewClient(endpoint, baseDir string, maxFileSize int64, cacheSize int) *Client {
	return &Client{
		Endpoint:    endpoint,
		BaseDir:     baseDir,
		MaxFileSize: maxFileSize,
		HTTPClient:  &http.Client{},
		cache:       lru.New(cacheSize),
	}
}

func (c *Client) Extract(ctx context.Context, relPath string) (*string, error) {
	full := filepath.Join(c.BaseDir, relPath)
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		clog.Warningf("TIKA: attachment %q does not exist, indexing without content", relPath)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tika: stat %q: %w", full, err)
	}
	if c.MaxFileSize > 0 && info.Size() > c.MaxFileSize {
		clog.Warningf("TIKA: attachment %q exceeds max size, indexing without content", relPath)
		return nil, nil
	}
	if info.Size() == 0 {
		return nil, nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("tika: reading %q: %w", full, err)
	}
	key := sha256Hex(data)
	if cached, ok := c.cache.Get(key); ok {
		text := cached.(string)
		return &text, nil
	}

	text, err := c.extractRemote(ctx, data)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, text)
	return &text, nil
}

func (c *Client) extractRemote(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.Endpoint+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tika: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("tika: service returned %d: %s", resp.StatusCode, string(b))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("tika: reading response: %w", err)
	}
	return string(body), nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
