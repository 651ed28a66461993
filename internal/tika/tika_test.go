package tika

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractMissingFileReturnsNil(t *testing.T) {
	c := NewClient("http://unused", t.TempDir(), 0, 8)
	text, err := c.Extract(context.Background(), "missing.pdf")
	require.NoError(t, err)
	require.Nil(t, text)
}

func TestExtractCachesByContentHash(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("extracted text"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("hello"), 0o644))

	c := NewClient(srv.URL, dir, 0, 8)
	t1, err := c.Extract(context.Background(), "a.txt")
	require.NoError(t, err)
	require.Equal(t, "extracted text", *t1)

	t2, err := c.Extract(context.Background(), "b.txt")
	require.NoError(t, err)
	require.Equal(t, "extracted text", *t2)
	require.Equal(t, 1, calls, "identical content should hit the cache on the second file")
}

func TestExtractOversizeSkipped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.bin"), []byte("0123456789"), 0o644))
	c := NewClient("http://unused", dir, 5, 8)
	text, err := c.Extract(context.Background(), "big.bin")
	require.NoError(t, err)
	require.Nil(t, text)
}
