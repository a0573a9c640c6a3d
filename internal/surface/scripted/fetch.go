// internal/surface/scripted/fetch.go
package scripted

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
)

// maxDocumentBytes caps a fetched document or script.
const maxDocumentBytes = 8 << 20

// Fetcher loads documents and scripts by address.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, rawURL string) (string, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) (string, error) { return f(ctx, rawURL) }

// DefaultFetcher reads http(s) URLs over the network, and file:// URLs and
// plain paths (with ~ expansion) from disk.
func DefaultFetcher() Fetcher {
	client := &http.Client{Timeout: 30 * time.Second}
	return FetcherFunc(func(ctx context.Context, rawURL string) (string, error) {
		u, err := url.Parse(rawURL)
		if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			return fetchHTTP(ctx, client, rawURL)
		}
		path := rawURL
		if err == nil && u.Scheme == "file" {
			path = u.Path
		}
		return readFile(path)
	})
}

func fetchHTTP(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(body), nil
}

func readFile(path string) (string, error) {
	expanded, err := homedir.Expand(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", path, err)
	}
	b, err := os.ReadFile(expanded)
	if err != nil {
		return "", err
	}
	if len(b) > maxDocumentBytes {
		return "", fmt.Errorf("%s exceeds %d bytes", expanded, maxDocumentBytes)
	}
	return string(b), nil
}
