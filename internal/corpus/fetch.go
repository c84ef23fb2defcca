package corpus

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Download describes a cached corpus file.
type Download struct {
	URL    string
	Path   string
	Bytes  int64
	Cached bool
}

// Fetch downloads rawURL into cacheDir unless a cached copy exists. Files
// ending in .gz are decompressed on the way in.
func Fetch(ctx context.Context, rawURL, cacheDir string, force bool) (Download, error) {
	if cacheDir == "" {
		return Download{}, fmt.Errorf("cache directory is required")
	}
	name, err := cacheName(rawURL)
	if err != nil {
		return Download{}, err
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Download{}, fmt.Errorf("failed to create cache dir: %w", err)
	}

	destPath := filepath.Join(cacheDir, name)
	if !force {
		if info, err := os.Stat(destPath); err == nil {
			return Download{URL: rawURL, Path: destPath, Bytes: info.Size(), Cached: true}, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return Download{}, fmt.Errorf("failed to stat cached corpus: %w", err)
		}
	}

	resp, err := httpRequest(ctx, rawURL)
	if err != nil {
		return Download{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return Download{}, fmt.Errorf("unexpected corpus status: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if strings.HasSuffix(strings.ToLower(rawURL), ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return Download{}, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer func() {
			_ = gz.Close()
		}()
		body = gz
	}

	tmpFile, err := os.CreateTemp(cacheDir, "corpus-*.txt")
	if err != nil {
		return Download{}, fmt.Errorf("failed to create temp corpus: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	n, err := io.Copy(tmpFile, body)
	if err != nil {
		return Download{}, fmt.Errorf("failed to download corpus: %w", err)
	}
	if n == 0 {
		return Download{}, fmt.Errorf("downloaded corpus is empty")
	}
	if err := tmpFile.Close(); err != nil {
		return Download{}, fmt.Errorf("failed to close temp corpus: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return Download{}, fmt.Errorf("failed to move corpus into cache: %w", err)
	}
	return Download{URL: rawURL, Path: destPath, Bytes: n}, nil
}

func cacheName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid corpus url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported corpus url scheme %q", u.Scheme)
	}
	base := path.Base(u.Path)
	if base == "" || base == "/" || base == "." {
		base = "index"
	}
	base = strings.TrimSuffix(base, ".gz")
	if !strings.HasSuffix(base, ".txt") {
		base += ".txt"
	}
	return u.Hostname() + "_" + base, nil
}

func httpRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
