package corpus

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/verte-zerg/subcrack/internal/cipher"
)

func TestSampleIsEnglish(t *testing.T) {
	if n := Letters(Sample(), cipher.DefaultAlphabet()); n < 300000 {
		t.Fatalf("expected built-in sample to hold at least 300000 letters, got %d", n)
	}
	if !strings.Contains(Sample(), "quick brown fox") {
		t.Fatalf("expected pangram in sample")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.txt")
	if err := os.WriteFile(path, []byte("hello world\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	text, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if text != "hello world\n" {
		t.Fatalf("unexpected text %q", text)
	}

	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte(" \n\t"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(empty); err == nil {
		t.Fatalf("expected error for empty corpus")
	}
	if got, err := LoadOrSample(""); err != nil || got != Sample() {
		t.Fatalf("expected sample fallback, err=%v", err)
	}
}

func TestFetchCachesDownload(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("some reference text"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	ctx := context.Background()
	first, err := Fetch(ctx, srv.URL+"/books/pg1342.txt", dir, false)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if first.Cached {
		t.Fatalf("expected fresh download")
	}
	data, err := os.ReadFile(first.Path)
	if err != nil || string(data) != "some reference text" {
		t.Fatalf("unexpected cached content %q (%v)", data, err)
	}

	second, err := Fetch(ctx, srv.URL+"/books/pg1342.txt", dir, false)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !second.Cached || second.Path != first.Path {
		t.Fatalf("expected cached hit, got %+v", second)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected one request, got %d", hits)
	}
}

func TestFetchGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte("compressed text"))
	_ = gz.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	d, err := Fetch(context.Background(), srv.URL+"/corpus.txt.gz", t.TempDir(), false)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	data, err := os.ReadFile(d.Path)
	if err != nil || string(data) != "compressed text" {
		t.Fatalf("unexpected content %q (%v)", data, err)
	}
	if !strings.HasSuffix(d.Path, "corpus.txt") {
		t.Fatalf("unexpected cache name %s", d.Path)
	}
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.URL+"/x.txt", t.TempDir(), false); err == nil {
		t.Fatalf("expected error on 404")
	}
	if _, err := Fetch(context.Background(), "ftp://example.com/x", t.TempDir(), false); err == nil {
		t.Fatalf("expected error on unsupported scheme")
	}
}
