// Package upload moves a picked model file to storage and resolves the
// returned URL back to a local file the decoders can open.
package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store is a storage backend. Upload sends the file at path and returns the
// URL it is reachable at; Resolve turns such a URL into a local path.
type Store interface {
	Upload(ctx context.Context, path string) (string, error)
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// TransportError is any failure talking to the storage backend. It is
// reported to the user; nothing is retried automatically.
type TransportError struct {
	Op  string // "upload" or "fetch"
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Backend names accepted by New.
const (
	BackendLocal = "local"
	BackendHTTP  = "http"
	BackendS3    = "s3"
)

// Options configure New.
type Options struct {
	Endpoint string
	Path     string
	Timeout  time.Duration
	CacheDir string
	S3       S3Options
}

// New builds the store for backend.
func New(backend string, opts Options) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendLocal:
		return LocalStore{}, nil
	case BackendHTTP:
		return NewHTTPStore(opts.Endpoint, opts.Path, opts.Timeout, opts.CacheDir), nil
	case BackendS3:
		s, err := NewS3Store(opts.S3, opts.CacheDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown upload backend %q", backend)
}

// LocalStore leaves files where they are and hands out file:// URLs.
type LocalStore struct{}

// Upload returns a file:// URL for path.
func (LocalStore) Upload(_ context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &TransportError{Op: "upload", URL: path, Err: err}
	}
	if _, err := os.Stat(abs); err != nil {
		return "", &TransportError{Op: "upload", URL: path, Err: err}
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// Resolve accepts file:// URLs and plain paths.
func (LocalStore) Resolve(_ context.Context, rawURL string) (string, error) {
	p, ok, err := localPath(rawURL)
	if err != nil {
		return "", &TransportError{Op: "fetch", URL: rawURL, Err: err}
	}
	if !ok {
		return "", &TransportError{Op: "fetch", URL: rawURL, Err: fmt.Errorf("not a local URL")}
	}
	return p, nil
}

// localPath returns the filesystem path of a file:// URL or bare path.
func localPath(rawURL string) (string, bool, error) {
	if !strings.Contains(rawURL, "://") {
		return rawURL, true, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false, err
	}
	if u.Scheme != "file" {
		return "", false, nil
	}
	return filepath.FromSlash(u.Path), true, nil
}

// FilenameOf returns the last path element of a URL or path, which carries
// the extension used for format detection.
func FilenameOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return filepath.Base(filepath.FromSlash(u.Path))
	}
	return filepath.Base(rawURL)
}

// cachePath returns where a download of rawURL is stored: a directory
// named by a hash of the full URL, holding the file under its basename so
// the extension survives.
func cachePath(cacheDir, rawURL string) (string, error) {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "folio-viewer")
	}
	sum := sha256.Sum256([]byte(rawURL))
	dir := filepath.Join(cacheDir, hex.EncodeToString(sum[:8]))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dir, FilenameOf(rawURL)), nil
}

// saveDownload copies body into the cache entry for rawURL. The file appears
// complete or not at all.
func saveDownload(cacheDir, rawURL string, body io.Reader) (string, error) {
	dst, err := cachePath(cacheDir, rawURL)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".part-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return dst, nil
}
