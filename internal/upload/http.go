package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/folio-viewer/internal/logger"
)

// HTTPStore posts files as multipart form data to an upload endpoint that
// replies {"file_url": "..."}.
type HTTPStore struct {
	endpoint string
	path     string
	cacheDir string
	client   *http.Client
	log      *zap.Logger
}

// NewHTTPStore creates a store posting to endpoint+path.
func NewHTTPStore(endpoint, path string, timeout time.Duration, cacheDir string) *HTTPStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		endpoint: strings.TrimRight(endpoint, "/"),
		path:     path,
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: timeout},
		log:      logger.Named("upload"),
	}
}

type uploadReply struct {
	FileURL string `json:"file_url"`
}

// Upload sends the file in the "file" form field.
func (s *HTTPStore) Upload(ctx context.Context, path string) (string, error) {
	target := s.endpoint + s.path
	fail := func(err error) (string, error) {
		s.log.Warn("upload failed", zap.String("url", target), zap.Error(err))
		return "", &TransportError{Op: "upload", URL: target, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, pr)
	if err != nil {
		pr.Close()
		return fail(err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fail(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var reply uploadReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fail(fmt.Errorf("decoding reply: %w", err))
	}
	if reply.FileURL == "" {
		return fail(fmt.Errorf("reply has no file_url"))
	}

	fileURL := reply.FileURL
	if strings.HasPrefix(fileURL, "/") {
		fileURL = s.endpoint + fileURL
	}
	s.log.Info("uploaded", zap.String("file", filepath.Base(path)), zap.String("url", fileURL))
	return fileURL, nil
}

// Resolve downloads http(s) URLs into the cache; local URLs pass through.
func (s *HTTPStore) Resolve(ctx context.Context, rawURL string) (string, error) {
	if p, ok, err := localPath(rawURL); err == nil && ok {
		return p, nil
	}
	fail := func(err error) (string, error) {
		return "", &TransportError{Op: "fetch", URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fail(err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("status %d", resp.StatusCode))
	}

	dst, err := saveDownload(s.cacheDir, rawURL, resp.Body)
	if err != nil {
		return fail(err)
	}
	return dst, nil
}
