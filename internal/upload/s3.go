package upload

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/Faultbox/folio-viewer/internal/logger"
)

// S3Options configure an S3-compatible bucket.
type S3Options struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// S3Store puts models into a bucket and hands out s3://bucket/key URLs.
type S3Store struct {
	opts     S3Options
	cacheDir string
	client   *s3.S3
	log      *zap.Logger
}

// NewS3Store opens a session. Static credentials are used when given,
// otherwise the SDK's default chain applies.
func NewS3Store(opts S3Options, cacheDir string) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}
	cfg := &aws.Config{Region: aws.String(opts.Region)}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if opts.AccessKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, "")
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("s3 session: %w", err)
	}
	return &S3Store{opts: opts, cacheDir: cacheDir, client: s3.New(sess), log: logger.Named("upload")}, nil
}

func (s *S3Store) key(filename string) string {
	return path.Join(s.opts.Prefix, filename)
}

// Upload puts the file under prefix/basename.
func (s *S3Store) Upload(ctx context.Context, localPath string) (string, error) {
	name := filepath.Base(localPath)
	key := s.key(name)
	dest := (&url.URL{Scheme: "s3", Host: s.opts.Bucket, Path: "/" + key}).String()

	f, err := os.Open(localPath)
	if err != nil {
		return "", &TransportError{Op: "upload", URL: dest, Err: err}
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", &TransportError{Op: "upload", URL: dest, Err: err}
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.opts.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		s.log.Warn("upload failed", zap.String("url", dest), zap.Error(err))
		return "", &TransportError{Op: "upload", URL: dest, Err: err}
	}

	s.log.Info("uploaded", zap.String("file", name), zap.String("url", dest), zap.Int64("bytes", info.Size()))
	return dest, nil
}

// Resolve downloads s3:// URLs into the cache; local URLs pass through.
func (s *S3Store) Resolve(ctx context.Context, rawURL string) (string, error) {
	if p, ok, err := localPath(rawURL); err == nil && ok {
		return p, nil
	}
	fail := func(err error) (string, error) {
		return "", &TransportError{Op: "fetch", URL: rawURL, Err: err}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fail(err)
	}
	if u.Scheme != "s3" {
		return fail(fmt.Errorf("unsupported scheme %q", u.Scheme))
	}

	obj, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(strings.TrimPrefix(u.Path, "/")),
	})
	if err != nil {
		return fail(err)
	}
	defer obj.Body.Close()

	dst, err := saveDownload(s.cacheDir, rawURL, obj.Body)
	if err != nil {
		return fail(err)
	}
	return dst, nil
}
