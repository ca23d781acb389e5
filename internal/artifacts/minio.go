package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrStoreUnavailable marks a transient object storage failure. Uploads
// wrapped with it are retried on the next reconciliation trigger.
var ErrStoreUnavailable = errors.New("artifact store unavailable")

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	bucket          string
	accessKey       string
	secretAccessKey string
	publicBaseUrl   string
	useSSL          bool
}

func newConfig(opts ...MinioOpts) *minioConfig {
	cfg := &minioConfig{
		useSSL: false,
	}

	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// MinioStore uploads artifacts into a single bucket. Uploads to the same
// path overwrite; last writer wins, which keeps crash-retried
// materializations from piling up duplicate blobs.
type MinioStore struct {
	cfg    *minioConfig
	client *minio.Client
}

func NewMinioStore(opts ...MinioOpts) (*MinioStore, error) {
	cfg := newConfig(opts...)

	minioClient, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinioStore{cfg: cfg, client: minioClient}, nil
}

// Upload persists one blob and returns its durable url.
func (s *MinioStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.cfg.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: putting %s: %v", ErrStoreUnavailable, path, err)
	}

	return s.durableUrl(path), nil
}

func (s *MinioStore) durableUrl(path string) string {
	if s.cfg.publicBaseUrl != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(s.cfg.publicBaseUrl, "/"), path)
	}

	scheme := "http"
	if s.cfg.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.cfg.endpoint, s.cfg.bucket, path)
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) MinioOpts {
	return func(c *minioConfig) {
		c.bucket = bucket
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithPublicBaseUrl(baseUrl string) MinioOpts {
	return func(c *minioConfig) {
		c.publicBaseUrl = baseUrl
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}
