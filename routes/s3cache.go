package routes

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"media-resampler/config"
)

// S3Cache persists encoded results in an S3 compatible bucket so they
// survive restarts and are shared between replicas.
type S3Cache struct {
	Client  *minio.Client
	Bucket  string
	Prefix  string
	Enabled bool
}

// NewS3Cache returns nil when the S3 cache is not configured.
func NewS3Cache(config *config.Config) (*S3Cache, error) {
	if !config.S3Enabled {
		return nil, nil
	}
	if config.S3Endpoint == "" || config.S3Bucket == "" {
		return nil, fmt.Errorf("s3 cache enabled without endpoint or bucket")
	}

	client, err := minio.New(config.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.S3AccessKey, config.S3SecretKey, ""),
		Secure: config.S3UseSSL,
		Region: config.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &S3Cache{
		Client:  client,
		Bucket:  config.S3Bucket,
		Prefix:  config.S3Prefix,
		Enabled: true,
	}, nil
}

// objectKeyFromCacheKey hashes a cache key into a flat object name.
func objectKeyFromCacheKey(prefix, key string) string {
	sum := sha256.Sum256([]byte(key))
	return path.Join(prefix, hex.EncodeToString(sum[:]))
}

// objectKeyFromExplicitLocation places a sanitized, caller chosen location under the prefix.
func objectKeyFromExplicitLocation(prefix, location string) string {
	return path.Join(prefix, location)
}

func (s *S3Cache) Get(ctx context.Context, key string) (*CacheValue, error) {
	return s.getObject(ctx, objectKeyFromCacheKey(s.Prefix, key))
}

func (s *S3Cache) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return s.putObject(ctx, objectKeyFromCacheKey(s.Prefix, key), data, contentType)
}

func (s *S3Cache) GetAtLocation(ctx context.Context, location string) (*CacheValue, error) {
	return s.getObject(ctx, objectKeyFromExplicitLocation(s.Prefix, location))
}

func (s *S3Cache) PutAtLocation(ctx context.Context, location string, data []byte, contentType string) error {
	return s.putObject(ctx, objectKeyFromExplicitLocation(s.Prefix, location), data, contentType)
}

// getObject returns nil, nil when the object does not exist.
func (s *S3Cache) getObject(ctx context.Context, objectKey string) (*CacheValue, error) {
	obj, err := s.Client.GetObject(ctx, s.Bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, err
	}

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}

	return &CacheValue{Body: body, ContentType: info.ContentType}, nil
}

func (s *S3Cache) putObject(ctx context.Context, objectKey string, data []byte, contentType string) error {
	_, err := s.Client.PutObject(ctx, s.Bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}
