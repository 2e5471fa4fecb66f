package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"zoombid/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MediaStore uploads product images to an S3 compatible bucket
type MediaStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *zap.Logger
}

// NewMediaStore connects to MinIO and makes sure the bucket exists
func NewMediaStore(ctx context.Context, cfg config.MinIOConfig, logger *zap.Logger) (*MediaStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("Created media bucket", zap.String("bucket", cfg.Bucket))
	}

	return &MediaStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: ObjectBaseURL(cfg.Endpoint, cfg.Bucket, cfg.UseSSL),
		logger:  logger,
	}, nil
}

// Upload stores data under key and returns its public URL
func (s *MediaStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.Debug("Uploaded media object",
		zap.String("bucket", s.bucket),
		zap.String("key", info.Key),
		zap.Int64("size", info.Size),
	)
	return s.baseURL + "/" + escapeKey(key), nil
}

// ObjectBaseURL returns the path style URL prefix of objects in bucket
func ObjectBaseURL(endpoint, bucket string, useSSL bool) string {
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, strings.TrimSuffix(endpoint, "/"), bucket)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
