package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/models"
)

type MinIOConfig struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	PublicUseSSL   bool
}

type MinIOStore struct {
	client *minio.Client
	cfg    MinIOConfig
	now    func() time.Time
}

// NewMinIOStore connects to MinIO, creating the bucket with a public-read
// policy when it does not exist yet.
func NewMinIOStore(ctx context.Context, cfg MinIOConfig, logger zerolog.Logger) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info().Str("bucket", cfg.Bucket).Msg("created image bucket")
	}

	if err := client.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
		logger.Warn().Err(err).Str("bucket", cfg.Bucket).Msg("failed to set bucket policy")
	}

	if cfg.PublicEndpoint == "" {
		cfg.PublicEndpoint = cfg.Endpoint
	}
	return &MinIOStore{client: client, cfg: cfg, now: time.Now}, nil
}

func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    []string{"s3:GetObject"},
				"Resource":  []string{"arn:aws:s3:::" + bucket + "/*"},
			},
		},
	}
	raw, _ := json.Marshal(policy)
	return string(raw)
}

func (s *MinIOStore) Put(ctx context.Context, userID string, capture models.Capture) (models.StoredImage, error) {
	key := objectKey(userID, capture.ContentType, s.now())
	size := int64(len(capture.Data))

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(capture.Data), size, minio.PutObjectOptions{
		ContentType: capture.ContentType,
	})
	if err != nil {
		return models.StoredImage{}, fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	return models.StoredImage{
		Key:         key,
		URL:         s.publicURL(key),
		ContentType: capture.ContentType,
		Size:        size,
	}, nil
}

func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinIOStore) publicURL(key string) string {
	return publicURL(s.cfg, key)
}

func publicURL(cfg MinIOConfig, key string) string {
	scheme := "http"
	if cfg.PublicUseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, cfg.PublicEndpoint, cfg.Bucket, url.PathEscape(key))
}
