package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Raed-Bourouis/VoiceUP/internal/config"
)

// MediaStore talks to the deployment's S3-compatible bucket service.
// The avatars bucket is public, chat media lives in a private bucket
// and is only reachable through presigned GETs.
type MediaStore struct {
	client    *s3.Client
	presigner *s3.PresignClient

	endpoint     string
	publicURL    string
	avatarBucket string
	mediaBucket  string
}

func NewMediaStore(ctx context.Context, cfg *config.Config) (*MediaStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.StorageAccessKey, cfg.StorageSecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.StorageEndpoint)
		o.UsePathStyle = true
	})

	return &MediaStore{
		client:       client,
		presigner:    s3.NewPresignClient(client),
		endpoint:     strings.TrimRight(cfg.StorageEndpoint, "/"),
		publicURL:    strings.TrimRight(cfg.StoragePublicURL, "/"),
		avatarBucket: cfg.AvatarBucket,
		mediaBucket:  cfg.MediaBucket,
	}, nil
}

func (m *MediaStore) AvatarBucket() string { return m.avatarBucket }
func (m *MediaStore) MediaBucket() string  { return m.mediaBucket }

// Upload puts an object and returns the URL to store in the row. For
// the public avatar bucket that is the public URL; for everything else
// it is the path-style endpoint URL a later presign resolves.
func (m *MediaStore) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("mediaStore.Upload: %w", err)
	}

	if bucket == m.avatarBucket && m.publicURL != "" {
		return fmt.Sprintf("%s/%s", m.publicURL, key), nil
	}
	return fmt.Sprintf("%s/%s/%s", m.endpoint, bucket, key), nil
}

// PresignGet returns a time-limited GET URL for a private object.
func (m *MediaStore) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := m.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("mediaStore.PresignGet: %w", err)
	}
	return req.URL, nil
}

// Remove deletes an object. Used when replacing avatars.
func (m *MediaStore) Remove(ctx context.Context, bucket, key string) error {
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("mediaStore.Remove: %w", err)
	}
	return nil
}
