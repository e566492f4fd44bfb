package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Signer exchanges an object key for a time-boxed retrieval URL.
type Signer interface {
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MinioSigner issues presigned GET URLs from an S3-compatible store.
type MinioSigner struct {
	client *minio.Client
	bucket string
}

// New connects to the object store and returns a signer for the given bucket.
// The region is set explicitly so presigning never performs a bucket-location
// round trip.
func New(endpoint, region, accessKey, secretKey, bucket string, useSSL bool) (*MinioSigner, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("storage endpoint must be provided")
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket must be provided")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	return &MinioSigner{client: client, bucket: bucket}, nil
}

// SignedURL returns a presigned single-object GET URL valid for ttl.
func (s *MinioSigner) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object %q: %w", key, err)
	}
	return signed.String(), nil
}
