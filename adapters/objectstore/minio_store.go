package objectstore

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/erezimm/cast/internal/config"
	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/ports"
)

// MinioStore implements ObjectStore against an S3-compatible endpoint.
// Cutout stamps, raw alert files and registry feedback all land here.
type MinioStore struct {
	client *minio.Client
	bucket string
	log    *logrus.Entry
}

// NewMinioStore connects to the object store and ensures the bucket exists
func NewMinioStore(ctx context.Context, cfg config.ObjectStoreConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create object store client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to check bucket")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, apperrors.Wrap(err, "failed to create bucket")
		}
	}

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		log:    logrus.WithField("component", "objectstore"),
	}, nil
}

var _ ports.ObjectStore = (*MinioStore)(nil)

// Put uploads a blob under key
func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to store object "+key)
	}
	s.log.WithFields(logrus.Fields{"key": key, "size": size}).Debug("object stored")
	return nil
}

// Get opens the blob under key for reading
func (s *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get object "+key)
	}
	return obj, nil
}

// Delete removes the blob under key
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return apperrors.Wrap(err, "failed to delete object "+key)
	}
	return nil
}
