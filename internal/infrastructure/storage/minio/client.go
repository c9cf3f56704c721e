// Package minio stores exported molecule artifacts in an S3-compatible bucket.
package minio

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ClairePA/ChemistryToolkit/internal/config"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

// ObjectAPI is the subset of *minio.Client the artifact store uses.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error)
}

// NewClient connects to cfg.Endpoint and makes sure cfg.Bucket exists.
func NewClient(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*minio.Client, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "failed to create minio client")
	}
	if err := EnsureBucket(ctx, c, cfg.Bucket, log); err != nil {
		return nil, err
	}
	log.Info("minio client connected", logging.String("endpoint", cfg.Endpoint), logging.String("bucket", cfg.Bucket))
	return c, nil
}

// EnsureBucket creates bucket when it does not exist.
func EnsureBucket(ctx context.Context, api ObjectAPI, bucket string, log logging.Logger) error {
	ok, err := api.BucketExists(ctx, bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio bucket check failed").WithDetail(bucket)
	}
	if ok {
		return nil
	}
	if err := api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "minio bucket create failed").WithDetail(bucket)
	}
	log.Info("created bucket", logging.String("bucket", bucket))
	return nil
}
