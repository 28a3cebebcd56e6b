// Package minio stores objects in an S3-compatible endpoint through minio-go.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	storageAdapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// ProviderType is the adapter.storage type handled here.
const ProviderType = "minio"

type minioAdapter struct {
	client *minio.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*minioAdapter)(nil)

// NewMinioAdapter creates a client for cfg.Endpoint. No request is made until the first call.
func NewMinioAdapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio storage adapter '%s': endpoint must be specified in configuration", name)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio storage adapter '%s': %w", name, err)
	}
	return &minioAdapter{client: client, cfg: cfg, name: name}, nil
}

func (a *minioAdapter) Close() error { return nil }

func (a *minioAdapter) Type() string { return ProviderType }

func (a *minioAdapter) Name() string { return a.name }

func (a *minioAdapter) bucket(bucket string) string {
	if bucket == "" {
		return a.cfg.BucketName
	}
	return bucket
}

// EnsureBucket checks for the bucket and creates it when absent.
func (a *minioAdapter) EnsureBucket(ctx context.Context, bucket string) error {
	bucket = a.bucket(bucket)
	exists, err := a.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket '%s': %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: a.cfg.Region}); err != nil {
		// Another run may have created it in between.
		if resp := minio.ToErrorResponse(err); resp.Code == "BucketAlreadyOwnedByYou" || resp.Code == "BucketAlreadyExists" {
			return nil
		}
		return fmt.Errorf("failed to create bucket '%s': %w", bucket, err)
	}
	logger.Infof("Created bucket '%s' (minio adapter '%s').", bucket, a.name)
	return nil
}

// Upload puts one object. Readers without a Size method are buffered first so minio-go
// can send a single PUT instead of a multipart upload sized for an unknown length.
func (a *minioAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	sized, ok := data.(interface{ Size() int64 })
	if !ok {
		buf, err := io.ReadAll(data)
		if err != nil {
			return fmt.Errorf("failed to buffer '%s': %w", objectName, err)
		}
		r := bytes.NewReader(buf)
		data, sized = r, r
	}
	size := sized.Size()
	info, err := a.client.PutObject(ctx, a.bucket(bucket), objectName, data, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload '%s/%s': %w", a.bucket(bucket), objectName, err)
	}
	logger.Debugf("Uploaded '%s/%s' (%d bytes) via minio adapter '%s'.", info.Bucket, info.Key, info.Size, a.name)
	return nil
}

// Download returns the object reader. Errors such as a missing key surface on the first Read.
func (a *minioAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	obj, err := a.client.GetObject(ctx, a.bucket(bucket), objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download '%s/%s': %w", a.bucket(bucket), objectName, err)
	}
	return obj, nil
}

// ListObjects lists keys under prefix recursively.
func (a *minioAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range a.client.ListObjects(ctx, a.bucket(bucket), minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list '%s' with prefix '%s': %w", a.bucket(bucket), prefix, obj.Err)
		}
		if err := fn(obj.Key); err != nil {
			return err
		}
	}
	return nil
}

// DeleteObject removes the object. S3 treats a missing key as success.
func (a *minioAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	if err := a.client.RemoveObject(ctx, a.bucket(bucket), objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete '%s/%s': %w", a.bucket(bucket), objectName, err)
	}
	return nil
}

// MinioProvider manages MinIO connections.
type MinioProvider struct {
	*storageAdapter.BaseProvider
}

// NewMinioProvider creates a new MinioProvider.
func NewMinioProvider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return &MinioProvider{BaseProvider: storageAdapter.NewBaseProvider(cfg, ProviderType, NewMinioAdapter)}
}
