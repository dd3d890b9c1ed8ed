// Package minio stores reports in a MinIO (or any S3 compatible) bucket.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/de-tools/airregi-sync/pkg/store/blob"
)

type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Store struct {
	client ObjectPutter
	prefix string
}

func New(client ObjectPutter, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func Factory(_ context.Context, cfg blob.Config) (blob.Store, error) {
	mc := cfg.Minio
	client, err := minio.New(mc.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(mc.AccessKey, mc.SecretKey, ""),
		Secure: mc.UseSSL,
		Region: mc.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return New(client, cfg.Prefix), nil
}

func (s *Store) Store(ctx context.Context, name string, data []byte, bucket string) (string, error) {
	key := blob.ObjectKey(s.prefix, name)
	info, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: blob.ContentType,
	})
	if err != nil {
		return "", blob.Unavailable("minio put "+key, err)
	}
	return info.Bucket + "/" + info.Key, nil
}
