// Package s3 stores reports in an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/de-tools/airregi-sync/pkg/store/blob"
)

const DefaultRegion = "ap-northeast-1"

// PutObjectAPI is the part of the S3 client the store needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Store struct {
	client PutObjectAPI
	prefix string
}

func New(client PutObjectAPI, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// LoadConfig resolves AWS settings from the shared config profile.
func LoadConfig(ctx context.Context, cfg blob.S3Config) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithDefaultRegion(DefaultRegion),
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return awsCfg, nil
}

func Factory(ctx context.Context, cfg blob.Config) (blob.Store, error) {
	awsCfg, err := LoadConfig(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})
	return New(client, cfg.Prefix), nil
}

// Store puts data under prefix/name in bucket and returns the object URI.
func (s *Store) Store(ctx context.Context, name string, data []byte, bucket string) (string, error) {
	key := blob.ObjectKey(s.prefix, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(blob.ContentType),
	})
	if err != nil {
		return "", blob.Unavailable("s3 put "+key, err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}
