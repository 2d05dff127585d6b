package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the S3 driver.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string // Custom endpoint for S3 compatible services; enables path-style addressing
	PublicURL string // Base URL objects are served from; derived from the bucket when empty
	AccessKey string
	SecretKey string
}

// ObjectAPI is the subset of the S3 client the driver uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Storage struct {
	client    ObjectAPI
	bucket    string
	publicURL string
}

// NewS3Storage loads the default AWS credential chain and builds a client for opts.
func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StorageWithClient(client, opts), nil
}

// NewS3StorageWithClient wraps an existing client.
func NewS3StorageWithClient(client ObjectAPI, opts S3Options) *S3Storage {
	public := opts.PublicURL
	if public == "" {
		switch {
		case opts.Endpoint != "":
			public = strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
		case opts.Region != "":
			public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
		default:
			public = fmt.Sprintf("https://%s.s3.amazonaws.com", opts.Bucket)
		}
	}
	return &S3Storage{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(public, "/"),
	}
}

func (s *S3Storage) Put(ctx context.Context, collection string, content io.Reader) (string, error) {
	key, data, err := newObjectName(collection, content)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(data)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return key, nil
}

// Delete removes the object. S3 reports success for missing keys.
func (s *S3Storage) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func (s *S3Storage) URL(path string) string {
	return s.publicURL + "/" + strings.TrimLeft(path, "/")
}
