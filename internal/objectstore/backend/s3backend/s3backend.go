// Package s3backend provides a Backend implementation storing objects
// 1:1 by ObjectId as S3 keys in a single configured bucket.
package s3backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/kenneth/zerostash-objectstore/internal/objectstore"
)

// Config configures the S3-compatible backend. A single Endpoint field
// covers every S3-compatible provider; there is no provider catalogue —
// the object layer only needs one endpoint at a time.
type Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Backend implements objectstore.Backend against a single S3-compatible
// bucket/prefix, using the AWS SDK v2 client construction pattern.
type Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// New builds an S3-backed Backend from cfg.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &Backend{
		client: s3.NewFromConfig(awsCfg, opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (b *Backend) key(id objectstore.ObjectId) string {
	return b.prefix + id.String()
}

// ReadObject fetches exactly BlockSize bytes; a missing key surfaces as a
// Backend error per spec.md §6.
func (b *Backend) ReadObject(ctx context.Context, id objectstore.ObjectId) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, objectstore.ErrBackendMissing(id)
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil, objectstore.ErrBackendMissing(id)
		}
		return nil, fmt.Errorf("s3 get object %s: %w", id, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3 object body %s: %w", id, err)
	}
	return data, nil
}

func (b *Backend) WriteObject(ctx context.Context, id objectstore.ObjectId, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %w", id, err)
	}
	return nil
}

func (b *Backend) DeleteObject(ctx context.Context, id objectstore.ObjectId) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object %s: %w", id, err)
	}
	return nil
}
