package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"listencheck.org/internal/config"
)

// presignedURLTTL is how long issued GET URLs stay valid.
const presignedURLTTL = time.Hour

// presignAPI is the subset of s3.PresignClient the resolver needs.
type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*s3PresignedRequest, error)
}

// getAPI is the subset of s3.Client the resolver needs.
type getAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3PresignedRequest mirrors the presigner's result; only the URL is used.
type s3PresignedRequest struct {
	URL string
}

type realPresigner struct {
	pc *s3.PresignClient
}

func (p realPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*s3PresignedRequest, error) {
	req, err := p.pc.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &s3PresignedRequest{URL: req.URL}, nil
}

// S3 resolves keys against a bucket, issuing presigned GET URLs. It also
// speaks to S3-compatible backends (LocalStack, MinIO) via a custom endpoint
// with path-style addressing.
type S3 struct {
	bucket  string
	client  getAPI
	presign presignAPI
}

// NewS3 builds the process-wide S3 resolver from configuration.
func NewS3(ctx context.Context, cfg *config.Config) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			// Path-style addressing is required for LocalStack.
			o.UsePathStyle = true
		}
	})

	return &S3{
		bucket:  cfg.S3Bucket,
		client:  client,
		presign: realPresigner{pc: s3.NewPresignClient(client)},
	}, nil
}

func (r *S3) AudioURL(ctx context.Context, key string) (string, error) {
	return r.presignGet(ctx, key)
}

func (r *S3) TextURL(ctx context.Context, key string) (string, error) {
	return r.presignGet(ctx, key)
}

func (r *S3) presignGet(ctx context.Context, key string) (string, error) {
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignedURLTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// TextContent streams the object body and decodes it to a string. A missing
// key yields ("", false, nil).
func (r *S3) TextContent(ctx context.Context, key string) (string, bool, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", false, nil
		}
		return "", false, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}
