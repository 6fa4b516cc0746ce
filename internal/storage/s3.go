package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"packetboat/pkg/logging"
)

// ObjectStore is the narrow contract the report pipeline needs from object
// storage. Listings are bounded: ListChildPrefixes descends exactly one
// level, ListKeysWithSuffix returns full keys under a prefix.
type ObjectStore interface {
	ListChildPrefixes(ctx context.Context, bucket, parentPrefix string) ([]string, error)
	ListKeysWithSuffix(ctx context.Context, bucket, prefix, suffix string) ([]string, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// S3Config holds configuration for the S3 client
type S3Config struct {
	Region    string // AWS region (default: us-east-1)
	Endpoint  string // Custom endpoint for S3-compatible storage (MinIO, etc.)
	AccessKey string // AWS access key (optional, uses IAM roles if empty)
	SecretKey string // AWS secret key (optional, uses IAM roles if empty)
}

// S3Client implements ObjectStore against AWS S3 or any S3-compatible store.
type S3Client struct {
	client *s3.Client
	logger logging.Logger
}

// NewS3Client creates a new S3 client with the given configuration.
func NewS3Client(cfg S3Config, logger logging.Logger) (*S3Client, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	// Use explicit credentials if provided, otherwise use default credential chain (IAM roles)
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO and most S3-compatible storage
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	logger.WithFields(logging.Fields{
		"region":   cfg.Region,
		"endpoint": cfg.Endpoint,
	}).Info("S3 client initialized")

	return &S3Client{
		client: client,
		logger: logger,
	}, nil
}

// ListChildPrefixes returns the immediate child prefixes of parentPrefix,
// bounded by the "/" delimiter. An empty result is a normal outcome for a
// partition that simply does not exist.
func (c *S3Client) ListChildPrefixes(ctx context.Context, bucket, parentPrefix string) ([]string, error) {
	var prefixes []string

	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(parentPrefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list child prefixes under %s: %w", parentPrefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			if cp.Prefix != nil {
				prefixes = append(prefixes, *cp.Prefix)
			}
		}
	}

	return prefixes, nil
}

// ListKeysWithSuffix returns all object keys under prefix whose name ends
// with suffix, matched case-insensitively.
func (c *S3Client) ListKeysWithSuffix(ctx context.Context, bucket, prefix, suffix string) ([]string, error) {
	var keys []string
	lowered := strings.ToLower(suffix)

	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list keys under %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			if strings.HasSuffix(strings.ToLower(*obj.Key), lowered) {
				keys = append(keys, *obj.Key)
			}
		}
	}

	return keys, nil
}

// GetObject reads an object fully into memory.
func (c *S3Client) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}
