package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	appConfig "github.com/tanaka-0224/Iverse2/internal/config"
	"github.com/tanaka-0224/Iverse2/internal/metrics"
)

// StorageClient defines the object storage operations used for avatars
type StorageClient interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	PublicURL(key string) string
}

// S3Client wraps the AWS S3 client and implements StorageClient
type S3Client struct {
	client    *s3.Client
	bucket    string
	region    string
	endpoint  string
	publicURL string
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewS3Client creates a new S3 client. An endpoint selects an S3-compatible
// store (MinIO, the hosted backend's storage) with path-style addressing.
func NewS3Client(cfg appConfig.StorageConfig, m *metrics.Metrics, logger *zap.Logger) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	} else if cfg.Endpoint != "" {
		return nil, fmt.Errorf("access key and secret key are required for a custom storage endpoint")
	}

	awsCfg, err := config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		client:    s3Client,
		bucket:    cfg.Bucket,
		region:    region,
		endpoint:  cfg.Endpoint,
		publicURL: cfg.PublicURL,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Upload stores body under key and returns its public URL
func (c *S3Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	start := time.Now()
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})

	status := 200
	if err != nil {
		status = 0
	}
	c.metrics.RecordExternalAPICall("/storage/"+c.bucket, "PUT", status, time.Since(start), err)

	if err != nil {
		c.logger.Warn("Failed to upload object", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to upload file to storage: %w", err)
	}
	return c.PublicURL(key), nil
}

// PublicURL returns the download URL of key
func (c *S3Client) PublicURL(key string) string {
	if c.publicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(c.publicURL, "/"), key)
	}
	if c.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(c.endpoint, "/"), c.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}
