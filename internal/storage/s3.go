package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/joseph-ayodele/tender-checklist/internal/common"
)

// S3Config configures an S3 or S3-compatible (MinIO, R2) bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // empty uses AWS endpoint resolution
	AccessKeyID     string // empty uses the default credential chain
	SecretAccessKey string
	ForcePathStyle  bool
}

type S3Store struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Bucket == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "S3_BUCKET is required", common.ErrInvalidConfiguration)
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("get %s: %w", key, common.ErrNotFound)
		}
		s.logger.Error("storage.get.error", "backend", "s3", "bucket", s.bucket, "key", key, "error", err)
		return nil, fmt.Errorf("get %s: %w: %v", key, common.ErrStorage, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			s.logger.Warn("storage.get.body_close_error", "key", key, "error", err)
		}
	}(out.Body)

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	s.logger.Debug("storage.get", "backend", "s3", "key", key, "bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds())
	return data, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	start := time.Now()
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		s.logger.Error("storage.put.error", "backend", "s3", "bucket", s.bucket, "key", key, "error", err)
		return fmt.Errorf("put %s: %w: %v", key, common.ErrStorage, err)
	}
	s.logger.Debug("storage.put", "backend", "s3", "key", key, "bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds())
	return nil
}
