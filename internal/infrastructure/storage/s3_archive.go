// Package storage writes retention archives to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/erp/ledger/internal/domain/retention"
	infraconfig "github.com/erp/ledger/internal/infrastructure/config"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const archiveContentType = "application/zstd"

// objectClient is the subset of the S3 client the archive uses
type objectClient interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3ArchiveSink stores each archive batch as one zstd-compressed NDJSON object.
// Works with AWS S3, MinIO and other S3-compatible stores.
type S3ArchiveSink struct {
	client objectClient
	bucket string
	prefix string
	logger *zap.Logger
}

// S3ArchiveSinkOption is a functional option for configuring S3ArchiveSink
type S3ArchiveSinkOption func(*S3ArchiveSink)

// WithLogger sets a custom logger for S3ArchiveSink
func WithLogger(logger *zap.Logger) S3ArchiveSinkOption {
	return func(s *S3ArchiveSink) {
		s.logger = logger
	}
}

// NewS3ArchiveSink creates a sink from configuration. Without static keys the
// default AWS credential chain is used.
func NewS3ArchiveSink(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3ArchiveSinkOption) (*S3ArchiveSink, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint *string
	if cfg.Endpoint != "" {
		if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
		endpoint = aws.String(cfg.Endpoint)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = endpoint
	})

	return newS3ArchiveSink(client, cfg.Bucket, cfg.Prefix, opts...), nil
}

func newS3ArchiveSink(client objectClient, bucket, prefix string, opts ...S3ArchiveSinkOption) *S3ArchiveSink {
	s := &S3ArchiveSink{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3ArchiveSink) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("creating archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Archive uploads the batch. The object key is unique per policy run.
func (s *S3ArchiveSink) Archive(ctx context.Context, batch retention.ArchiveBatch) error {
	if len(batch.Records) == 0 {
		return nil
	}
	body, err := encodeBatch(batch.Records)
	if err != nil {
		return err
	}

	key := s.objectKey(batch)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(archiveContentType),
		Metadata: map[string]string{
			"tenant-id":    batch.TenantID.String(),
			"policy-id":    batch.PolicyID.String(),
			"source-table": batch.Table,
			"record-count": fmt.Sprint(len(batch.Records)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive %s: %w", key, err)
	}

	s.logger.Info("archive uploaded",
		zap.String("key", key),
		zap.Int("records", len(batch.Records)),
		zap.Int("bytes", len(body)),
	)
	return nil
}

// objectKey lays archives out as prefix/tenant/table/yyyy/mm/dd/policy-unixnano.ndjson.zst
func (s *S3ArchiveSink) objectKey(batch retention.ArchiveBatch) string {
	at := batch.ArchivedAt.UTC()
	name := fmt.Sprintf("%s-%d.ndjson.zst", batch.PolicyID, at.UnixNano())
	return path.Join(s.prefix, batch.TenantID.String(), batch.Table, at.Format("2006/01/02"), name)
}

// encodeBatch writes one JSON object per line and compresses the result
func encodeBatch(records []retention.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	jsonEnc := json.NewEncoder(enc)
	for _, r := range records {
		if err := jsonEnc.Encode(r); err != nil {
			_ = enc.Close()
			return nil, fmt.Errorf("failed to encode archive record: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Ensure S3ArchiveSink implements ArchiveSink
var _ retention.ArchiveSink = (*S3ArchiveSink)(nil)
