package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/erp/ledger/internal/domain/retention"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeObjectClient struct {
	puts      []*s3.PutObjectInput
	bodies    [][]byte
	headErr   error
	created   bool
	createErr error
}

func (f *fakeObjectClient) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectClient) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeObjectClient) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = true
	return &s3.CreateBucketOutput{}, f.createErr
}

func TestNewS3ArchiveSink_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ArchiveSink(context.Background(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3ArchiveSink(context.Background(), &config.StorageConfig{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("valid config creates sink", func(t *testing.T) {
		sink, err := NewS3ArchiveSink(context.Background(), &config.StorageConfig{
			Bucket:          "ledger-archive",
			Region:          "us-east-1",
			Endpoint:        "http://localhost:9000",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			UsePathStyle:    true,
			Prefix:          "/retention/",
		})
		require.NoError(t, err)
		assert.Equal(t, "retention", sink.prefix)
	})
}

func TestS3ArchiveSink_Archive(t *testing.T) {
	client := &fakeObjectClient{}
	sink := newS3ArchiveSink(client, "ledger-archive", "retention", WithLogger(zaptest.NewLogger(t)))

	tenantID := uuid.New()
	policyID := uuid.New()
	archivedAt := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	batch := retention.ArchiveBatch{
		TenantID:   tenantID,
		PolicyID:   policyID,
		Table:      "audit_logs",
		ArchivedAt: archivedAt,
		Records: []retention.Record{
			{"id": "a1", "action": "POST"},
			{"id": "a2", "action": "VOID"},
		},
	}

	require.NoError(t, sink.Archive(context.Background(), batch))
	require.Len(t, client.puts, 1)

	put := client.puts[0]
	assert.Equal(t, "ledger-archive", *put.Bucket)
	assert.True(t, strings.HasPrefix(*put.Key, "retention/"+tenantID.String()+"/audit_logs/2024/06/30/"+policyID.String()))
	assert.True(t, strings.HasSuffix(*put.Key, ".ndjson.zst"))
	assert.Equal(t, "2", put.Metadata["record-count"])

	dec, err := zstd.NewReader(bytes.NewReader(client.bodies[0]))
	require.NoError(t, err)
	defer dec.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(dec)
	for scanner.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		lines = append(lines, row)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)
	assert.Equal(t, "a1", lines[0]["id"])
	assert.Equal(t, "VOID", lines[1]["action"])
}

func TestS3ArchiveSink_Archive_EmptyBatch(t *testing.T) {
	client := &fakeObjectClient{}
	sink := newS3ArchiveSink(client, "ledger-archive", "")

	require.NoError(t, sink.Archive(context.Background(), retention.ArchiveBatch{Table: "audit_logs"}))
	assert.Empty(t, client.puts)
}

func TestS3ArchiveSink_EnsureBucket(t *testing.T) {
	t.Run("existing bucket", func(t *testing.T) {
		client := &fakeObjectClient{}
		require.NoError(t, newS3ArchiveSink(client, "b", "").EnsureBucket(context.Background()))
		assert.False(t, client.created)
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		client := &fakeObjectClient{headErr: &types.NotFound{}}
		require.NoError(t, newS3ArchiveSink(client, "b", "").EnsureBucket(context.Background()))
		assert.True(t, client.created)
	})

	t.Run("other errors are returned", func(t *testing.T) {
		client := &fakeObjectClient{headErr: errors.New("access denied")}
		err := newS3ArchiveSink(client, "b", "").EnsureBucket(context.Background())
		require.Error(t, err)
		assert.False(t, client.created)
	})
}
