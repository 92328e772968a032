// Package s3 persists visit counts as a single JSON object in an
// S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectName is the name of the snapshot object under the key prefix.
const ObjectName = "counts.json"

// ObjectAPI is the subset of *s3.Client the store uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3CounterStoreConfig configures an S3CounterStore.
type S3CounterStoreConfig struct {
	Client    ObjectAPI
	Bucket    string
	KeyPrefix string
}

// S3CounterStore keeps the whole snapshot in one object.
//
// Every Save rewrites the object. That is fine for the sizes involved (one
// entry per served path) and keeps Load to a single GET.
type S3CounterStore struct {
	client ObjectAPI
	bucket string
	key    string
}

// snapshot is the object's JSON layout.
type snapshot struct {
	SavedAt time.Time         `json:"saved_at"`
	Counts  map[string]uint64 `json:"counts"`
}

// NewS3CounterStore creates a store writing to bucket/prefix/counts.json.
func NewS3CounterStore(ctx context.Context, config S3CounterStoreConfig) (*S3CounterStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.Client == nil {
		return nil, fmt.Errorf("S3 counter store: client is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("S3 counter store: bucket is required")
	}

	return &S3CounterStore{
		client: config.Client,
		bucket: config.Bucket,
		key:    path.Join(config.KeyPrefix, ObjectName),
	}, nil
}

// Key returns the object key the snapshot lives under.
func (s *S3CounterStore) Key() string {
	return s.key
}

// Load fetches the snapshot. A missing object is an empty store.
func (s *S3CounterStore) Load(ctx context.Context) (map[string]uint64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return make(map[string]uint64), nil
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, s.key, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode s3://%s/%s: %w", s.bucket, s.key, err)
	}
	if snap.Counts == nil {
		snap.Counts = make(map[string]uint64)
	}
	return snap.Counts, nil
}

// Save uploads counts as the new snapshot.
func (s *S3CounterStore) Save(ctx context.Context, counts map[string]uint64) error {
	data, err := json.Marshal(snapshot{
		SavedAt: time.Now().UTC(),
		Counts:  counts,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (s *S3CounterStore) Close() error {
	return nil
}
