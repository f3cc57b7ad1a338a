// Package s3 implements the session state backend on Amazon S3 (or any
// S3-compatible object store).
//
// Each key is one object. S3 writes are acknowledged only once durable,
// so every write is forced synchronous. Put and Delete read the previous
// object and then write conditionally on its ETag; a lost race is retried.
// The backend has no transactions: Begin returns ErrNotSupported.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/dittosession/internal/logger"
	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

// Store is an S3 implementation of store.Backend.
type Store struct {
	client *s3.Client
	config Config
	closed atomic.Bool
}

// NewClient creates an S3 client for cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return client, nil
}

// New creates the backend and verifies the bucket is reachable. The bucket
// must already exist.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid s3 configuration: %w", err)
	}

	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithClient(ctx, client, cfg)
}

// NewWithClient creates the backend over an existing client.
func NewWithClient(ctx context.Context, client *s3.Client, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid s3 configuration: %w", err)
	}

	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	logger.Info("S3 session store ready",
		logger.KeyBucket, cfg.Bucket,
		"prefix", cfg.KeyPrefix,
		"endpoint", cfg.Endpoint)

	return &Store{client: client, config: cfg}, nil
}

// Name implements store.Backend.
func (s *Store) Name() string { return "s3" }

// Transactional implements store.Backend.
func (s *Store) Transactional() bool { return false }

// Begin implements store.Backend.
func (s *Store) Begin(context.Context) (store.Txn, error) {
	return nil, sesserrors.NewNotSupportedError("s3 transactions")
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return sesserrors.NewClosedError("s3 store")
	}
	return nil
}

func (s *Store) objectKey(key string) string { return s.config.KeyPrefix + key }

// Get implements store.Ops.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.retry(ctx, "get", key, func() error {
		var err error
		value, _, err = s.read(ctx, key)
		return err
	})
	return value, err
}

// Put implements store.Ops.
func (s *Store) Put(ctx context.Context, key string, value []byte, _ ...store.Flag) ([]byte, error) {
	if len(value) == 0 {
		return nil, sesserrors.NewInvalidArgumentError("value must not be empty")
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var prev []byte
	err := s.retry(ctx, "put", key, func() error {
		var (
			etag string
			err  error
		)
		if prev, etag, err = s.read(ctx, key); err != nil {
			return err
		}

		input := &s3.PutObjectInput{
			Bucket:        aws.String(s.config.Bucket),
			Key:           aws.String(s.objectKey(key)),
			Body:          bytes.NewReader(value),
			ContentLength: aws.Int64(int64(len(value))),
			ContentType:   aws.String("application/octet-stream"),
		}
		if prev == nil {
			input.IfNoneMatch = aws.String("*")
		} else {
			input.IfMatch = aws.String(etag)
		}
		_, err = s.client.PutObject(ctx, input)
		return err
	})
	return prev, err
}

// Delete implements store.Ops.
func (s *Store) Delete(ctx context.Context, key string, _ ...store.Flag) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var prev []byte
	err := s.retry(ctx, "delete", key, func() error {
		var (
			etag string
			err  error
		)
		if prev, etag, err = s.read(ctx, key); err != nil || prev == nil {
			return err
		}
		_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket:  aws.String(s.config.Bucket),
			Key:     aws.String(s.objectKey(key)),
			IfMatch: aws.String(etag),
		})
		if isNotFoundError(err) {
			return nil
		}
		return err
	})
	return prev, err
}

// read fetches an object and its ETag. A missing object yields nil.
func (s *Store) read(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if isNotFoundError(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", nil
	}
	return data, aws.ToString(out.ETag), nil
}

// retry runs fn until it succeeds, fails permanently or the attempts are
// exhausted. Lost conditional writes and transient errors are retried.
func (s *Store) retry(ctx context.Context, operation, key string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := s.config.calculateBackoff(attempt - 1)
			logger.Debug("Retrying S3 operation",
				logger.KeyOperation, operation,
				logger.KeyKey, key,
				logger.KeyAttempt, attempt,
				logger.KeyError, err.Error())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !isPreconditionError(err) && !isRetryableError(err) {
			return fmt.Errorf("s3 %s %q: %w", operation, key, err)
		}
	}

	if isPreconditionError(err) {
		return sesserrors.NewConflictError(key, err)
	}
	return sesserrors.NewUnavailableError(fmt.Sprintf("s3 %s failed after %d attempts", operation, s.config.MaxRetries+1), err)
}

// Scan implements store.Backend. S3 lists keys in UTF-8 byte order.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.Bucket),
		Prefix: aws.String(s.objectKey(prefix)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list %q: %w", prefix, err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)[len(s.config.KeyPrefix):]

			var value []byte
			err := s.retry(ctx, "get", key, func() error {
				var err error
				value, _, err = s.read(ctx, key)
				return err
			})
			if err != nil {
				return err
			}
			// Deleted between list and read.
			if value == nil {
				continue
			}
			if err := fn(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Healthcheck implements store.Backend.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.config.Bucket)})
	if err != nil {
		return sesserrors.NewUnavailableError("s3 bucket not reachable", err)
	}
	return nil
}

// Close implements store.Backend. The client holds no resources.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}
