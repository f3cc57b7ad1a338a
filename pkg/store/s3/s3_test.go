package s3

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Bucket: "sessions"}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, 5, cfg.MaxRetries)

	assert.Error(t, (&Config{}).Validate())
}

func TestCalculateBackoff(t *testing.T) {
	cfg := Config{
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        50 * time.Millisecond,
		BackoffMultiplier: 2,
	}

	assert.Equal(t, 10*time.Millisecond, cfg.calculateBackoff(0))
	assert.Equal(t, 20*time.Millisecond, cfg.calculateBackoff(1))
	assert.Equal(t, 40*time.Millisecond, cfg.calculateBackoff(2))
	assert.Equal(t, 50*time.Millisecond, cfg.calculateBackoff(3))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		notFound     bool
		retryable    bool
		precondition bool
	}{
		{"Nil", nil, false, false, false},
		{"NoSuchKey", &types.NoSuchKey{}, true, false, false},
		{"NotFound", &types.NotFound{}, true, false, false},
		{"SlowDown", &smithy.GenericAPIError{Code: "SlowDown"}, false, true, false},
		{"InternalError", &smithy.GenericAPIError{Code: "InternalError"}, false, true, false},
		{"PreconditionFailed", &smithy.GenericAPIError{Code: "PreconditionFailed"}, false, false, true},
		{"ConditionalRequestConflict", &smithy.GenericAPIError{Code: "ConditionalRequestConflict"}, false, false, true},
		{"AccessDenied", &smithy.GenericAPIError{Code: "AccessDenied"}, false, false, false},
		{"Canceled", context.Canceled, false, false, false},
		{"Wrapped", fmt.Errorf("get: %w", &types.NoSuchKey{}), true, false, false},
		{"ConnectionReset", errors.New("read: connection reset by peer"), false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, isNotFoundError(tt.err), "isNotFoundError")
			assert.Equal(t, tt.retryable, isRetryableError(tt.err), "isRetryableError")
			assert.Equal(t, tt.precondition, isPreconditionError(tt.err), "isPreconditionError")
		})
	}
}

func TestRetry(t *testing.T) {
	s := &Store{config: Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}}

	t.Run("SucceedsAfterLostRace", func(t *testing.T) {
		calls := 0
		err := s.retry(t.Context(), "put", "a:s1:0", func() error {
			calls++
			if calls < 2 {
				return &smithy.GenericAPIError{Code: "PreconditionFailed"}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("ConflictWhenExhausted", func(t *testing.T) {
		calls := 0
		err := s.retry(t.Context(), "put", "a:s1:0", func() error {
			calls++
			return &smithy.GenericAPIError{Code: "PreconditionFailed"}
		})
		assert.True(t, sesserrors.IsConflictError(err))
		assert.Equal(t, 3, calls)
	})

	t.Run("PermanentErrorNotRetried", func(t *testing.T) {
		calls := 0
		err := s.retry(t.Context(), "get", "a:s1:0", func() error {
			calls++
			return &smithy.GenericAPIError{Code: "AccessDenied"}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestBeginNotSupported(t *testing.T) {
	s := &Store{}
	_, err := s.Begin(t.Context())
	assert.True(t, sesserrors.IsNotSupportedError(err))
	assert.False(t, s.Transactional())
}
