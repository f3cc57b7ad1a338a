package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittosession/pkg/session/errors"
)

func TestMetadata_EncodeDecode(t *testing.T) {
	created := time.Unix(1700000000, 0)

	tests := []struct {
		name         string
		lastAccessed time.Duration
		wantAccessed time.Duration
	}{
		{"never accessed", 0, time.Second},
		{"sub-second access", 300 * time.Millisecond, time.Second},
		{"whole seconds", 2 * time.Minute, 2 * time.Minute},
		{"truncated", 2*time.Second + 900*time.Millisecond, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Metadata{
				CreationTime:        created,
				LastAccessedTime:    created.Add(tt.lastAccessed),
				MaxInactiveInterval: 15 * time.Minute,
			}

			got, err := DecodeMetadata(EncodeMetadata(m))
			require.NoError(t, err)
			assert.True(t, got.CreationTime.Equal(created))
			assert.Equal(t, tt.wantAccessed, got.LastAccessedTime.Sub(got.CreationTime))
			assert.Equal(t, 15*time.Minute, got.MaxInactiveInterval)
			assert.False(t, got.IsNew())
		})
	}
}

func TestDecodeMetadata_Truncated(t *testing.T) {
	data := EncodeMetadata(Metadata{CreationTime: time.Unix(1700000000, 0)})

	_, err := DecodeMetadata(data[:len(data)-1])
	require.Error(t, err)
	assert.True(t, errors.IsInvalidSerializedFormError(err))
}

func TestMetadata_IsExpired(t *testing.T) {
	now := time.Now()
	m := Metadata{
		CreationTime:        now.Add(-time.Hour),
		LastAccessedTime:    now.Add(-10 * time.Minute),
		MaxInactiveInterval: 5 * time.Minute,
	}
	assert.True(t, m.IsExpired(now))

	m.MaxInactiveInterval = 20 * time.Minute
	assert.False(t, m.IsExpired(now))

	m.MaxInactiveInterval = 0
	assert.False(t, m.IsExpired(now), "zero interval never expires")
}

func TestMetadata_IsNew(t *testing.T) {
	now := time.Now()
	assert.True(t, Metadata{CreationTime: now, LastAccessedTime: now}.IsNew())
	assert.False(t, Metadata{CreationTime: now, LastAccessedTime: now.Add(time.Second)}.IsNew())
}
