package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
)

// Metadata is the access metadata of a session.
type Metadata struct {
	CreationTime        time.Time     `json:"creation_time"`
	LastAccessedTime    time.Time     `json:"last_accessed_time"`
	MaxInactiveInterval time.Duration `json:"max_inactive_interval"`
}

// IsNew reports whether the session has not been accessed since creation.
func (m Metadata) IsNew() bool {
	return !m.LastAccessedTime.After(m.CreationTime)
}

// IsExpired reports whether the session has been inactive for longer than
// MaxInactiveInterval at now. A zero interval never expires.
func (m Metadata) IsExpired(now time.Time) bool {
	if m.MaxInactiveInterval <= 0 {
		return false
	}
	return now.Sub(m.LastAccessedTime) > m.MaxInactiveInterval
}

// EncodeMetadata writes m as three unsigned varints: creation time in epoch
// seconds, seconds between creation and last access, and the maximum
// inactive interval in seconds.
//
// A last access less than a second after creation is written as one second,
// otherwise the session would read back as new.
func EncodeMetadata(m Metadata) []byte {
	accessed := max(int64(m.LastAccessedTime.Sub(m.CreationTime)/time.Second), 1)
	buf := make([]byte, 0, 3*binary.MaxVarintLen64)
	buf = binary.AppendUvarint(buf, uint64(max(m.CreationTime.Unix(), 0)))
	buf = binary.AppendUvarint(buf, uint64(accessed))
	buf = binary.AppendUvarint(buf, uint64(max(int64(m.MaxInactiveInterval/time.Second), 0)))
	return buf
}

// DecodeMetadata is the inverse of EncodeMetadata.
func DecodeMetadata(data []byte) (Metadata, error) {
	var fields [3]uint64
	for i := range fields {
		v, n := binary.Uvarint(data)
		if n <= 0 {
			return Metadata{}, sesserrors.NewInvalidSerializedFormError(
				fmt.Sprintf("truncated session metadata (field %d)", i), nil)
		}
		fields[i] = v
		data = data[n:]
	}
	created := time.Unix(int64(fields[0]), 0)
	return Metadata{
		CreationTime:        created,
		LastAccessedTime:    created.Add(time.Duration(fields[1]) * time.Second),
		MaxInactiveInterval: time.Duration(fields[2]) * time.Second,
	}, nil
}

// MetadataTable persists session Metadata.
type MetadataTable struct {
	ops Ops
}

// NewMetadataTable creates a metadata table over ops.
func NewMetadataTable(ops Ops) *MetadataTable {
	return &MetadataTable{ops: ops}
}

// Load returns the metadata of a session. The boolean is false when the
// session does not exist.
func (t *MetadataTable) Load(ctx context.Context, sessionID string) (Metadata, bool, error) {
	data, err := t.ops.Get(ctx, MetadataKey(sessionID))
	if err != nil || data == nil {
		return Metadata{}, false, err
	}
	m, err := DecodeMetadata(data)
	if err != nil {
		return Metadata{}, false, err
	}
	return m, true, nil
}

// Store persists m.
func (t *MetadataTable) Store(ctx context.Context, sessionID string, m Metadata) error {
	_, err := t.ops.Put(ctx, MetadataKey(sessionID), EncodeMetadata(m), ForceSynchronous)
	return err
}

// Remove deletes the metadata of a session.
func (t *MetadataTable) Remove(ctx context.Context, sessionID string) error {
	_, err := t.ops.Delete(ctx, MetadataKey(sessionID), ForceSynchronous)
	return err
}
