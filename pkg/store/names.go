package store

import (
	"context"
	"fmt"

	"github.com/marmos91/dittosession/pkg/marshal"
	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
)

// NameRecord is the persisted form of a session's attribute name table.
//
// Sequence is the highest id ever allocated for the session. It is kept
// even when the name that used it has been removed, so a node loading the
// record never hands that id out again.
type NameRecord struct {
	Sequence int32            `cbor:"1,keyasint"`
	Names    map[string]int32 `cbor:"2,keyasint"`
}

// NameTable persists NameRecords.
type NameTable struct {
	ops Ops
}

// NewNameTable creates a name table over ops.
func NewNameTable(ops Ops) *NameTable {
	return &NameTable{ops: ops}
}

// Load returns the record of a session, or nil when none was stored.
func (t *NameTable) Load(ctx context.Context, sessionID string) (*NameRecord, error) {
	data, err := t.ops.Get(ctx, NamesKey(sessionID))
	if err != nil || data == nil {
		return nil, err
	}
	var record NameRecord
	if err := marshal.CBOR().Unmarshal(data, &record); err != nil {
		return nil, sesserrors.NewInvalidSerializedFormError(
			fmt.Sprintf("corrupt name table for session %s", sessionID), err)
	}
	if record.Names == nil {
		record.Names = make(map[string]int32)
	}
	return &record, nil
}

// Store persists record with ForceSynchronous.
func (t *NameTable) Store(ctx context.Context, sessionID string, record *NameRecord) error {
	data, err := marshal.CBOR().Marshal(record)
	if err != nil {
		return fmt.Errorf("encode name table: %w", err)
	}
	_, err = t.ops.Put(ctx, NamesKey(sessionID), data, ForceSynchronous)
	return err
}

// Remove deletes the record of a session.
func (t *NameTable) Remove(ctx context.Context, sessionID string) error {
	_, err := t.ops.Delete(ctx, NamesKey(sessionID), ForceSynchronous)
	return err
}
