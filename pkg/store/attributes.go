package store

import (
	"context"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
)

// AttributeCache stores attribute values keyed by (session id, attribute id).
//
// Every mutation is issued with ForceSynchronous so that once Put or Remove
// returns, a read from any node observes it.
type AttributeCache struct {
	ops Ops
}

// NewAttributeCache creates an attribute cache over ops, which is either a
// Backend or a Txn.
func NewAttributeCache(ops Ops) *AttributeCache {
	return &AttributeCache{ops: ops}
}

// Get returns the stored bytes, or nil when the attribute is absent.
func (c *AttributeCache) Get(ctx context.Context, key AttributeKey) ([]byte, error) {
	return c.ops.Get(ctx, key.String())
}

// Put stores value and returns the previous bytes, or nil.
func (c *AttributeCache) Put(ctx context.Context, key AttributeKey, value []byte) ([]byte, error) {
	if len(value) == 0 {
		return nil, sesserrors.NewInvalidArgumentError("attribute value must not be empty")
	}
	return c.ops.Put(ctx, key.String(), value, ForceSynchronous)
}

// Remove deletes the entry and returns the previous bytes, or nil.
func (c *AttributeCache) Remove(ctx context.Context, key AttributeKey) ([]byte, error) {
	return c.ops.Delete(ctx, key.String(), ForceSynchronous)
}
