package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for session operations.
const (
	// Session attributes
	AttrSessionID     = "session.id"
	AttrSessionNode   = "session.node"
	AttrTransactional = "session.transactional"
	AttrReadOnly      = "session.read_only"
	AttrPurged        = "session.purged"

	// Attribute-level attributes
	AttrAttributeName = "attribute.name"
	AttrAttributeID   = "attribute.id"
	AttrValueSize     = "attribute.size"
	AttrMutators      = "attribute.mutators"
	AttrFound         = "attribute.found"

	// Client attributes (admin API)
	AttrClientIP = "client.ip"

	// Storage backend attributes
	AttrStoreType = "store.type"
	AttrKey       = "storage.key"
	AttrBucket    = "storage.bucket"
)

// Span names.
// Format: <component>.<operation>
const (
	SpanSessionCreate     = "session.create"
	SpanSessionOpen       = "session.open"
	SpanSessionClose      = "session.close"
	SpanSessionInvalidate = "session.invalidate"
	SpanSessionPurge      = "session.purge"

	SpanAttributeGet    = "attributes.get"
	SpanAttributeSet    = "attributes.set"
	SpanAttributeRemove = "attributes.remove"
	SpanAttributeClose  = "attributes.close"
)

// SessionID returns an attribute for the session identifier.
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// SessionNode returns an attribute for the node serving the session.
func SessionNode(node string) attribute.KeyValue {
	return attribute.String(AttrSessionNode, node)
}

// Transactional returns an attribute for the batch mode.
func Transactional(tx bool) attribute.KeyValue {
	return attribute.Bool(AttrTransactional, tx)
}

// ReadOnly returns an attribute marking a read-only session view.
func ReadOnly(ro bool) attribute.KeyValue {
	return attribute.Bool(AttrReadOnly, ro)
}

// AttributeName returns an attribute for a session attribute name.
func AttributeName(name string) attribute.KeyValue {
	return attribute.String(AttrAttributeName, name)
}

// AttributeID returns an attribute for a session attribute id.
func AttributeID(id int32) attribute.KeyValue {
	return attribute.Int(AttrAttributeID, int(id))
}

// ValueSize returns an attribute for a marshalled value size.
func ValueSize(n int) attribute.KeyValue {
	return attribute.Int(AttrValueSize, n)
}

// Mutators returns an attribute for the number of flushed mutators.
func Mutators(n int) attribute.KeyValue {
	return attribute.Int(AttrMutators, n)
}

// Purged returns an attribute for the number of expired sessions removed.
func Purged(n int) attribute.KeyValue {
	return attribute.Int(AttrPurged, n)
}

// Found returns an attribute telling whether an attribute existed.
func Found(found bool) attribute.KeyValue {
	return attribute.Bool(AttrFound, found)
}

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// StoreType returns an attribute for the backend type.
func StoreType(name string) attribute.KeyValue {
	return attribute.String(AttrStoreType, name)
}

// StorageKey returns an attribute for a backend key.
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Bucket returns an attribute for S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StartSessionSpan starts a span for a session lifecycle operation.
func StartSessionSpan(ctx context.Context, name, sessionID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{SessionID(sessionID)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartAttributeSpan starts a span for an operation on one attribute.
func StartAttributeSpan(ctx context.Context, name, sessionID, attrName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{SessionID(sessionID), AttributeName(attrName)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}
