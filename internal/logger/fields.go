package logger

import (
	"log/slog"
)

// Standard field keys for structured logging. Use them consistently so
// logs can be aggregated and queried across nodes.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Sessions and attributes
	KeySessionID     = "session_id"
	KeyAttribute     = "attribute"    // Attribute name (never the value)
	KeyAttributeID   = "attribute_id" // Attribute id allocated by the name table
	KeyOperation     = "operation"    // get, set, remove, close, invalidate, purge
	KeyNode          = "node"         // Local node name
	KeyTransactional = "transactional"
	KeyCount         = "count"
	KeySize          = "size" // Stored size in bytes

	// Marshalling
	KeyCodec       = "codec"
	KeyCompression = "compression"
	KeyType        = "type" // Registered type name or Go type

	// HTTP
	KeyRequestID = "request_id"
	KeyMethod    = "method"
	KeyPath      = "path"
	KeyStatus    = "status"
	KeyClientIP  = "client_ip"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"

	// Storage backend
	KeyStoreType  = "store_type" // memory, badger, postgres, sql, s3
	KeyBucket     = "bucket"
	KeyKey        = "key"
	KeyPathOnDisk = "db_path"
	KeyAttempt    = "attempt"
)

// SessionID returns a slog.Attr for a session identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Attribute returns a slog.Attr for an attribute name
func Attribute(name string) slog.Attr {
	return slog.String(KeyAttribute, name)
}

// AttributeID returns a slog.Attr for an attribute id
func AttributeID(id int32) slog.Attr {
	return slog.Int(KeyAttributeID, int(id))
}

// Operation returns a slog.Attr for the operation name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Count returns a slog.Attr for a count
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error. A nil error yields an empty Attr,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// StoreType returns a slog.Attr for the backend type
func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}

// Key returns a slog.Attr for a backend key
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}
