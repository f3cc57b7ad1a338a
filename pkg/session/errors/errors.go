// Package errors provides error types and error codes shared by the session
// attribute layers. This is a leaf package with no internal dependencies so it
// can be imported by the marshaller, the store backends and the attribute
// view without causing circular imports.
//
// Import graph: errors <- marshal <- store <- attributes <- session
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents the type of error that occurred.
type ErrorCode int

const (
	// ErrNotFound indicates the requested entry does not exist.
	ErrNotFound ErrorCode = iota + 1

	// ErrInvalidAttribute indicates an attribute value was rejected before
	// any store mutation took place.
	ErrInvalidAttribute

	// ErrNotSerializable indicates the marshaller cannot store a value of
	// the given type.
	ErrNotSerializable

	// ErrInvalidSerializedForm indicates stored bytes could not be decoded.
	ErrInvalidSerializedForm

	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument

	// ErrConflict indicates a concurrent modification aborted the operation.
	ErrConflict

	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable

	// ErrNotSupported indicates the operation is not supported by the backend.
	ErrNotSupported

	// ErrClosed indicates the store, transaction or view was already closed.
	ErrClosed
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrNotFound:
		return "NotFound"
	case ErrInvalidAttribute:
		return "InvalidAttribute"
	case ErrNotSerializable:
		return "NotSerializable"
	case ErrInvalidSerializedForm:
		return "InvalidSerializedForm"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrConflict:
		return "Conflict"
	case ErrUnavailable:
		return "Unavailable"
	case ErrNotSupported:
		return "NotSupported"
	case ErrClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// StoreError represents a session store error with an error code.
type StoreError struct {
	Code    ErrorCode
	Message string
	// Key is the attribute name or store key the error refers to, if any.
	Key string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg = fmt.Sprintf("%s (key: %s)", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// ============================================================================
// Factory Functions
// ============================================================================

// NewNotFoundError creates a NotFound error.
func NewNotFoundError(key, resourceType string) *StoreError {
	return &StoreError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resourceType),
		Key:     key,
	}
}

// NewNotSerializableError creates a NotSerializable error for the given type name.
func NewNotSerializableError(typeName string) *StoreError {
	return &StoreError{
		Code:    ErrNotSerializable,
		Message: fmt.Sprintf("type %s is not serializable", typeName),
	}
}

// NewInvalidAttributeError creates an InvalidAttribute error for the named
// attribute wrapping cause.
func NewInvalidAttributeError(name string, cause error) *StoreError {
	return &StoreError{
		Code:    ErrInvalidAttribute,
		Message: "invalid attribute value",
		Key:     name,
		Err:     cause,
	}
}

// NewInvalidSerializedFormError creates an InvalidSerializedForm error.
func NewInvalidSerializedFormError(message string, cause error) *StoreError {
	return &StoreError{
		Code:    ErrInvalidSerializedForm,
		Message: message,
		Err:     cause,
	}
}

// NewInvalidArgumentError creates an InvalidArgument error.
func NewInvalidArgumentError(message string) *StoreError {
	return &StoreError{
		Code:    ErrInvalidArgument,
		Message: message,
	}
}

// NewConflictError creates a Conflict error.
func NewConflictError(key string, cause error) *StoreError {
	return &StoreError{
		Code:    ErrConflict,
		Message: "concurrent modification",
		Key:     key,
		Err:     cause,
	}
}

// NewUnavailableError creates an Unavailable error.
func NewUnavailableError(message string, cause error) *StoreError {
	return &StoreError{
		Code:    ErrUnavailable,
		Message: message,
		Err:     cause,
	}
}

// NewNotSupportedError creates a NotSupported error.
func NewNotSupportedError(operation string) *StoreError {
	return &StoreError{
		Code:    ErrNotSupported,
		Message: fmt.Sprintf("%s not supported", operation),
	}
}

// NewClosedError creates a Closed error.
func NewClosedError(resource string) *StoreError {
	return &StoreError{
		Code:    ErrClosed,
		Message: fmt.Sprintf("%s is closed", resource),
	}
}

// ============================================================================
// Error Type Checking Helpers
// ============================================================================

// CodeOf returns the code of the first StoreError in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	var storeErr *StoreError
	if stderrors.As(err, &storeErr) {
		return storeErr.Code
	}
	return 0
}

// hasCode reports whether any StoreError in err's chain carries code.
func hasCode(err error, code ErrorCode) bool {
	for err != nil {
		var storeErr *StoreError
		if !stderrors.As(err, &storeErr) {
			return false
		}
		if storeErr.Code == code {
			return true
		}
		err = storeErr.Err
	}
	return false
}

// IsNotFoundError returns true if the error is a NotFound error.
func IsNotFoundError(err error) bool {
	return hasCode(err, ErrNotFound)
}

// IsInvalidAttributeError returns true if the error rejected an attribute value.
func IsInvalidAttributeError(err error) bool {
	return hasCode(err, ErrInvalidAttribute)
}

// IsNotSerializableError returns true if a NotSerializable error is in the chain.
func IsNotSerializableError(err error) bool {
	return hasCode(err, ErrNotSerializable)
}

// IsInvalidSerializedFormError returns true if stored bytes could not be decoded.
func IsInvalidSerializedFormError(err error) bool {
	return hasCode(err, ErrInvalidSerializedForm)
}

// IsConflictError returns true if the error is a concurrent modification.
func IsConflictError(err error) bool {
	return hasCode(err, ErrConflict)
}

// IsNotSupportedError returns true if the error is a NotSupported error.
func IsNotSupportedError(err error) bool {
	return hasCode(err, ErrNotSupported)
}

// IsClosedError returns true if the error is a Closed error.
func IsClosedError(err error) bool {
	return hasCode(err, ErrClosed)
}
