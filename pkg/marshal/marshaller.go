package marshal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
)

// Marshaller converts application attribute values to and from their stored
// representation.
type Marshaller interface {
	// IsMarshallable reports whether value can be written.
	IsMarshallable(value any) bool

	// Write converts value to its stored representation.
	Write(value any) ([]byte, error)

	// Read converts a stored representation back to a value.
	Read(data []byte) (any, error)
}

const envelopeVersion byte = 1

// envelopeHeaderSize is version + compression + codec.
const envelopeHeaderSize = 3

// Option configures a TypedMarshaller.
type Option func(*TypedMarshaller)

// WithRegistry sets the type registry. Defaults to NewRegistry().
func WithRegistry(registry *Registry) Option {
	return func(m *TypedMarshaller) {
		m.registry = registry
	}
}

// WithCompression compresses payloads of at least threshold bytes.
func WithCompression(compression Compression, threshold int) Option {
	return func(m *TypedMarshaller) {
		m.compression = compression
		m.threshold = threshold
	}
}

// TypedMarshaller is the registry-backed Marshaller used by the session
// store. It is safe for concurrent use.
type TypedMarshaller struct {
	codec       Codec
	codecID     byte
	registry    *Registry
	compression Compression
	threshold   int
}

// New creates a marshaller writing with codec.
func New(codec Codec, opts ...Option) (*TypedMarshaller, error) {
	if codec == nil {
		codec = CBOR()
	}
	id, err := codecID(codec)
	if err != nil {
		return nil, err
	}
	m := &TypedMarshaller{
		codec:       codec,
		codecID:     id,
		compression: CompressionNone,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = NewRegistry()
	}
	return m, nil
}

// Registry returns the type registry used by the marshaller.
func (m *TypedMarshaller) Registry() *Registry {
	return m.registry
}

// IsMarshallable reports whether the type of value is registered and
// encodable by the configured codec.
func (m *TypedMarshaller) IsMarshallable(value any) bool {
	if value == nil {
		return false
	}
	t := reflect.TypeOf(value)
	if _, ok := m.registry.Lookup(t); !ok {
		return false
	}
	if checker, ok := m.codec.(typeChecker); ok {
		return checker.Supports(t)
	}
	return true
}

// Write encodes value inside the envelope described in the package docs.
func (m *TypedMarshaller) Write(value any) ([]byte, error) {
	if value == nil {
		return nil, sesserrors.NewInvalidArgumentError("cannot marshal nil value")
	}
	t := reflect.TypeOf(value)
	if !m.IsMarshallable(value) {
		return nil, sesserrors.NewNotSerializableError(t.String())
	}
	name, _ := m.registry.Lookup(t)

	// Pointers are stored by their target so every codec sees plain values.
	target := value
	if t.Kind() == reflect.Pointer {
		rv := reflect.ValueOf(value)
		if rv.IsNil() {
			return nil, sesserrors.NewInvalidArgumentError("cannot marshal nil pointer")
		}
		target = rv.Elem().Interface()
	}

	payload, err := m.codec.Marshal(target)
	if err != nil {
		return nil, &sesserrors.StoreError{
			Code:    sesserrors.ErrNotSerializable,
			Message: fmt.Sprintf("failed to encode %s", t),
			Err:     err,
		}
	}

	compressionID := compressionIDNone
	if id := m.compression.id(); id != compressionIDNone && len(payload) >= m.threshold {
		compressed, err := compress(id, payload)
		switch {
		case err == nil:
			payload = compressed
			compressionID = id
		case !errors.Is(err, errIncompressible):
			return nil, err
		}
	}

	out := make([]byte, 0, envelopeHeaderSize+binary.MaxVarintLen64+len(name)+len(payload))
	out = append(out, envelopeVersion, compressionID, m.codecID)
	out = binary.AppendUvarint(out, uint64(len(name)))
	out = append(out, name...)
	out = append(out, payload...)
	return out, nil
}

// Read decodes an envelope produced by Write, whatever codec or compression
// it was written with.
func (m *TypedMarshaller) Read(data []byte) (any, error) {
	if len(data) < envelopeHeaderSize+1 {
		return nil, sesserrors.NewInvalidSerializedFormError("envelope too short", nil)
	}
	if data[0] != envelopeVersion {
		return nil, sesserrors.NewInvalidSerializedFormError(fmt.Sprintf("unsupported envelope version %d", data[0]), nil)
	}
	compressionID, id := data[1], data[2]

	codec, err := codecFromID(id)
	if err != nil {
		return nil, sesserrors.NewInvalidSerializedFormError("unknown codec", err)
	}

	rest := data[envelopeHeaderSize:]
	nameLen, n := binary.Uvarint(rest)
	if n <= 0 || uint64(len(rest)-n) < nameLen {
		return nil, sesserrors.NewInvalidSerializedFormError("invalid type name length", nil)
	}
	name := string(rest[n : n+int(nameLen)])
	payload := rest[n+int(nameLen):]

	t, ok := m.registry.Resolve(name)
	if !ok {
		return nil, sesserrors.NewInvalidSerializedFormError(fmt.Sprintf("unregistered type %q", name), nil)
	}

	if compressionID != compressionIDNone {
		payload, err = decompress(compressionID, payload)
		if err != nil {
			return nil, sesserrors.NewInvalidSerializedFormError("failed to decompress payload", err)
		}
	}

	isPointer := t.Kind() == reflect.Pointer
	target := t
	if isPointer {
		target = t.Elem()
	}
	ptr := reflect.New(target)
	if err := codec.Unmarshal(payload, ptr.Interface()); err != nil {
		return nil, sesserrors.NewInvalidSerializedFormError(fmt.Sprintf("failed to decode %s", t), err)
	}
	if isPointer {
		return ptr.Interface(), nil
	}
	return ptr.Elem().Interface(), nil
}
