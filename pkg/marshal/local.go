package marshal

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
)

// localTag marks a local handle so it is never mistaken for an envelope.
const localTag byte = 0xF0

// Releaser is implemented by marshallers that hold state for every written
// representation. Release is called once data is no longer stored anywhere.
type Releaser interface {
	Release(data []byte)
}

// LocalMarshaller keeps values in process memory and writes only an opaque
// handle. Every non-nil value is marshallable and Read returns the object
// that was written, so it only makes sense for a single node with the
// in-memory backend and marshalling enforcement off.
type LocalMarshaller struct {
	next   atomic.Uint64
	values sync.Map // uint64 -> any
}

// NewLocal creates an empty local marshaller.
func NewLocal() *LocalMarshaller {
	return &LocalMarshaller{}
}

// IsMarshallable implements Marshaller.
func (m *LocalMarshaller) IsMarshallable(value any) bool {
	return value != nil
}

// Write implements Marshaller.
func (m *LocalMarshaller) Write(value any) ([]byte, error) {
	if value == nil {
		return nil, sesserrors.NewInvalidArgumentError("cannot marshal nil value")
	}
	handle := m.next.Add(1)
	m.values.Store(handle, value)
	return binary.AppendUvarint([]byte{localTag}, handle), nil
}

// Read implements Marshaller.
func (m *LocalMarshaller) Read(data []byte) (any, error) {
	handle, err := parseLocalHandle(data)
	if err != nil {
		return nil, err
	}
	value, ok := m.values.Load(handle)
	if !ok {
		return nil, sesserrors.NewInvalidSerializedFormError(
			fmt.Sprintf("unknown local handle %d", handle), nil)
	}
	return value, nil
}

// Release implements Releaser.
func (m *LocalMarshaller) Release(data []byte) {
	if handle, err := parseLocalHandle(data); err == nil {
		m.values.Delete(handle)
	}
}

// Len returns the number of values currently held.
func (m *LocalMarshaller) Len() int {
	n := 0
	m.values.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func parseLocalHandle(data []byte) (uint64, error) {
	if len(data) < 2 || data[0] != localTag {
		return 0, sesserrors.NewInvalidSerializedFormError("not a local handle", nil)
	}
	handle, n := binary.Uvarint(data[1:])
	if n <= 0 || n != len(data)-1 {
		return 0, sesserrors.NewInvalidSerializedFormError("malformed local handle", nil)
	}
	return handle, nil
}
