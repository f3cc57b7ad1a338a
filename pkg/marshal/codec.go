package marshal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
	xdr "github.com/rasky/go-xdr/xdr2"
)

// Codec encodes the payload of an attribute value.
type Codec interface {
	// Name returns the configuration name of the codec.
	Name() string

	// Marshal encodes v.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into the value pointed to by v.
	Unmarshal(data []byte, v any) error
}

// typeChecker is implemented by codecs that cannot encode every Go type.
type typeChecker interface {
	Supports(t reflect.Type) bool
}

const (
	codecIDCBOR byte = 1
	codecIDJSON byte = 2
	codecIDXDR  byte = 3
)

// Codec names accepted by CodecByName.
const (
	CodecCBOR = "cbor"
	CodecJSON = "json"
	CodecXDR  = "xdr"

	// CodecLocal names the in-process LocalMarshaller, which has no codec.
	CodecLocal = "local"
)

// CodecByName returns the built-in codec with the given name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case CodecCBOR, "":
		return CBOR(), nil
	case CodecJSON:
		return JSON(), nil
	case CodecXDR:
		return XDR(), nil
	default:
		return nil, fmt.Errorf("unknown codec: %q", name)
	}
}

func codecID(c Codec) (byte, error) {
	switch c.Name() {
	case CodecCBOR:
		return codecIDCBOR, nil
	case CodecJSON:
		return codecIDJSON, nil
	case CodecXDR:
		return codecIDXDR, nil
	default:
		return 0, fmt.Errorf("codec %q has no envelope identifier", c.Name())
	}
}

func codecFromID(id byte) (Codec, error) {
	switch id {
	case codecIDCBOR:
		return CBOR(), nil
	case codecIDJSON:
		return JSON(), nil
	case codecIDXDR:
		return XDR(), nil
	default:
		return nil, fmt.Errorf("unknown codec identifier %d", id)
	}
}

// ============================================================================
// CBOR
// ============================================================================

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var defaultCBOR = newCBORCodec()

func newCBORCodec() *cborCodec {
	// Core Deterministic Encoding: identical values produce identical bytes.
	encOptions := cbor.CoreDetEncOptions()
	// Keep sub-second precision and zone offset for time.Time attributes.
	encOptions.Time = cbor.TimeRFC3339Nano
	enc, err := encOptions.EncMode()
	if err != nil {
		panic("marshal: CBOR encoder initialization failed: " + err.Error())
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("marshal: CBOR decoder initialization failed: " + err.Error())
	}
	return &cborCodec{enc: enc, dec: dec}
}

// CBOR returns the CBOR codec (the default).
func CBOR() Codec { return defaultCBOR }

func (c *cborCodec) Name() string                       { return CodecCBOR }
func (c *cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c *cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

// ============================================================================
// JSON
// ============================================================================

type jsonCodec struct{}

// JSON returns the JSON codec.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) Name() string                       { return CodecJSON }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Supports(t reflect.Type) bool {
	return jsonSupports(t, make(map[reflect.Type]bool))
}

func jsonSupports(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return true
	}
	seen[t] = true
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return false
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return jsonSupports(t.Elem(), seen)
	case reflect.Map:
		return jsonSupports(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.IsExported() && !jsonSupports(f.Type, seen) {
				return false
			}
		}
	}
	return true
}

// ============================================================================
// XDR
// ============================================================================

type xdrCodec struct{}

// XDR returns the XDR (RFC 4506) codec. XDR has no representation for maps,
// interfaces or complex numbers, so values containing them are reported as
// not marshallable.
func XDR() Codec { return xdrCodec{} }

func (xdrCodec) Name() string { return CodecXDR }

func (xdrCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (xdrCodec) Unmarshal(data []byte, v any) error {
	_, err := xdr.Unmarshal(bytes.NewReader(data), v)
	return err
}

var timeType = reflect.TypeOf(time.Time{})

func (xdrCodec) Supports(t reflect.Type) bool {
	return xdrSupports(t, make(map[reflect.Type]bool))
}

func xdrSupports(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return true
	}
	seen[t] = true
	if t == timeType {
		return false
	}
	switch t.Kind() {
	case reflect.Map, reflect.Interface, reflect.Chan, reflect.Func,
		reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return false
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return xdrSupports(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.IsExported() && !xdrSupports(f.Type, seen) {
				return false
			}
		}
	}
	return true
}
