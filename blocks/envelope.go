package blocks

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Type is the type tag of the envelope.
type Type string

// Envelope types.
const (
	NumberType    Type = "number"
	BooleanType   Type = "boolean"
	StringType    Type = "string"
	UndefinedType Type = "undefined"
	NullType      Type = "null"
	ArrayType     Type = "array"
	ObjectType    Type = "object"
)

// Envelope is the decoded content of the value block.
type Envelope struct {
	Type Type

	// Value is float64, bool or string for number, boolean and string types, nil otherwise.
	Value any

	// Length is the explicit length of the array.
	Length uint64

	// Properties is the property map of arrays and objects.
	Properties *Properties
}

// NewPrimitive returns envelope of primitive value.
func NewPrimitive(t Type, value any) Envelope {
	return Envelope{Type: t, Value: value}
}

// NewObject returns empty object envelope.
func NewObject() Envelope {
	return Envelope{Type: ObjectType, Properties: NewProperties()}
}

// NewArray returns empty array envelope.
func NewArray() Envelope {
	return Envelope{Type: ArrayType, Properties: NewProperties()}
}

type wireEnvelope struct {
	Type       Type            `json:"type"`
	Value      json.RawMessage `json:"value,omitempty"`
	Length     *uint64         `json:"length,omitempty"`
	Properties *Properties     `json:"properties,omitempty"`
}

type record struct {
	Data json.RawMessage `json:"data"`
}

// MarshalJSON encodes the envelope.
func (e Envelope) MarshalJSON() ([]byte, error) {
	w := wireEnvelope{Type: e.Type}
	switch e.Type {
	case NumberType, BooleanType, StringType:
		if !validScalar(e.Type, e.Value) {
			return nil, errors.Errorf("value %#v does not match type %s", e.Value, e.Type)
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		w.Value = v
	case UndefinedType, NullType:
	case ArrayType:
		length := e.Length
		w.Length = &length
		w.Properties = e.properties()
	case ObjectType:
		w.Properties = e.properties()
	default:
		return nil, errors.Errorf("unknown envelope type %q", e.Type)
	}

	b, err := json.Marshal(w)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}

// UnmarshalJSON decodes the envelope.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.Wrap(ErrDecodeFailure, err.Error())
	}

	decoded := Envelope{Type: w.Type}
	switch w.Type {
	case NumberType:
		var v float64
		if err := unmarshalValue(w.Value, &v); err != nil {
			return err
		}
		decoded.Value = v
	case BooleanType:
		var v bool
		if err := unmarshalValue(w.Value, &v); err != nil {
			return err
		}
		decoded.Value = v
	case StringType:
		var v string
		if err := unmarshalValue(w.Value, &v); err != nil {
			return err
		}
		decoded.Value = v
	case UndefinedType, NullType:
	case ArrayType, ObjectType:
		decoded.Properties = w.Properties
		if decoded.Properties == nil {
			decoded.Properties = NewProperties()
		}
		if w.Type == ArrayType && w.Length != nil {
			decoded.Length = *w.Length
		}
	default:
		return errors.Wrapf(ErrDecodeFailure, "unknown envelope type %q", w.Type)
	}

	*e = decoded
	return nil
}

func (e Envelope) properties() *Properties {
	if e.Properties == nil {
		return NewProperties()
	}
	return e.Properties
}

// EncodeEnvelope encodes the envelope as block payload.
func EncodeEnvelope(e Envelope) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return encodeRecord(data)
}

// DecodeEnvelope decodes the envelope from block payload.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	data, err := decodeRecord(payload)
	if err != nil {
		return Envelope{}, err
	}
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		if errors.Is(err, ErrDecodeFailure) {
			return Envelope{}, err
		}
		return Envelope{}, errors.Wrap(ErrDecodeFailure, err.Error())
	}
	return e, nil
}

func encodeRecord(data json.RawMessage) ([]byte, error) {
	b, err := json.Marshal(record{Data: data})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}

func decodeRecord(payload []byte) (json.RawMessage, error) {
	var r record
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, errors.Wrap(ErrDecodeFailure, err.Error())
	}
	if len(r.Data) == 0 {
		return nil, errors.Wrap(ErrDecodeFailure, "record has no data")
	}
	return r.Data, nil
}

func unmarshalValue(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.Wrap(ErrDecodeFailure, "primitive envelope has no value")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(ErrDecodeFailure, err.Error())
	}
	return nil
}

func validScalar(t Type, v any) bool {
	switch v.(type) {
	case float64:
		return t == NumberType
	case bool:
		return t == BooleanType
	case string:
		return t == StringType
	default:
		return false
	}
}
