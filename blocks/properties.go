package blocks

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// Ref is the value of the property: address of the child key or the null marker.
type Ref struct {
	Address BlockAddress
	Null    bool
}

// NullRef is the null marker.
var NullRef = Ref{Null: true}

// AddressRef returns reference to the address.
func AddressRef(address BlockAddress) Ref {
	return Ref{Address: address}
}

// Properties is the property map of object and array envelopes. Insertion order is preserved.
type Properties struct {
	names []string
	refs  map[string]Ref
}

// NewProperties returns empty property map.
func NewProperties() *Properties {
	return &Properties{
		refs: map[string]Ref{},
	}
}

// Len returns the number of properties.
func (p *Properties) Len() int {
	return len(p.names)
}

// Get returns reference stored under name.
func (p *Properties) Get(name string) (Ref, bool) {
	ref, exists := p.refs[name]
	return ref, exists
}

// Set stores reference under name. Position of the existing name is kept.
func (p *Properties) Set(name string, ref Ref) {
	if _, exists := p.refs[name]; !exists {
		p.names = append(p.names, name)
	}
	p.refs[name] = ref
}

// Delete removes name from the map. It reports whether name existed.
func (p *Properties) Delete(name string) bool {
	if _, exists := p.refs[name]; !exists {
		return false
	}
	delete(p.refs, name)
	for i, n := range p.names {
		if n == name {
			p.names = append(p.names[:i], p.names[i+1:]...)
			break
		}
	}
	return true
}

// Names returns the names in insertion order.
func (p *Properties) Names() []string {
	return append([]string(nil), p.names...)
}

// Clone returns a copy of the map.
func (p *Properties) Clone() *Properties {
	c := &Properties{
		names: append([]string(nil), p.names...),
		refs:  make(map[string]Ref, len(p.refs)),
	}
	for k, v := range p.refs {
		c.refs[k] = v
	}
	return c
}

// MarshalJSON encodes the map as JSON object keeping insertion order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 16*len(p.names)+2))
	buf.WriteByte('{')
	for i, name := range p.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		n, err := json.Marshal(name)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		buf.Write(n)
		buf.WriteByte(':')
		ref := p.refs[name]
		if ref.Null {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatUint(uint64(ref.Address), 10))
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the map from JSON object keeping the order of keys.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(ErrDecodeFailure, err.Error())
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Wrapf(ErrDecodeFailure, "properties must be an object, got %v", tok)
	}

	props := NewProperties()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(ErrDecodeFailure, err.Error())
		}
		name, ok := tok.(string)
		if !ok {
			return errors.Wrapf(ErrDecodeFailure, "invalid property name %v", tok)
		}

		tok, err = dec.Token()
		if err != nil {
			return errors.Wrap(ErrDecodeFailure, err.Error())
		}
		switch v := tok.(type) {
		case nil:
			props.Set(name, NullRef)
		case json.Number:
			address, err := strconv.ParseUint(v.String(), 10, 64)
			if err != nil {
				return errors.Wrapf(ErrDecodeFailure, "invalid address %q of property %q", v, name)
			}
			props.Set(name, AddressRef(BlockAddress(address)))
		default:
			return errors.Wrapf(ErrDecodeFailure, "invalid value %v of property %q", tok, name)
		}
	}
	if _, err := dec.Token(); err != nil {
		return errors.Wrap(ErrDecodeFailure, err.Error())
	}

	*p = *props
	return nil
}
