package objectstore

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/outofforest/graphstore/blocks"
)

const lengthProperty = "length"

// Descriptor describes the property of the handle.
type Descriptor struct {
	Name         string
	Value        any
	Enumerable   bool
	Writable     bool
	Configurable bool
}

// Cycle is returned by Export in place of the handle already being exported higher in the path.
type Cycle struct {
	Address blocks.BlockAddress
}

// Handle is the accessor of the object or array stored under the key.
type Handle struct {
	store    *Store
	key      blocks.BlockAddress
	envelope blocks.Envelope
}

// Store returns the store the handle belongs to.
func (h *Handle) Store() *Store {
	return h.store
}

// Address returns the key of the handle.
func (h *Handle) Address() blocks.BlockAddress {
	return h.key
}

// Kind returns blocks.ObjectType or blocks.ArrayType.
func (h *Handle) Kind() blocks.Type {
	return h.envelope.Type
}

// Get returns the value of the property. Undefined is returned if property does not exist.
func (h *Handle) Get(name string) (any, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if err := h.store.checkOpen(); err != nil {
		return nil, err
	}
	return h.get(name)
}

// Set stores the value under the property and persists the handle.
func (h *Handle) Set(name string, value any) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if err := h.store.checkOpen(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}
	if err := h.store.validate(value); err != nil {
		return err
	}
	return h.set(name, value, h.store.newWriter())
}

// Has returns true if property exists. Value is not materialized.
func (h *Handle) Has(name string) (bool, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if err := h.store.checkOpen(); err != nil {
		return false, err
	}
	_, exists := h.envelope.Properties.Get(name)
	return exists, nil
}

// Delete removes the property. Nothing is written if property does not exist.
func (h *Handle) Delete(name string) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if err := h.store.checkOpen(); err != nil {
		return err
	}
	if _, exists := h.envelope.Properties.Get(name); !exists {
		return nil
	}

	e := h.cloneEnvelope()
	e.Properties.Delete(name)
	return h.persist(e)
}

// Keys returns property names in insertion order.
func (h *Handle) Keys() ([]string, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if err := h.store.checkOpen(); err != nil {
		return nil, err
	}
	return h.envelope.Properties.Names(), nil
}

// Describe returns descriptor of the property. False is returned if property does not exist.
func (h *Handle) Describe(name string) (Descriptor, bool, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if err := h.store.checkOpen(); err != nil {
		return Descriptor{}, false, err
	}

	isLength := h.envelope.Type == blocks.ArrayType && name == lengthProperty
	if _, exists := h.envelope.Properties.Get(name); !exists && !isLength {
		return Descriptor{}, false, nil
	}

	v, err := h.get(name)
	if err != nil {
		return Descriptor{}, false, err
	}
	return Descriptor{
		Name:         name,
		Value:        v,
		Enumerable:   !isLength,
		Writable:     true,
		Configurable: !isLength,
	}, true, nil
}

// Len returns the length of the array or the number of object properties.
func (h *Handle) Len() (int, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if err := h.store.checkOpen(); err != nil {
		return 0, err
	}
	if h.envelope.Type == blocks.ArrayType {
		return int(h.envelope.Length), nil
	}
	return h.envelope.Properties.Len(), nil
}

// Index returns the array element.
func (h *Handle) Index(i int) (any, error) {
	return h.Get(strconv.Itoa(i))
}

// SetIndex sets the array element.
func (h *Handle) SetIndex(i int, value any) error {
	return h.Set(strconv.Itoa(i), value)
}

// Append adds values at the end of the array.
func (h *Handle) Append(values ...any) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if err := h.store.checkOpen(); err != nil {
		return err
	}
	if h.envelope.Type != blocks.ArrayType {
		return errors.Errorf("append to %s handle %d", h.envelope.Type, h.key)
	}
	for _, v := range values {
		if err := h.store.validate(v); err != nil {
			return err
		}
	}

	w := h.store.newWriter()
	for _, v := range values {
		if err := h.set(strconv.FormatUint(h.envelope.Length, 10), v, w); err != nil {
			return err
		}
	}
	return nil
}

// Export copies the graph reachable from the handle into plain values. Objects are exported as Object,
// arrays as []any. Handle met again on the path being exported is replaced by Cycle.
func (h *Handle) Export() (any, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if err := h.store.checkOpen(); err != nil {
		return nil, err
	}
	return h.export(map[*Handle]bool{})
}

func (h *Handle) get(name string) (any, error) {
	if h.envelope.Type == blocks.ArrayType && name == lengthProperty {
		return float64(h.envelope.Length), nil
	}

	ref, exists := h.envelope.Properties.Get(name)
	switch {
	case !exists:
		return Undefined, nil
	case ref.Null:
		return nil, nil
	default:
		return h.store.resolve(ref.Address)
	}
}

func (h *Handle) set(name string, value any, w *writer) error {
	if h.envelope.Type == blocks.ArrayType && name == lengthProperty {
		return h.setLength(value)
	}

	ref, err := w.write(value)
	if err != nil {
		return err
	}

	length := h.envelope.Length
	if h.envelope.Type == blocks.ArrayType {
		if index, ok := arrayIndex(name); ok && index >= length {
			length = index + 1
		}
	}

	if current, exists := h.envelope.Properties.Get(name); exists && current == ref && length == h.envelope.Length {
		return nil
	}

	e := h.cloneEnvelope()
	e.Properties.Set(name, ref)
	e.Length = length
	return h.persist(e)
}

// setLength updates the stored length only. Elements above the length stay stored.
func (h *Handle) setLength(value any) error {
	n, ok := toNumber(value)
	if !ok || n < 0 || n != math.Trunc(n) || n > math.MaxUint32 {
		return errors.Wrapf(ErrInvalidArrayLength, "%v", value)
	}

	e := h.cloneEnvelope()
	e.Length = uint64(n)
	return h.persist(e)
}

func (h *Handle) cloneEnvelope() blocks.Envelope {
	e := h.envelope
	e.Properties = e.Properties.Clone()
	return e
}

func (h *Handle) persist(e blocks.Envelope) error {
	if _, err := h.store.keys.Set(h.key, e); err != nil {
		return err
	}
	h.envelope = e
	return nil
}

func (h *Handle) export(path map[*Handle]bool) (any, error) {
	if path[h] {
		return Cycle{Address: h.key}, nil
	}
	path[h] = true
	defer delete(path, h)

	exportValue := func(name string) (any, error) {
		v, err := h.get(name)
		if err != nil {
			return nil, err
		}
		if child, ok := v.(*Handle); ok {
			return child.export(path)
		}
		return v, nil
	}

	if h.envelope.Type == blocks.ArrayType {
		out := make([]any, 0, h.envelope.Length)
		for i := uint64(0); i < h.envelope.Length; i++ {
			v, err := exportValue(strconv.FormatUint(i, 10))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	names := h.envelope.Properties.Names()
	out := make(Object, 0, len(names))
	for _, name := range names {
		v, err := exportValue(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Field{Name: name, Value: v})
	}
	return out, nil
}

func arrayIndex(name string) (uint64, bool) {
	index, err := strconv.ParseUint(name, 10, 32)
	if err != nil || index == math.MaxUint32 || strconv.FormatUint(index, 10) != name {
		return 0, false
	}
	return index, true
}
