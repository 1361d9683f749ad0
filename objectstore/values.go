package objectstore

import (
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/graphstore/blocks"
)

// Field is the named value of an Object.
type Field struct {
	Name  string
	Value any
}

// Object is the object with ordered fields. Fields are written in the order they are listed.
type Object []Field

var objectType = reflect.TypeOf(Object{})

// identity identifies the caller value which may be reached more than once within one write.
type identity struct {
	typ reflect.Type
	ptr uintptr
	len int
}

func identityOf(v reflect.Value) (identity, bool) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		return identity{typ: v.Type(), ptr: v.Pointer()}, true
	case reflect.Slice:
		if v.Len() == 0 {
			return identity{}, false
		}
		return identity{typ: v.Type(), ptr: v.Pointer(), len: v.Len()}, true
	default:
		return identity{}, false
	}
}

// validate checks the whole value tree so unsupported values are rejected before anything is allocated.
func (s *Store) validate(value any) error {
	return s.validateValue(reflect.ValueOf(value), map[identity]bool{})
}

func (s *Store) validateValue(v reflect.Value, visited map[identity]bool) error {
	if !v.IsValid() {
		return nil
	}

	switch x := v.Interface().(type) {
	case *Handle:
		if x != nil && x.store != s {
			return errors.Wrap(ErrUnsupportedValueType, "handle belongs to another store")
		}
		return nil
	case UndefinedValue:
		return nil
	}

	if id, ok := identityOf(v); ok && !v.IsNil() {
		if visited[id] {
			return nil
		}
		visited[id] = true
	}

	switch v.Kind() {
	case reflect.String:
		return validateName(v.String())
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return nil
	case reflect.Float32, reflect.Float64:
		if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.Wrapf(ErrUnsupportedValueType, "number %v", f)
		}
		return nil
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return s.validateValue(v.Elem(), visited)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return errors.Wrapf(ErrUnsupportedValueType, "map key of type %s", v.Type().Key())
		}
		iter := v.MapRange()
		for iter.Next() {
			if err := validateName(iter.Key().String()); err != nil {
				return err
			}
			if err := s.validateValue(iter.Value(), visited); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := s.validateValue(v.Index(i), visited); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		if v.Type() == reflect.TypeOf(Field{}) {
			if err := validateName(v.Field(0).String()); err != nil {
				return err
			}
			return s.validateValue(v.Field(1), visited)
		}
		for _, f := range structFields(v.Type()) {
			if err := s.validateValue(v.Field(f.index), visited); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.Wrapf(ErrUnsupportedValueType, "value of type %s", v.Type())
	}
}

// validateName rejects text which cannot be stored without being altered by the JSON encoding.
func validateName(text string) error {
	if !utf8.ValidString(text) {
		return errors.Wrapf(ErrUnsupportedValueType, "invalid UTF-8 text %q", text)
	}
	return nil
}

type structField struct {
	index int
	name  string
}

// structFields returns exported fields of the struct. Name is taken from the graph tag if present,
// fields tagged with "-" are skipped.
func structFields(t reflect.Type) []structField {
	fields := make([]structField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("graph"); ok {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		fields = append(fields, structField{index: i, name: name})
	}
	return fields
}

func toNumber(value any) (float64, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

func (s *Store) newWriter() *writer {
	return &writer{
		store: s,
		seen:  map[identity]blocks.BlockAddress{},
	}
}

// writer writes caller values into the store. Values reached more than once within one write are written once,
// later occurrences refer to the address allocated for the first one.
type writer struct {
	store *Store
	seen  map[identity]blocks.BlockAddress
}

func (w *writer) write(value any) (blocks.Ref, error) {
	return w.writeValue(reflect.ValueOf(value))
}

func (w *writer) writeValue(v reflect.Value) (blocks.Ref, error) {
	var ids []identity
	for {
		if !v.IsValid() {
			return blocks.NullRef, nil
		}

		switch x := v.Interface().(type) {
		case *Handle:
			if x == nil {
				return blocks.NullRef, nil
			}
			return blocks.AddressRef(x.key), nil
		case UndefinedValue:
			return w.writePrimitive(blocks.NewPrimitive(blocks.UndefinedType, nil), Undefined)
		}

		if v.Kind() != reflect.Interface && v.Kind() != reflect.Pointer {
			break
		}
		if v.IsNil() {
			return blocks.NullRef, nil
		}
		if v.Kind() == reflect.Pointer {
			id, _ := identityOf(v)
			if key, exists := w.seen[id]; exists {
				return blocks.AddressRef(key), nil
			}
			ids = append(ids, id)
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Bool:
		return w.writePrimitive(blocks.NewPrimitive(blocks.BooleanType, v.Bool()), v.Bool())
	case reflect.String:
		return w.writePrimitive(blocks.NewPrimitive(blocks.StringType, v.String()), v.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		n, _ := toNumber(v.Interface())
		return w.writePrimitive(blocks.NewPrimitive(blocks.NumberType, n), n)
	case reflect.Map, reflect.Slice:
		if v.IsNil() {
			return blocks.NullRef, nil
		}
		if id, ok := identityOf(v); ok {
			if key, exists := w.seen[id]; exists {
				return blocks.AddressRef(key), nil
			}
			ids = append(ids, id)
		}
	case reflect.Array, reflect.Struct:
	default:
		return blocks.Ref{}, errors.Wrapf(ErrUnsupportedValueType, "value of type %s", v.Type())
	}

	return w.writeComposite(v, ids)
}

func (w *writer) writePrimitive(e blocks.Envelope, value any) (blocks.Ref, error) {
	key, err := w.store.keys.Allocate()
	if err != nil {
		return blocks.Ref{}, err
	}
	if _, err := w.store.keys.Set(key, e); err != nil {
		return blocks.Ref{}, err
	}
	w.store.cache.Set(key, value)
	return blocks.AddressRef(key), nil
}

func (w *writer) writeComposite(v reflect.Value, ids []identity) (blocks.Ref, error) {
	e := blocks.NewObject()
	if (v.Kind() == reflect.Slice || v.Kind() == reflect.Array) && v.Type() != objectType {
		e = blocks.NewArray()
	}

	key, err := w.store.keys.Allocate()
	if err != nil {
		return blocks.Ref{}, err
	}
	if _, err := w.store.keys.Set(key, e); err != nil {
		return blocks.Ref{}, err
	}
	h := w.store.newHandle(key, e)
	for _, id := range ids {
		w.seen[id] = key
	}

	w.store.log.Debug("Composite written", zap.Uint64("address", uint64(key)), zap.String("type", string(e.Type)),
		zap.Stringer("from", v.Type()))

	switch {
	case v.Type() == objectType:
		for i := 0; i < v.Len(); i++ {
			f := v.Index(i).Interface().(Field)
			if err := h.set(f.Name, f.Value, w); err != nil {
				return blocks.Ref{}, err
			}
		}
	case v.Kind() == reflect.Slice || v.Kind() == reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := h.set(strconv.Itoa(i), v.Index(i).Interface(), w); err != nil {
				return blocks.Ref{}, err
			}
		}
	case v.Kind() == reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return keys[i].String() < keys[j].String()
		})
		for _, k := range keys {
			if err := h.set(k.String(), v.MapIndex(k).Interface(), w); err != nil {
				return blocks.Ref{}, err
			}
		}
	case v.Kind() == reflect.Struct:
		for _, f := range structFields(v.Type()) {
			if err := h.set(f.name, v.Field(f.index).Interface(), w); err != nil {
				return blocks.Ref{}, err
			}
		}
	}

	return blocks.AddressRef(key), nil
}
