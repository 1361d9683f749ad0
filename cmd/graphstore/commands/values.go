package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"

	"github.com/outofforest/graphstore"
	"github.com/outofforest/graphstore/blocks"
	"github.com/outofforest/graphstore/objectstore"
)

// undefinedText is printed for undefined values.
const undefinedText = "<undefined>"

func splitPath(path string) []string {
	if path == "" || path == "." {
		return nil
	}
	return strings.Split(strings.Trim(path, "."), ".")
}

// walk follows the dot path starting at the root. Path starting with "@N" starts at the value stored
// under address N.
func walk(s *graphstore.Store, path []string) (any, error) {
	var v any = s.Root()
	if len(path) > 0 && strings.HasPrefix(path[0], "@") {
		address, err := strconv.ParseUint(path[0][1:], 10, 64)
		if err != nil {
			return nil, errors.Errorf("invalid address %q", path[0])
		}
		v, err = s.Resolve(blocks.BlockAddress(address))
		if err != nil {
			return nil, err
		}
		path = path[1:]
	}

	for i, name := range path {
		h, ok := v.(*objectstore.Handle)
		if !ok {
			return nil, errors.Errorf("%s is not an object", strings.Join(path[:i], "."))
		}
		var err error
		v, err = h.Get(name)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// walkParent returns the handle holding the last element of the path and the name of that element.
func walkParent(s *graphstore.Store, path []string) (*objectstore.Handle, string, error) {
	if len(path) == 0 {
		return nil, "", errors.New("path is empty")
	}
	v, err := walk(s, path[:len(path)-1])
	if err != nil {
		return nil, "", err
	}
	h, ok := v.(*objectstore.Handle)
	if !ok {
		return nil, "", errors.Errorf("%s is not an object", strings.Join(path[:len(path)-1], "."))
	}
	return h, path[len(path)-1], nil
}

// parseValue parses YAML or JSON text into the value accepted by the store. Mapping order is preserved.
func parseValue(text string) (any, error) {
	var v any
	if err := yaml.UnmarshalWithOptions([]byte(text), &v, yaml.UseOrderedMap()); err != nil {
		return nil, errors.WithStack(err)
	}
	return fromYAML(v), nil
}

func fromYAML(v any) any {
	switch x := v.(type) {
	case yaml.MapSlice:
		obj := make(objectstore.Object, 0, len(x))
		for _, item := range x {
			obj = append(obj, objectstore.Field{Name: fmt.Sprint(item.Key), Value: fromYAML(item.Value)})
		}
		return obj
	case []any:
		out := make([]any, 0, len(x))
		for _, e := range x {
			out = append(out, fromYAML(e))
		}
		return out
	default:
		return v
	}
}

// toYAML converts exported value into the form printed as YAML.
func toYAML(v any) any {
	switch x := v.(type) {
	case objectstore.Object:
		out := make(yaml.MapSlice, 0, len(x))
		for _, f := range x {
			out = append(out, yaml.MapItem{Key: f.Name, Value: toYAML(f.Value)})
		}
		return out
	case []any:
		out := make([]any, 0, len(x))
		for _, e := range x {
			out = append(out, toYAML(e))
		}
		return out
	case objectstore.Cycle:
		return fmt.Sprintf("<ref %d>", x.Address)
	case objectstore.UndefinedValue:
		return undefinedText
	default:
		return v
	}
}

// render returns the YAML text of the value, materializing handles.
func render(v any) ([]byte, error) {
	if h, ok := v.(*objectstore.Handle); ok {
		var err error
		v, err = h.Export()
		if err != nil {
			return nil, err
		}
	}
	b, err := yaml.Marshal(toYAML(v))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}
