package commands

import (
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/require"

	"github.com/outofforest/graphstore"
	"github.com/outofforest/graphstore/blocks"
	"github.com/outofforest/graphstore/objectstore"
)

func TestParseValue(t *testing.T) {
	requireT := require.New(t)

	v, err := parseValue(`{b: 1.5, a: [true, "x", null]}`)
	requireT.NoError(err)
	requireT.Equal(objectstore.Object{
		{Name: "b", Value: 1.5},
		{Name: "a", Value: []any{true, "x", nil}},
	}, v)

	v, err = parseValue(`2.5`)
	requireT.NoError(err)
	requireT.Equal(2.5, v)

	_, err = parseValue(`{a: [}`)
	requireT.Error(err)
}

func TestSetGetPath(t *testing.T) {
	requireT := require.New(t)

	s, err := graphstore.Open(t.TempDir())
	requireT.NoError(err)
	defer func() {
		requireT.NoError(s.Close())
	}()

	value, err := parseValue(`{users: [{name: alice}, {name: bob}]}`)
	requireT.NoError(err)
	h, name, err := walkParent(s, splitPath("db"))
	requireT.NoError(err)
	requireT.Equal("db", name)
	requireT.NoError(h.Set(name, value))

	v, err := walk(s, splitPath("db.users.1.name"))
	requireT.NoError(err)
	requireT.Equal("bob", v)

	v, err = walk(s, splitPath("db.missing"))
	requireT.NoError(err)
	requireT.Equal(objectstore.Undefined, v)

	_, err = walk(s, splitPath("db.users.1.name.x"))
	requireT.Error(err)

	// Path may start at the raw address.
	users, err := walk(s, splitPath("db.users"))
	requireT.NoError(err)
	address := users.(*objectstore.Handle).Address()
	v, err = walk(s, splitPath(fmt.Sprintf("@%d.0.name", address)))
	requireT.NoError(err)
	requireT.Equal("alice", v)

	v, err = walk(s, splitPath(fmt.Sprintf("@%d", address)))
	requireT.NoError(err)
	requireT.Same(users, v)

	_, err = walk(s, splitPath("@x.name"))
	requireT.Error(err)

	keys, err := listKeys(s, "db.users.0")
	requireT.NoError(err)
	requireT.Equal([]string{"name"}, keys)

	_, err = listKeys(s, "db.users.0.name")
	requireT.ErrorContains(err, "db.users.0.name is not an object")

	requireT.NoError(s.Root().Set("self", s.Root()))
	requireT.NoError(users.(*objectstore.Handle).Append(objectstore.Undefined))

	out, err := render(s.Root())
	requireT.NoError(err)

	var rendered map[string]any
	requireT.NoError(yaml.Unmarshal(out, &rendered))
	requireT.Equal(map[string]any{
		"db": map[string]any{
			"users": []any{
				map[string]any{"name": "alice"},
				map[string]any{"name": "bob"},
				undefinedText,
			},
		},
		"self": "<ref 0>",
	}, rendered)
}

func TestHistoryLines(t *testing.T) {
	requireT := require.New(t)

	noColor := color.NoColor
	color.NoColor = true
	defer func() {
		color.NoColor = noColor
	}()

	requireT.Equal([]string{"  2", "* 5", "  8"}, historyLines([]blocks.BlockAddress{2, 5, 8}, 6))
	requireT.Equal([]string{"  2", "  5"}, historyLines([]blocks.BlockAddress{2, 5}, 1))
}
