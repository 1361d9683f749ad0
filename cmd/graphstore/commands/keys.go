package commands

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/scott-cotton/cli"

	"github.com/outofforest/graphstore"
	"github.com/outofforest/graphstore/objectstore"
)

type keysConfig struct {
	*cli.Command
	main *mainConfig
}

// KeysCommand returns the keys subcommand.
func KeysCommand(main *mainConfig) *cli.Command {
	cfg := &keysConfig{main: main}
	return cli.NewCommandAt(&cfg.Command, "keys").
		WithAliases("ls").
		WithSynopsis("keys <dir> [path] - List property names").
		WithRun(cfg.run)
}

func (cfg *keysConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: usage: graphstore keys <dir> [path]", cli.ErrUsage)
	}

	var path string
	if len(args) == 2 {
		path = args[1]
	}

	return cfg.main.withStore(args[0], func(s *graphstore.Store) error {
		keys, err := listKeys(s, path)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(cc.Out, k)
		}
		return nil
	})
}

// listKeys returns property names of the object at the dot path.
func listKeys(s *graphstore.Store, path string) ([]string, error) {
	v, err := walk(s, splitPath(path))
	if err != nil {
		return nil, err
	}
	h, ok := v.(*objectstore.Handle)
	if !ok {
		return nil, errors.Errorf("%s is not an object", path)
	}
	return h.Keys()
}
