package commands

import (
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/outofforest/graphstore"
)

type setConfig struct {
	*cli.Command
	main *mainConfig
}

// SetCommand returns the set subcommand.
func SetCommand(main *mainConfig) *cli.Command {
	cfg := &setConfig{main: main}
	return cli.NewCommandAt(&cfg.Command, "set").
		WithSynopsis("set <dir> <path> <value> - Store YAML or JSON value at the dot path").
		WithRun(cfg.run)
}

func (cfg *setConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 3 {
		return fmt.Errorf("%w: usage: graphstore set <dir> <path> <value>", cli.ErrUsage)
	}

	value, err := parseValue(args[2])
	if err != nil {
		return err
	}

	return cfg.main.withStore(args[0], func(s *graphstore.Store) error {
		h, name, err := walkParent(s, splitPath(args[1]))
		if err != nil {
			return err
		}
		return h.Set(name, value)
	})
}
