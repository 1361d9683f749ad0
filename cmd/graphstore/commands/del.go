package commands

import (
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/outofforest/graphstore"
)

type delConfig struct {
	*cli.Command
	main *mainConfig
}

// DelCommand returns the del subcommand.
func DelCommand(main *mainConfig) *cli.Command {
	cfg := &delConfig{main: main}
	return cli.NewCommandAt(&cfg.Command, "del").
		WithAliases("rm").
		WithSynopsis("del <dir> <path> - Delete the property at the dot path").
		WithRun(cfg.run)
}

func (cfg *delConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: usage: graphstore del <dir> <path>", cli.ErrUsage)
	}

	return cfg.main.withStore(args[0], func(s *graphstore.Store) error {
		h, name, err := walkParent(s, splitPath(args[1]))
		if err != nil {
			return err
		}
		return h.Delete(name)
	})
}
