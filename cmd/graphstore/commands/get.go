package commands

import (
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/outofforest/graphstore"
)

type getConfig struct {
	*cli.Command
	main *mainConfig
}

// GetCommand returns the get subcommand.
func GetCommand(main *mainConfig) *cli.Command {
	cfg := &getConfig{main: main}
	return cli.NewCommandAt(&cfg.Command, "get").
		WithSynopsis("get <dir> [path] - Print the value at the dot path").
		WithRun(cfg.run)
}

func (cfg *getConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: usage: graphstore get <dir> [path]", cli.ErrUsage)
	}

	var path string
	if len(args) == 2 {
		path = args[1]
	}

	return cfg.main.withStore(args[0], func(s *graphstore.Store) error {
		v, err := walk(s, splitPath(path))
		if err != nil {
			return err
		}
		out, err := render(v)
		if err != nil {
			return err
		}
		_, err = cc.Out.Write(out)
		return err
	})
}
