package commands

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/scott-cotton/cli"
	"go.uber.org/zap"

	"github.com/outofforest/graphstore"
	"github.com/outofforest/graphstore/blocks"
)

const usageText = `graphstore - inspect and edit the object graph stored in a directory

Usage:
  graphstore [-version N] get <dir> [path]          Print the value at the dot path as YAML
  graphstore set <dir> <path> <value>               Store YAML or JSON value at the dot path
  graphstore del <dir> <path>                       Delete the property at the dot path
  graphstore [-version N] keys <dir> [path]         List property names
  graphstore [-version N] history <dir> <key>       Print the version chain of the key

Examples:
  graphstore set ./db counter 1
  graphstore set ./db users '[{name: alice}, {name: bob}]'
  graphstore get ./db users.1.name
  graphstore -version 12 get ./db
  graphstore history ./db 0
  graphstore get ./db @12.name              # start at the value stored under address 12`

type mainConfig struct {
	Version int  `cli:"name=version desc='snapshot to read at, latest by default'"`
	Verbose bool `cli:"name=v aliases=verbose desc='log store operations to stderr'"`

	Main *cli.Command
}

// Root returns the root command of graphstore.
func Root() *cli.Command {
	cfg := &mainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}

	return cli.NewCommandAt(&cfg.Main, "graphstore").
		WithSynopsis("graphstore [opts] command [opts]").
		WithDescription(usageText).
		WithOpts(opts...).
		WithRun(cfg.run).
		WithSubs(
			GetCommand(cfg),
			SetCommand(cfg),
			DelCommand(cfg),
			KeysCommand(cfg),
			HistoryCommand(cfg),
		)
}

func (cfg *mainConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if cfg.Version < 0 {
		return fmt.Errorf("%w: version must not be negative", cli.ErrUsage)
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

// open opens the store directly. Each command opens one store, so Registry is not needed.
func (cfg *mainConfig) open(dir string) (*graphstore.Store, error) {
	opts := []graphstore.Option{}
	if cfg.Version > 0 {
		opts = append(opts, graphstore.WithVersion(blocks.BlockAddress(cfg.Version)))
	}
	if cfg.Verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts = append(opts, graphstore.WithLogger(log))
	}
	return graphstore.Open(dir, opts...)
}

// withStore opens the store, runs fn and closes the store.
func (cfg *mainConfig) withStore(dir string, fn func(s *graphstore.Store) error) (retErr error) {
	s, err := cfg.open(dir)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}()
	return fn(s)
}
