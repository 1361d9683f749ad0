package commands

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/scott-cotton/cli"

	"github.com/outofforest/graphstore"
	"github.com/outofforest/graphstore/blocks"
)

type historyConfig struct {
	*cli.Command
	main *mainConfig
}

// HistoryCommand returns the history subcommand.
func HistoryCommand(main *mainConfig) *cli.Command {
	cfg := &historyConfig{main: main}
	return cli.NewCommandAt(&cfg.Command, "history").
		WithSynopsis("history <dir> <key> - Print the version chain of the key").
		WithRun(cfg.run)
}

func (cfg *historyConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: usage: graphstore history <dir> <key>", cli.ErrUsage)
	}
	key, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid key %q", cli.ErrUsage, args[1])
	}

	return cfg.main.withStore(args[0], func(s *graphstore.Store) error {
		history, err := s.History(blocks.BlockAddress(key))
		if err != nil {
			return err
		}
		for _, line := range historyLines(history, s.Snapshot()) {
			fmt.Fprintln(cc.Out, line)
		}
		return nil
	})
}

var (
	currentColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	visibleColor = color.New(color.FgGreen).SprintFunc()
	hiddenColor  = color.New(color.FgHiCyan).SprintFunc()
)

// historyLines formats versions. The version visible at the snapshot is marked,
// versions committed after the snapshot are printed in a different color.
func historyLines(history []blocks.BlockAddress, snapshot blocks.BlockAddress) []string {
	current := -1
	for i, v := range history {
		if v <= snapshot {
			current = i
		}
	}

	lines := make([]string, 0, len(history))
	for i, v := range history {
		text := strconv.FormatUint(uint64(v), 10)
		switch {
		case i == current:
			lines = append(lines, currentColor("* "+text))
		case v <= snapshot:
			lines = append(lines, visibleColor("  "+text))
		default:
			lines = append(lines, hiddenColor("  "+text))
		}
	}
	return lines
}
