package main

import (
	"context"

	"github.com/scott-cotton/cli"

	"github.com/outofforest/graphstore/cmd/graphstore/commands"
)

func main() {
	cli.MainContext(context.Background(), commands.Root())
}
