// Command lots tracks tax lots of securities: acquisitions, sales with a choice
// of lot selection, wash-sale checks and corporate actions.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/etnz/taxlots/cmd"
	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	cmd.Register(subcommands.DefaultCommander)

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
