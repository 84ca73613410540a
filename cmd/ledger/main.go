// Command ledger computes ledger reports once and prints them as JSON.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&statsCmd{}, "reports")
	commander.Register(&issuesCmd{}, "reports")
	commander.Register(&bucketsCmd{}, "reports")
	commander.Register(&requestCmd{}, "worker")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
