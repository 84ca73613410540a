package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"ledger/internal/cli"
)

type issuesCmd struct{}

func (*issuesCmd) Name() string     { return "issues" }
func (*issuesCmd) Synopsis() string { return "list data-quality issues of the ledger" }
func (*issuesCmd) Usage() string {
	return `ledger issues

  Lists missing balances, transfers without a balance and missed
  repeating transfers, most recent first.
`
}

func (*issuesCmd) SetFlags(*flag.FlagSet) {}

func (*issuesCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	err := withApp(ctx, func(app *cli.App) (any, error) {
		return app.Reports.Issues(ctx)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
