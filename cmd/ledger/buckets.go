package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"ledger/internal/cli"
	"ledger/internal/stats"
)

type bucketsCmd struct {
	period string
}

func (*bucketsCmd) Name() string     { return "buckets" }
func (*bucketsCmd) Synopsis() string { return "print the bucket dates reports are computed at" }
func (*bucketsCmd) Usage() string {
	return `ledger buckets [-period <period>]

  Prints the anchor dates, oldest first, from the earliest transaction
  through the first anchor after today.
`
}

func (c *bucketsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "period", "monthly", "Bucket period (weekly, monthly, yearly)")
}

func (c *bucketsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	period, err := stats.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	err = withApp(ctx, func(app *cli.App) (any, error) {
		return app.Reports.Buckets(ctx, period)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
