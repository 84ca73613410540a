package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"ledger/internal/cli"
	"ledger/internal/stats"
)

type statsCmd struct {
	period   string
	category string
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "compute periodic statistics for a report category" }
func (*statsCmd) Usage() string {
	return `ledger stats [-period <period>] -category <category>

  Computes the statistics of a category, one row per period bucket.
  Periods: weekly, monthly, yearly.
  Categories: account_balance, account_transfer, total_balance,
  total_transfer, flow, flow_grouping, expenses, or "all".
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "period", "monthly", "Bucket period")
	f.StringVar(&c.category, "category", "", "Report category, or all")
}

func (c *statsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	period, err := stats.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	all := strings.EqualFold(c.category, "all")
	var category stats.Category
	if !all {
		if category, err = stats.ParseCategory(c.category); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	err = withApp(ctx, func(app *cli.App) (any, error) {
		if all {
			return app.Reports.ComputeAll(ctx, period)
		}
		return app.Reports.Statistics(ctx, period, category)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
