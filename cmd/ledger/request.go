package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"ledger/internal/amqp"
)

type requestCmd struct {
	kind     string
	period   string
	category string
}

func (*requestCmd) Name() string     { return "request" }
func (*requestCmd) Synopsis() string { return "queue a report request for ledger-worker" }
func (*requestCmd) Usage() string {
	return `ledger request -kind <statistics|issues|all> [-period <period>] [-category <category>]

  Publishes a report request on the request queue and prints its id.
  The result is published by ledger-worker on the result queue.
`
}

func (c *requestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", string(amqp.KindStatistics), "Request kind")
	f.StringVar(&c.period, "period", "monthly", "Bucket period")
	f.StringVar(&c.category, "category", "", "Report category (statistics only)")
}

func (c *requestCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	var req *amqp.ReportRequest
	switch amqp.RequestKind(c.kind) {
	case amqp.KindStatistics:
		req = amqp.NewStatisticsRequest(c.period, c.category)
	case amqp.KindIssues:
		req = amqp.NewIssuesRequest()
	case amqp.KindAll:
		req = amqp.NewComputeAllRequest(c.period)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown request kind %q\n", c.kind)
		return subcommands.ExitUsageError
	}
	if err := req.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	cfg, logger, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRequestQueue, cfg.AMQPResultQueue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer client.Close()

	if err := client.PublishRequest(ctx, req); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	logger.Info("Report request queued", "request_id", req.RequestID, "kind", req.Kind, "queue", cfg.AMQPRequestQueue)

	if err := printJSON(os.Stdout, req); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
