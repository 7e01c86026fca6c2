package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanshika/muletrace/internal/generator"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := generator.DefaultConfig()
	var (
		accounts     = flag.Int("accounts", cfg.NumAccounts, "number of background accounts")
		transactions = flag.Int("transactions", cfg.NumTransactions, "number of background transactions")
		cycles       = flag.Int("cycles", cfg.Cycles, "number of planted 3-5 account cycles")
		fanIns       = flag.Int("fan-ins", cfg.FanIns, "number of planted fan-in hubs")
		fanOuts      = flag.Int("fan-outs", cfg.FanOuts, "number of planted fan-out hubs")
		shells       = flag.Int("shell-chains", cfg.ShellChains, "number of planted layering chains")
		start        = flag.String("start", cfg.Start.Format(time.DateOnly), "first day of the batch (YYYY-MM-DD)")
		span         = flag.Duration("span", cfg.Span, "time span of background traffic")
		seed         = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir    = flag.String("output-dir", "data", "directory to write transactions.csv and planted.json")
		writeStdout  = flag.Bool("stdout", false, "write the CSV to stdout instead of files")
	)
	flag.Parse()

	startAt, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -start: %v\n", err)
		return 2
	}

	genCfg := generator.Config{
		NumAccounts:     *accounts,
		NumTransactions: *transactions,
		Cycles:          nonNegative(*cycles),
		FanIns:          nonNegative(*fanIns),
		FanOuts:         nonNegative(*fanOuts),
		ShellChains:     nonNegative(*shells),
		Start:           startAt,
		Span:            *span,
		Seed:            *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dataset, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		return 1
	}

	if *writeStdout {
		if err := generator.WriteCSV(os.Stdout, dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			return 1
		}
		return 0
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stdout, "Generated %d transactions (%d cycles, %d fan-in, %d fan-out, %d shell accounts) into %s\n",
		len(dataset.Transactions), len(dataset.Planted.Cycles), len(dataset.Planted.FanInHubs),
		len(dataset.Planted.FanOutHubs), len(dataset.Planted.Shells), *outputDir)
	return 0
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
