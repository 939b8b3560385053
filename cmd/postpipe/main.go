package main

import (
	"context"
	"fmt"
	"os"

	"github.com/docopt/docopt.go"
	"go.uber.org/zap"

	"github.com/jobsignals/postpipe/pipeline"
)

func main() {
	usage := `Postpipe Job Postings Pipeline.

Usage:
  postpipe run [--input=<path>] [--output=<dir>]
  postpipe (-h | --help)
  postpipe --version

Options:
  -h --help        Show this screen.
  --version        Show version.
  --input=<path>   Path to the postings CSV [default: data/postings.csv].
  --output=<dir>   Directory for exported artifacts [default: output].
`

	arguments, err := docopt.ParseDoc(usage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}
	if v, _ := arguments.Bool("--version"); v {
		fmt.Println("Postpipe version 1.0.0")
		os.Exit(0)
	}

	cfg := pipeline.DefaultConfig()
	if input, err := arguments.String("--input"); err == nil {
		cfg.InputPath = input
	}
	if output, err := arguments.String("--output"); err == nil {
		cfg.OutputDir = output
	}

	// Initialize zap logger.
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting postings pipeline",
		zap.String("input", cfg.InputPath),
		zap.String("output", cfg.OutputDir))

	if err := pipeline.New(cfg, logger).Run(context.Background()); err != nil {
		logger.Fatal("pipeline failed", zap.Error(err))
	}
}
