// Command riskbench runs a full model comparison study from a YAML
// configuration and writes its report artifacts to the configured directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aokisawa/riskbench/config"
	"github.com/aokisawa/riskbench/experiment"
	"github.com/aokisawa/riskbench/pkg/log"
)

func main() {
	configPath := flag.String("config", "riskbench.yaml", "path to experiment configuration")
	logLevel := flag.String("log-level", "", "override configured log level (debug|info|warn|error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "riskbench: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger := log.New(os.Stderr, cfg.Log.Level, cfg.Log.Console)
	log.RouteWarnings(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := experiment.NewRunner(cfg, log.Component(logger, "experiment"))
	res, err := runner.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("experiment failed")
		os.Exit(1)
	}

	logger.Info().
		Str("family", res.Holdout.Family).
		Str("params", res.Holdout.Point.Key()).
		Float64("holdout_auc", res.Holdout.AUC).
		Msg("experiment complete")
}
