package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gainstaker/config"
	"gainstaker/internal/metrics"
	"gainstaker/logger"
)

const usage = `usage: gainstaker [-config path] <command> [flags]

commands:
  pairings   list tradable pairs, optionally those involving -asset
  symbols    list known assets
  balances   show non-zero balances, -value adds their reference value
  quote      estimate a conversion (-pair -side -amount)
  value      value a holding in the reference asset (-asset -qty)
  route      show the path from -asset to the reference asset
  market     execute a market order (-pair -side -qty)
  tax        compute a liability (-proceeds -basis -term), liquidate with -asset -execute
`

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	flags := flag.NewFlagSet("gainstaker", flag.ExitOnError)
	configPath := flags.String("config", config.DefaultPath, "Path to configuration file")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = flags.Parse(os.Args[1:])
	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics.Configure(cfg.Metrics)
	metrics.InitCloudWatch(ctx, cfg.Metrics.CloudWatch)

	log.WithFields(logger.Fields{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
		"env":     config.AppEnvironment(),
		"testnet": config.IsTestnet(cfg.Exchange.BaseURL),
	}).Debug("starting gainstaker")

	app := newApp(cfg, os.Stdout)
	err = app.run(ctx, flags.Arg(0), flags.Args()[1:])
	if cerr := app.close(ctx); cerr != nil {
		log.WithError(cerr).Error("failed to flush journal")
	}
	logger.Report(log)

	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
