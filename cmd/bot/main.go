package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hwbot/internal/app"
	"hwbot/internal/config"
)

func main() {
	var opts app.Options
	flag.StringVar(&opts.ConfigPath, "config", "./config.json", "path to config json/yaml (optional)")
	flag.StringVar(&opts.EnvFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before reading credentials")
	flag.Parse()

	// NewApp logs its own failures.
	a, err := app.NewApp(opts)
	if err != nil {
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx); err != nil {
		os.Exit(1)
	}

	reason := app.StopFatalError
	select {
	case sig := <-sigCh:
		reason = app.StopReasonFor(sig)
	case <-a.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	if reason == app.StopFatalError {
		os.Exit(1)
	}
}
