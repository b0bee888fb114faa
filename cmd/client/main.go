package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/iudanet/livedesk/internal/client/api"
	"github.com/iudanet/livedesk/internal/client/auth"
	"github.com/iudanet/livedesk/internal/client/cli"
	"github.com/iudanet/livedesk/internal/client/iocli"
	"github.com/iudanet/livedesk/internal/client/storage/boltdb"
	"github.com/iudanet/livedesk/internal/config"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, args, err := config.LoadClient(os.Args[1:], os.Getenv)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	// Show version and exit if requested
	if cfg.ShowVersion {
		printVersion()
		return 0
	}

	// Логи идут в stderr, чтобы не смешиваться с выводом команд
	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	apiClient := api.NewClient(cfg.ServerURL)
	console := iocli.NewStdio()

	app := cli.New(logger, console, cli.Deps{
		APIClient:  apiClient,
		Auth:       auth.NewService(logger, apiClient, boltStorage),
		ViewState:  boltStorage,
		Snapshots:  boltStorage,
		Subscriber: cli.RealtimeSubscriber(logger),
		Debounce:   cfg.Debounce,
	})

	if len(args) == 0 {
		app.PrintUsage()
		return 1
	}

	if err := app.Run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printVersion() {
	fmt.Printf("LiveDesk Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
