package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/iudanet/livedesk/internal/client/iocli"
	"github.com/iudanet/livedesk/internal/config"
	"github.com/iudanet/livedesk/internal/server/storage/sqlite"
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
	cfg, args, err := config.LoadServer(os.Args[1:], os.Getenv)
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

	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		srv, err := newServer(ctx, logger, cfg)
		if err != nil {
			logger.Error("Failed to initialize server", "error", err)
			return 1
		}
		if err := srv.Run(ctx); err != nil {
			logger.Error("Server stopped with error", "error", err)
			return 1
		}
		return 0

	case "useradd":
		store, err := sqlite.New(ctx, cfg.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
			return 1
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}()

		if err := userAdd(ctx, store, iocli.NewStdio(), args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		fmt.Fprintln(os.Stderr, "Usage: livedesk-server [flags] [serve | useradd --tenant TENANT USERNAME]")
		return 2
	}
}

func printVersion() {
	fmt.Printf("LiveDesk Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
