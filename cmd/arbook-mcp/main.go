package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/arbook-tracker/internal/config"
	"github.com/ironsheep/arbook-tracker/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("arbook-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("arbook-mcp - MCP server for AR book page recognition")
			fmt.Println()
			fmt.Println("Usage: arbook-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  ARBOOK_LOG_LEVEL=debug       Log level (debug, info, warn, error)")
			fmt.Println("  ARBOOK_PROVIDER=native       Vision provider (native, opencv)")
			fmt.Println("  ARBOOK_PARAMS=params.toml    Tracker parameter overrides")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "arbook-mcp: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol; logs go to stderr.
	logger := cfg.Logger()
	logger.Debug("starting", "version", Version, "built", BuildTime, "commit", GitCommit,
		"provider", cfg.Provider, "params", cfg.ParamsPath)

	tr, err := cfg.NewTracker(logger)
	if err != nil {
		logger.Error("failed to create tracker", "error", err)
		os.Exit(1)
	}

	srv := server.New(tr, logger, Version)
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
