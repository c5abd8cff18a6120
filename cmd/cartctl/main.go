// Command cartctl manages a local cart and keeps it in sync with the cart API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/config"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/logger"
	"github.com/shophuyvan/shophuyvan-sub002/internal/interfaces/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a config.toml (optional)")
	server := flag.String("server", "", "cart API base URL (overrides client.server_url)")
	dataDir := flag.String("data-dir", "", "local cart directory (overrides client.data_dir)")
	logLevel := flag.String("log-level", "warn", "log level written to stderr")
	flag.Usage = func() { cli.PrintUsage(os.Stderr) }
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cartctl: %v\n", err)
		return 1
	}
	if *server != "" {
		cfg.Client.ServerURL = *server
	}
	if *dataDir != "" {
		cfg.Client.DataDir = *dataDir
	}

	log, err := logger.New(&logger.Config{Level: *logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cartctl: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	client, err := cli.NewClient(cfg.Client, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cartctl: %v\n", err)
		return 1
	}

	if err := cli.Run(ctx, client, os.Stdout, flag.Args()); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "cartctl: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
