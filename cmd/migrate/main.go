// Command migrate applies the Postgres schema for the cart record store.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/config"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/logger"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/migration"
	"github.com/shophuyvan/shophuyvan-sub002/migrations"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)
	logLevel := flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Usage = printUsage
	if err := flags.Parse(argv); err != nil {
		return 2
	}

	args := flags.Args()
	if len(args) == 0 {
		printUsage()
		return 2
	}
	command := args[0]

	log, err := logger.New(&logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	if command == "list" {
		names, err := migration.List(migrations.FS)
		if err != nil {
			log.Error("Failed to list migrations", zap.Error(err))
			return 1
		}
		for _, name := range names {
			fmt.Println("  -", name)
		}
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", zap.Error(err))
		return 1
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))
		return 1
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", zap.Error(err))
		return 1
	}

	m, err := migration.New(db, migrations.FS, log)
	if err != nil {
		log.Error("Failed to create migrator", zap.Error(err))
		return 1
	}
	defer m.Close()

	if err := execute(m, command, args[1:], log); err != nil {
		log.Error("Migration command failed", zap.String("command", command), zap.Error(err))
		return 1
	}
	return 0
}

func execute(m *migration.Migrator, command string, args []string, log *zap.Logger) error {
	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := intArg(args, "step <n>")
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	case "force":
		version, err := intArg(args, "force <version>")
		if err != nil {
			return err
		}
		return m.Force(version)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func intArg(args []string, usage string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing argument, usage: migrate %s", usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	return n, nil
}

func printUsage() {
	fmt.Println(`Cart sync database migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                Apply all pending migrations
  down              Roll back all migrations
  step <n>          Apply n migrations (positive=up, negative=down)
  version           Show current migration version
  force <version>   Force set migration version after a failed run
  list              List embedded migrations

Flags:
  -log-level string Log level: debug, info, warn, error (default: info)

Database settings come from config.toml or CARTSYNC_DATABASE_* variables.`)
}
