package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"pos-service/config"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate <command>

Commands:
  up        apply all pending migrations
  down      roll back all migrations
  step <n>  apply n migrations, or roll back when n is negative
  version   print the current schema version`)
}

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	cfg := config.Load()
	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	m, err := store.NewMigrator(db.GetDB().DB, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			logger.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		if err := m.Down(); err != nil {
			logger.Fatal("Migration down failed", zap.Error(err))
		}

	case "step":
		if len(args) < 2 {
			logger.Fatal("Step count required. Usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			logger.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		if err := m.Steps(n); err != nil {
			logger.Fatal("Migration step failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			logger.Fatal("Failed to get version", zap.Error(err))
		}
		if version == 0 {
			logger.Info("No migrations applied")
		} else {
			logger.Info("Current migration version",
				zap.Uint("version", version),
				zap.Bool("dirty", dirty))
		}

	default:
		printUsage()
		os.Exit(1)
	}
}
