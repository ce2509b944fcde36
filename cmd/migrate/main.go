package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"go.uber.org/zap"

	"fulfillment/internal/config"
	"fulfillment/internal/infrastructure/logger"
	"fulfillment/internal/infrastructure/migration"
	"fulfillment/internal/infrastructure/mysql"
)

const usage = `usage: migrate [-config path] <command>

commands:
  up             apply all pending migrations
  down           roll back the most recent migration
  version        print the current schema version
  force VERSION  set the version without running migrations (clears dirty state)
`

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer logger.Sync(zapLogger)

	db, err := mysql.NewConnection(cfg.Database, mysql.WithMultiStatements())
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}

	migrator, err := migration.New(db, zapLogger)
	if err != nil {
		zapLogger.Fatal("creating migrator", zap.Error(err))
	}

	err = run(migrator, flag.Args())
	if cerr := migrator.Close(); cerr != nil {
		zapLogger.Warn("closing migrator", zap.Error(cerr))
	}
	if err != nil {
		zapLogger.Error("migration command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		logger.Sync(zapLogger)
		os.Exit(1)
	}
}

func run(m *migration.Migrator, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	case "force":
		if len(args) < 2 {
			return errors.New("force requires a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return m.Force(version)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
