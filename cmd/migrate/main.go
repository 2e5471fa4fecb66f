package main

import (
	"flag"
	"fmt"
	"os"

	"zoombid/internal/config"
	"zoombid/internal/database"
	"zoombid/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `usage: migrate [-dir migrations] up|down|status`

func main() {
	dir := flag.String("dir", "migrations", "directory holding goose SQL migrations")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	switch flag.Arg(0) {
	case "up":
		err = database.RunMigrations(db, *dir, log)
	case "down":
		err = database.Rollback(db, *dir)
	case "status":
		err = database.MigrationStatus(db, *dir)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
}
