package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/yourusername/studyquest-api/internal/config"
	"github.com/yourusername/studyquest-api/pkg/database"
	"github.com/yourusername/studyquest-api/pkg/logger"
)

// Управление схемой БД:
//
//	migrate up
//	migrate down -steps 1
//	migrate force -version 1   # снять dirty-флаг после упавшей миграции
//	migrate version
func main() {
	configPath := flag.String("config", "config/config.yaml", "путь к файлу конфигурации")
	source := flag.String("source", database.DefaultMigrationsPath, "источник миграций")
	steps := flag.Int("steps", 1, "сколько миграций откатить (down)")
	version := flag.Int("version", -1, "версия схемы (force)")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLog, err := logger.New(cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer appLog.Sync()

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), false)
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}

	switch command {
	case "up":
		err = database.MigrateDB(db, *source, appLog)
	case "down":
		if *steps < 1 {
			appLog.Fatal("steps must be positive", "steps", *steps)
		}
		err = database.RollbackDB(db, *source, *steps)
		if err == nil {
			appLog.Info("migrations rolled back", "steps", *steps)
		}
	case "force":
		if *version < 0 {
			appLog.Fatal("force requires -version")
		}
		err = database.ForceVersion(db, *source, *version)
		if err == nil {
			appLog.Info("schema version forced", "version", *version)
		}
	case "version":
		var (
			v     uint
			dirty bool
		)
		v, dirty, err = database.SchemaVersion(db, *source)
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", v, dirty)
		}
	default:
		appLog.Fatal("unknown command", "command", command)
	}

	if err != nil {
		appLog.Fatal("migration command failed", "command", command, "error", err)
	}
}
