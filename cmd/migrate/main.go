// Command migrate applies the canonical-store schema and optionally seeds
// tenants from a comma-separated list.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/campaign-reporter/internal/config"
	"github.com/ignite/campaign-reporter/internal/pkg/logger"
	"github.com/ignite/campaign-reporter/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	tenants := flag.String("tenants", "", "comma-separated tenant names to seed")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("migrate: load config failed", "path", *configPath, "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("migrate: open database failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("migrate: database unreachable", "err", err)
		os.Exit(1)
	}

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Error("migrate: ensure schema failed", "err", err)
		os.Exit(1)
	}

	if *tenants != "" {
		store := postgres.NewTenantStore(db)
		for _, name := range strings.Split(*tenants, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			id, err := store.Ensure(ctx, name)
			if err != nil {
				logger.Error("migrate: seed tenant failed", "tenant", name, "err", err)
				os.Exit(1)
			}
			logger.Info("migrate: tenant ready", "tenant", name, "id", id)
		}
	}

	logger.Info("migrate: done")
}
