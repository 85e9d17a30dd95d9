package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/campaign-reporter/internal/api"
	"github.com/ignite/campaign-reporter/internal/config"
	"github.com/ignite/campaign-reporter/internal/fetchwindow"
	"github.com/ignite/campaign-reporter/internal/merge"
	"github.com/ignite/campaign-reporter/internal/pkg/distlock"
	"github.com/ignite/campaign-reporter/internal/pkg/logger"
	"github.com/ignite/campaign-reporter/internal/repository/postgres"
	"github.com/ignite/campaign-reporter/internal/rollup"
	"github.com/ignite/campaign-reporter/internal/source/callwise"
	"github.com/ignite/campaign-reporter/internal/source/filedrop"
	"github.com/ignite/campaign-reporter/internal/source/reach"
	"github.com/ignite/campaign-reporter/internal/syncer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		logger.SetLevel(logger.DEBUG)
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("main: load config failed", "path", *configPath, "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Error("main: database unavailable", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Error("main: ensure schema failed", "err", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("main: redis unreachable, sync locks fall back to advisory locks", "err", err)
			redisClient = nil
		}
	}

	tracker := fetchwindow.New(db)
	merger := merge.New(db)
	runs := postgres.NewSyncRunStore(db)

	syncers, err := buildSyncers(ctx, cfg, db, redisClient, tracker, merger, runs)
	if err != nil {
		logger.Error("main: build sources failed", "err", err)
		os.Exit(1)
	}
	if len(syncers) == 0 {
		logger.Warn("main: no sources enabled, serving rollups only")
	}
	for _, s := range syncers {
		s.Start()
	}

	server := api.NewServer(syncers, runs, rollup.New(db), db, redisClient)
	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("main: server listening", "addr", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("main: server failed", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("main: shutting down")
		for _, s := range syncers {
			s.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("main: shutdown failed", "err", err)
		}
	}
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// buildSyncers constructs one syncer per enabled source. Each gets its own
// lock key so sources sync independently.
func buildSyncers(ctx context.Context, cfg *config.Config, db *sql.DB, redisClient *redis.Client,
	tracker *fetchwindow.Tracker, merger *merge.Engine, runs *postgres.SyncRunStore) ([]*syncer.Syncer, error) {

	opts := syncer.Options{
		Interval:       cfg.Sync.Interval(),
		LookbackMonths: cfg.Sync.LookbackMonths,
		Parallelism:    cfg.Sync.TenantParallelism,
	}
	lockFor := func(tag string) distlock.DistLock {
		return distlock.NewLock(redisClient, db, "sync:"+tag, cfg.Sync.LockTTL())
	}

	var syncers []*syncer.Syncer

	if cfg.FileDrop.Enabled {
		var lister filedrop.Lister
		if cfg.FileDrop.LocalPath != "" {
			lister = filedrop.NewDirLister(cfg.FileDrop.LocalPath)
		} else {
			s3Lister, err := filedrop.NewS3Lister(ctx, cfg.FileDrop.S3Bucket, cfg.FileDrop.S3Prefix,
				cfg.FileDrop.S3Region, cfg.FileDrop.AWSProfile)
			if err != nil {
				return nil, fmt.Errorf("filedrop: %w", err)
			}
			lister = s3Lister
		}
		src := filedrop.New(lister)
		syncers = append(syncers, syncer.NewFileSyncer(src, tracker, merger, runs, lockFor(src.Tag()), opts))
	}

	if cfg.Reach.Enabled {
		reachOpts := opts
		reachOpts.Preflight = func() error {
			if cfg.Reach.ClientID == "" || cfg.Reach.ClientSecret == "" {
				return errors.New("reach: client credentials not configured")
			}
			return nil
		}
		src := reach.NewAdapter(reach.NewClient(cfg.Reach))
		syncers = append(syncers, syncer.NewWindowSyncer(src, tracker, merger, runs, lockFor(src.Tag()), reachOpts))
	}

	if cfg.Callwise.Enabled {
		callwiseOpts := opts
		callwiseOpts.Preflight = func() error {
			if cfg.Callwise.APIKey == "" {
				return errors.New("callwise: api key not configured")
			}
			return nil
		}
		src := callwise.NewAdapter(callwise.NewClient(cfg.Callwise))
		syncers = append(syncers, syncer.NewWindowSyncer(src, tracker, merger, runs, lockFor(src.Tag()), callwiseOpts))
	}

	return syncers, nil
}
