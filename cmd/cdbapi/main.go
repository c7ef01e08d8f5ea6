package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/eco"
	"github.com/freeeve/cdbdirect/internal/httpapi"
	"github.com/freeeve/cdbdirect/internal/logx"
	"github.com/freeeve/cdbdirect/internal/segstore"
)

func main() {
	defaultDB := "./data/cdb"
	if envPath := os.Getenv("CDB_PATH"); envPath != "" {
		defaultDB = envPath
	}

	var (
		// Data directories
		dbDir = flag.String("db", defaultDB, "database directory")

		// Server
		addr = flag.String("addr", ":8007", "listen address")

		// Cache settings
		fileCache = flag.Int("file-cache", 16, "segment bodies kept in memory")
		cacheMB   = flag.Int("value-cache-mb", 64, "value cache size in MB (0 disables)")

		// ECO settings
		ecoDir = flag.String("eco-dir", "./data/eco", "Directory containing ECO .tsv files")

		// Logging
		logLevel = flag.String("log-level", "info", "log level")
		logJSON  = flag.Bool("log-json", false, "log JSON lines instead of console output")
	)
	flag.Parse()

	logger, err := logx.NewLogger(logx.Config{Level: *logLevel, JSON: *logJSON})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	valueBytes := int64(*cacheMB) << 20
	if valueBytes == 0 {
		valueBytes = -1
	}
	store, err := segstore.Open(segstore.Config{
		Dir:             *dbDir,
		FileCacheSize:   *fileCache,
		ValueCacheBytes: valueBytes,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()

	stats := store.Stats()
	logger.Info().
		Str("dir", *dbDir).
		Int("segments", stats.Segments).
		Uint64("records", stats.Records).
		Msg("opened database")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load ECO opening database
	var ecoDB *eco.Database
	if *ecoDir != "" {
		ecoDB = eco.NewDatabase()
		if err := ecoDB.LoadDir(*ecoDir); err != nil {
			logger.Warn().Err(err).Str("dir", *ecoDir).Msg("failed to load ECO database")
			ecoDB = nil
		} else {
			logger.Info().Int("openings", ecoDB.Count()).Int("skipped", ecoDB.Skipped()).Msg("ECO database loaded")
		}
	}

	srv := &http.Server{
		Addr:         *addr,
		Handler:      httpapi.NewRouter(logger.With().Str("component", "http").Logger(), cdb.NewClient(store), store, ecoDB),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("api server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown error")
	}

	stats = store.Stats()
	logger.Info().
		Uint64("reads", stats.Reads).
		Uint64("value_cache_hits", stats.ValueCacheHits).
		Msg("shutdown complete")
}
