package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/logx"
	"github.com/freeeve/cdbdirect/internal/scanstats"
	"github.com/freeeve/cdbdirect/internal/segstore"
)

func main() {
	defaultDB := "./data/cdb"
	if envPath := os.Getenv("CDB_PATH"); envPath != "" {
		defaultDB = envPath
	}

	var (
		dbDir     = flag.String("db", defaultDB, "database directory")
		maxArg    = flag.String("max", "", "entries to analyse: a count, or a fraction of the database such as 0.5 or 1.0")
		workers   = flag.Int("workers", runtime.NumCPU(), "scan goroutines")
		progress  = flag.Uint64("progress", scanstats.DefaultProgressEvery, "log progress every N entries")
		histDir   = flag.String("histograms", ".", "directory for histogram files (empty = skip)")
		fileCache = flag.Int("file-cache", 0, "segment bodies kept in memory (0 = one per worker)")
		logLevel  = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger, err := logx.NewLogger(logx.Config{Level: *logLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cacheSize := *fileCache
	if cacheSize == 0 {
		cacheSize = max(*workers, 1)
	}
	store, err := segstore.Open(segstore.Config{
		Dir:             *dbDir,
		FileCacheSize:   cacheSize,
		ValueCacheBytes: -1,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()

	size := store.Count()
	fmt.Printf("DB count: %d\n", size)

	limit, err := scanstats.ParseLimit(*maxArg, size)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse -max")
	}
	if *maxArg == "1" {
		fmt.Println("Use '-max 1.0' to analyse the whole DB.")
	}
	fmt.Printf("Analyse the first %d DB entries ...\n", limit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats := scanstats.New(scanstats.Config{Max: limit, ProgressEvery: *progress, Logger: logger})
	if limit > 0 {
		if err := cdb.NewClient(store).Apply(ctx, *workers, stats.Visit); err != nil {
			logger.Fatal().Err(err).Msg("scan")
		}
	}

	s := stats.Snapshot()
	fmt.Printf("Final count:          %d\n", s.Total)
	fmt.Printf("  Have min ply:       %d\n", s.HaveMinPly)
	fmt.Printf("  Have single move:   %d\n", s.HaveSingle)
	fmt.Printf("  Total scored moves: %d\n", s.Moves)
	fmt.Printf("  Time (s):           %.3f\n", s.Elapsed.Seconds())

	if *histDir != "" {
		if err := stats.WriteHistograms(*histDir); err != nil {
			logger.Fatal().Err(err).Msg("write histograms")
		}
		logger.Info().Str("dir", *histDir).Msg("histograms written")
	}
}
