package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/dump"
	"github.com/freeeve/cdbdirect/internal/fen"
	"github.com/freeeve/cdbdirect/internal/kv"
	"github.com/freeeve/cdbdirect/internal/logx"
	"github.com/freeeve/cdbdirect/internal/segstore"
)

func main() {
	defaultDB := "./data/cdb"
	if envPath := os.Getenv("CDB_PATH"); envPath != "" {
		defaultDB = envPath
	}

	var (
		dbDir      = flag.String("db", defaultDB, "database directory")
		outputPath = flag.String("output", "cdb.tsv", "output dump file (- for stdout)")
		maxEntries = flag.Uint64("max", 0, "stop after N entries (0 = all)")
		logLevel   = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger, err := logx.NewLogger(logx.Config{Level: *logLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	store, err := segstore.Open(segstore.Config{Dir: *dbDir, ValueCacheBytes: -1, Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()
	logger.Info().Str("dir", *dbDir).Uint64("records", store.Count()).Msg("opened database")

	out := os.Stdout
	if *outputPath != "-" {
		f, err := os.Create(*outputPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("create output file")
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var written uint64
	var werr error
	// One range keeps the dump in key order.
	err = cdb.NewClient(store).Scan(ctx, []kv.Range{cdb.FullRange}, func(p fen.Position, moves []cdb.ScoredMove) bool {
		if _, werr = fmt.Fprintln(w, dump.FormatLine(p, moves)); werr != nil {
			return false
		}
		written++
		if written%1_000_000 == 0 {
			logger.Info().Uint64("entries", written).Msg("dump progress")
		}
		return *maxEntries == 0 || written < *maxEntries
	})
	if err == nil {
		err = werr
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("dump")
	}
	if err := w.Flush(); err != nil {
		logger.Fatal().Err(err).Msg("flush output")
	}
	logger.Info().Uint64("entries", written).Str("output", *outputPath).Msg("dump complete")
}
