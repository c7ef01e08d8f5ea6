package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/engine"
	"github.com/freeeve/cdbdirect/internal/epd"
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
		outputPath = flag.String("output", "cdbdirect.epd", "annotated EPD output")
		workers    = flag.Int("workers", runtime.NumCPU(), "probe goroutines")
		cacheMB    = flag.Int("value-cache-mb", 64, "value cache size in MB (0 disables)")

		// Engine fallback for positions the database does not know
		useEngine     = flag.Bool("engine", false, "evaluate unknown positions with a UCI engine")
		stockfishPath = flag.String("stockfish", "stockfish", "path to the UCI engine executable")
		engineDepth   = flag.Int("engine-depth", 20, "engine search depth")
		engines       = flag.Int("engines", 1, "engine processes")
		engineHash    = flag.Int("engine-hash", 64, "engine hash MB per process")

		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	if envPath := os.Getenv("STOCKFISH_PATH"); envPath != "" {
		*stockfishPath = envPath
	}

	inputPath := "caissa_sorted_100000.epd"
	if flag.NArg() > 0 {
		inputPath = flag.Arg(0)
	}

	logger, err := logx.NewLogger(logx.Config{Level: *logLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("path", inputPath).Msg("loading")
	f, err := os.Open(inputPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open EPD file")
	}
	entries, rd, err := epd.ReadAll(f)
	f.Close()
	if err != nil {
		logger.Fatal().Err(err).Msg("read EPD file")
	}
	if rd.Invalid() > 0 || rd.Short() > 0 {
		logger.Warn().Int("short", rd.Short()).Int("invalid", rd.Invalid()).Msg("lines without a usable position")
	}

	valueBytes := int64(*cacheMB) << 20
	if valueBytes == 0 {
		valueBytes = -1
	}
	store, err := segstore.Open(segstore.Config{Dir: *dbDir, ValueCacheBytes: valueBytes, Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()
	logger.Info().Uint64("positions", store.Count()).Msg("opened database")

	b := &batch{client: cdb.NewClient(store), workers: *workers}
	if *useEngine {
		pool, err := engine.NewPool(engine.Config{
			Path:   *stockfishPath,
			Depth:  *engineDepth,
			HashMB: *engineHash,
			Logger: logger,
		}, *engines)
		if err != nil {
			logger.Fatal().Err(err).Msg("start engines")
		}
		defer pool.Close()
		b.eval = pool
		logger.Info().Int("engines", pool.Size()).Int("depth", *engineDepth).Msg("engine fallback enabled")
	}

	logger.Info().Int("fens", len(entries)).Int("workers", *workers).Msg("probing")
	start := time.Now()
	lines, err := b.run(ctx, entries)
	if err != nil {
		logger.Fatal().Err(err).Msg("probe")
	}
	elapsed := time.Since(start)

	printSummary(os.Stdout, b, len(entries), elapsed)

	out, err := os.Create(*outputPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("create output")
	}
	w := bufio.NewWriter(out)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		logger.Fatal().Err(err).Msg("write output")
	}
	if err := out.Close(); err != nil {
		logger.Fatal().Err(err).Msg("close output")
	}
	logger.Info().Str("output", *outputPath).Msg("known evals written")
}
