package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/eco"
	"github.com/freeeve/cdbdirect/internal/epd"
	"github.com/freeeve/cdbdirect/internal/fen"
	"github.com/freeeve/cdbdirect/internal/logx"
	"github.com/freeeve/cdbdirect/internal/segstore"
)

func main() {
	defaultDB := "./data/cdb"
	if envPath := os.Getenv("CDB_PATH"); envPath != "" {
		defaultDB = envPath
	}

	var (
		dbDir     = flag.String("db", defaultDB, "database directory")
		epdPath   = flag.String("epd", "caissa_sorted_100000.epd", "EPD or FEN file to probe, one position per line")
		line      = flag.String("line", "", "probe every position of a SAN move line instead, e.g. \"1. e4 e5 2. Nf3\"")
		fileCache = flag.Int("file-cache", 16, "segment bodies kept in memory")
		logLevel  = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	logger, err := logx.NewLogger(logx.Config{Level: *logLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	store, err := segstore.Open(segstore.Config{Dir: *dbDir, FileCacheSize: *fileCache, Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()
	client := cdb.NewClient(store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := bufio.NewWriter(os.Stdout)
	if *line != "" {
		err = probeLine(ctx, out, client, *line)
	} else {
		err = probeFile(ctx, out, client, *epdPath, logger)
	}
	// Fatal exits without running deferred calls, so flush what was probed
	// before the failure first.
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("probe")
	}
}

func probeLine(ctx context.Context, w io.Writer, client *cdb.Client, moves string) error {
	l, err := eco.Replay(moves)
	if err != nil {
		return fmt.Errorf("replay line: %w", err)
	}
	for _, p := range l.Positions {
		if err := probe(ctx, w, client, p); err != nil {
			return err
		}
	}
	return nil
}

func probeFile(ctx context.Context, w io.Writer, client *cdb.Client, path string, logger zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open EPD file: %w", err)
	}
	defer f.Close()
	return probeEPD(ctx, w, client, f, logger)
}

func probeEPD(ctx context.Context, w io.Writer, client *cdb.Client, r io.Reader, logger zerolog.Logger) error {
	rd := epd.NewReader(r)
	for rd.Next() {
		e := rd.Entry()
		if e.Err != nil {
			logger.Warn().Err(e.Err).Int("line", e.LineNo).Msg("skipping invalid position")
			continue
		}
		if err := probe(ctx, w, client, e.Position); err != nil {
			return err
		}
	}
	if err := rd.Err(); err != nil {
		return fmt.Errorf("read EPD file: %w", err)
	}
	return nil
}

func probe(ctx context.Context, w io.Writer, client *cdb.Client, p fen.Position) error {
	fmt.Fprintln(w, "-------------------------------------------------------------")
	fmt.Fprintf(w, "Probing: %s\n", p.String())

	start := time.Now()
	r, err := client.Probe(ctx, p)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}
	writeResult(w, r)
	fmt.Fprintf(w, "Required time: %g microsec.\n", float64(elapsed.Nanoseconds())/1000)
	return nil
}

func writeResult(w io.Writer, r cdb.Result) {
	if !r.Found() {
		fmt.Fprintln(w, "Fen not found in DB!")
		return
	}
	for _, m := range r.Moves() {
		fmt.Fprintf(w, "    %s : %d\n", m.Move, m.Score)
	}
	if ply := r.Ply(); ply >= 0 {
		fmt.Fprintf(w, "    Distance to startpos equal or less than %d\n", ply)
	} else {
		fmt.Fprintln(w, "    Distance to startpos unknown")
	}
}
