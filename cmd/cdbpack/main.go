package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/freeeve/cdbdirect/internal/ingest"
	"github.com/freeeve/cdbdirect/internal/logx"
	"github.com/freeeve/cdbdirect/internal/segstore"
)

func main() {
	var (
		outDir = flag.String("out", "./data/cdb", "output segment directory")

		// Inputs
		tsvPath = flag.String("tsv", "", "dump file of fen<TAB>move:score,... lines")
		pgnPath = flag.String("pgn", "", "PGN file or directory of .pgn/.pgn.zst files for distance to root")

		// Ingest settings
		ratingMin  = flag.Int("rating-min", 0, "minimum rating of both players for PGN games")
		maxPly     = flag.Int("max-ply", 0, "record PGN positions up to this ply (0 = whole game)")
		pgnWorkers = flag.Int("pgn-workers", 4, "PGN files ingested in parallel")

		// Output settings
		segmentMB = flag.Int("segment-mb", 64, "target uncompressed segment size in MB")
		firstSeq  = flag.Uint64("first-seq", 1, "sequence number of the first segment")

		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	if *tsvPath == "" && *pgnPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: cdbpack -out <dir> [-tsv dump.tsv] [-pgn games.pgn]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger, err := logx.NewLogger(logx.Config{Level: *logLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	entries := newEntrySet()
	if *tsvPath != "" {
		f, err := os.Open(*tsvPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("open dump")
		}
		n, err := entries.readDump(f)
		f.Close()
		if err != nil {
			logger.Fatal().Err(err).Str("path", *tsvPath).Msg("read dump")
		}
		logger.Info().Int("entries", n).Str("path", *tsvPath).Msg("dump loaded")
	}

	if *pgnPath != "" {
		files := []string{*pgnPath}
		if st, err := os.Stat(*pgnPath); err == nil && st.IsDir() {
			if files, err = ingest.FindFiles(*pgnPath); err != nil {
				logger.Fatal().Err(err).Msg("list PGN files")
			}
		}
		index := ingest.NewPlyIndex()
		w := ingest.NewWorker(ingest.Config{
			RatingMin: *ratingMin,
			MaxPly:    *maxPly,
			Workers:   *pgnWorkers,
			Logger:    logger,
		}, index)
		if err := w.Run(ctx, files); err != nil {
			logger.Fatal().Err(err).Msg("ingest PGN")
		}
		games, skipped := index.Games()
		logger.Info().
			Int64("games", games).
			Int64("skipped", skipped).
			Int("positions", index.Len()).
			Msg("PGN ingested")
		if err := index.Each(entries.mergePly); err != nil {
			logger.Fatal().Err(err).Msg("merge plies")
		}
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create output directory")
	}
	b, err := segstore.NewBuilder(*outDir, *segmentMB<<20, *firstSeq, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create builder")
	}
	if err := entries.writeTo(b); err != nil {
		logger.Fatal().Err(err).Msg("write segments")
	}
	if err := b.Close(); err != nil {
		logger.Fatal().Err(err).Msg("close builder")
	}
	records, segments := b.Written()
	logger.Info().
		Int("records", records).
		Int("segments", segments).
		Str("dir", *outDir).
		Msg("pack complete")
}
