package logx

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the log level and output format.
type Config struct {
	Level string    // zerolog level name, default "info"
	JSON  bool      // JSON lines instead of console output
	Out   io.Writer // default os.Stderr
}

// NewLogger returns a zerolog logger writing console output with RFC3339
// timestamps and short caller locations, or JSON when cfg.JSON is set.
func NewLogger(cfg Config) (zerolog.Logger, error) {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
	zerolog.CallerMarshalFunc = shortCaller
	return zerolog.New(out).Level(level).With().Timestamp().Caller().Logger(), nil
}

func shortCaller(pc uintptr, file string, line int) string {
	// Extract just the filename, not the full path
	short := file
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			break
		}
	}
	// Pad to 28 characters for alignment
	return fmt.Sprintf("%-28s", fmt.Sprintf("%s:%d", short, line))
}
