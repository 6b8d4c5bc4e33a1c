package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"

	"github.com/richinex/agentbook/config"
)

// NewLogger builds the console logger. When a log file is configured,
// records are also written to it as JSON lines. The returned close function
// releases the file.
func NewLogger(output io.Writer, cfg config.LogConfig, noColor bool) (*slog.Logger, func() error, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}

	console := tint.NewHandler(output, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindAny {
				if _, ok := a.Value.Any().(error); ok {
					return tint.Attr(9, a)
				}
			}
			return a
		},
	})

	if cfg.File == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	file := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})

	return slog.New(slogmulti.Fanout(console, file)), f.Close, nil
}
