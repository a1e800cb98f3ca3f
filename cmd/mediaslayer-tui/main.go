// MediaSlayer TUI - terminal front end for the download form.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/iconidentify/mediaslayer/cmd/mediaslayer-tui/internal/config"
	"github.com/iconidentify/mediaslayer/cmd/mediaslayer-tui/internal/ui"
)

func main() {
	os.Exit(run(config.Load(), os.Stderr))
}

// run starts the TUI and returns the exit code. Returning instead of exiting
// lets the deferred log close run on every path.
func run(cfg *config.Config, stderr io.Writer) int {
	logger, closeLog, err := newLogger(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening log file: %v\n", err)
		return 1
	}
	defer closeLog()

	app, err := ui.NewApp(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize TUI", "error", err)
		fmt.Fprintf(stderr, "Error initializing TUI: %v\n", err)
		return 1
	}

	if err := app.Run(); err != nil {
		logger.Error("TUI exited with error", "error", err)
		fmt.Fprintf(stderr, "Error running TUI: %v\n", err)
		return 1
	}
	app.Stop()
	return 0
}

// newLogger writes to path, or discards when path is empty so nothing
// draws over the screen.
func newLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { f.Close() }, nil
}
