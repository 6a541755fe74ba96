// Command server runs the minispace blog.
//
// Settings come from an optional YAML file (-config), a .env file and the
// process environment; see internal/config for the precedence rules.
//
// main stays small: load config, build a logger, hand both to server.New,
// then block in Start. Everything that needs wiring (database, cache, services, routes) lives in
// internal/server so tests can build the same server without a process.
//
// Usage:
//
//	go run ./cmd/server
//	go run ./cmd/server -config config.yaml
//	LOG_LEVEL=debug LOG_PRETTY=true go run ./cmd/server
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/sakif/minispace/internal/config"
	"github.com/sakif/minispace/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// No configured logger yet.
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("loading config")
	}

	logger := newLogger(cfg.Log)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("creating server")
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

// newLogger builds the process logger.
//
// LOG LEVELS (zerolog):
// debug < info < warn < error < fatal. Events below the chosen level are
// dropped before any field is formatted. An empty or unknown level falls
// back to info rather than failing the start.
//
// OUTPUT:
// JSON lines on stdout by default, one object per event, ready for a log
// collector. Pretty mode uses zerolog.ConsoleWriter for coloured,
// human-readable lines during development.
func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
