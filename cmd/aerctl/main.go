// Command aerctl runs a batch job through the BatchController against the
// reference state-vector backend, reading the job document from stdin (or
// a -job file) and writing the structured Result document to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aerctl/aerctl/backend/statevector"
	"github.com/aerctl/aerctl/internal/controller"
	"github.com/aerctl/aerctl/model"
)

func main() {
	jobPath := flag.String("job", "", "path to a job document (defaults to stdin)")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *jobPath); err != nil {
		logger.Fatal().Err(err).Msg("aerctl: run failed")
	}
}

func run(ctx context.Context, logger zerolog.Logger, jobPath string) error {
	var src io.Reader = os.Stdin
	if jobPath != "" {
		f, err := os.Open(jobPath)
		if err != nil {
			return fmt.Errorf("open job file: %w", err)
		}
		defer f.Close()
		src = f
	}

	blob, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read job document: %w", err)
	}

	be := statevector.New(model.NewOpSet("h", "x", "y", "z", "cx", "cz", "swap", "measure", "barrier"), 16)
	c := controller.New(be, controller.WithLogger(logger))

	result := c.ExecuteJobBlob(ctx, blob)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
