// Package main provides the CLI entrypoint for docmap.
//
// docmap loads a stored document against a schema, materializes one of its
// document sets and prints what would be written back:
//   - the dense array export of the set (YAML, or a Go dump with -dump)
//   - optionally the pending update operations after appending documents (-ops)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"docmap/internal/ctxlog"
)

func main() {
	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses args and executes the export; split out of main for tests.
func run(ctx context.Context, out, errOut io.Writer, args []string) error {
	cfg, shouldExit, err := parse(args, out)
	if err != nil {
		return err
	}

	if shouldExit {
		return nil
	}

	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: cfg.LogLevel}))
	ctx = ctxlog.WithLogger(ctx, logger)

	return export(ctx, out, cfg)
}
