package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/vk/bndl/internal/app"
	"github.com/vk/bndl/internal/cli"
	"github.com/vk/bndl/internal/hcl"
)

// main is the entrypoint for the bndl application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// A missing .env is fine; variables already set are never overridden.
	_ = godotenv.Load()

	// The real main function handles errors and exit codes.
	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW, errW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// Instantiate the concrete HCL settings loader to pass to the app.
	loader := hcl.NewLoader()
	bndlApp, err := app.NewApp(outW, errW, appConfig, loader)
	if err != nil {
		return &cli.ExitError{Code: 1, Message: err.Error()}
	}

	return bndlApp.Run(ctx)
}
