// Command classwatch emails the list of classes that start soon with too few
// students. It runs once and exits: 0 on success (including zero matches), 1
// on any failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"classwatch/internal/app"
	"classwatch/internal/config"
	"classwatch/internal/infrastructure"
	"classwatch/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("classwatch", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configFile := flags.String("config", "", "optional YAML config file; environment variables take precedence")
	dryRun := flags.Bool("dry-run", false, "print the email instead of sending it")
	archiveDir := flags.String("archive-dir", "", "directory for dated report copies (overrides ARCHIVE_DIR)")
	showVersion := flags.Bool("version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return 0
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "classwatch: %v\n", err)
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "classwatch: failed to initialize logger: %v\n", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	ctx = infrastructure.EnsureTraceID(ctx)
	logger.DebugContext(ctx, "Configuration loaded", slog.Any("config", cfg.Redacted()))

	application, err := app.NewApplication(ctx, cfg, app.Options{
		DryRun:     *dryRun,
		ArchiveDir: *archiveDir,
		Stdout:     stdout,
	}, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Startup failed", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "classwatch: %v\n", err)
		return 1
	}

	if _, err := application.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "classwatch: %v\n", err)
		return 1
	}
	return 0
}
