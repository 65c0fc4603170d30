package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"classwatch/internal/config"
	"classwatch/internal/dataprocessing"
	"classwatch/internal/exporter"
	"classwatch/internal/infrastructure"
	"classwatch/internal/mailer"
	"classwatch/internal/source"
	"classwatch/internal/validation"
	"classwatch/pkg/contracts"
	"classwatch/pkg/contracts/domain"
)

const AppName = "classwatch"

// Options are the command-line choices layered over the loaded configuration.
type Options struct {
	// DryRun prints the email instead of sending it.
	DryRun bool
	// ArchiveDir overrides ARCHIVE_DIR when set.
	ArchiveDir string
	// Stdout receives the summary and, on dry runs, the email. Defaults to os.Stdout.
	Stdout io.Writer
	// HTTPClient is used for the feed and the remote table. Built from the
	// configured timeout when nil.
	HTTPClient *http.Client
	// Transport replaces the SMTP transport when set.
	Transport mailer.Transport
	Now       func() time.Time
}

// Application holds the wired pipeline and the run's telemetry.
type Application struct {
	Config   *config.Config
	Pipeline *Pipeline
	Logger   *slog.Logger
	OTel     *infrastructure.OTelProviders
	Metrics  *infrastructure.RunMetrics
}

// NewApplication wires every component from cfg. The logger should already be
// initialized; nil falls back to slog.Default.
func NewApplication(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	otelProviders, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    infrastructure.ServiceName,
		ServiceVersion: infrastructure.ServiceVersion,
		TraceExporter:  cfg.Metrics.TraceExporter,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Source.HTTPTimeout}
	}

	remote, err := config.NewRemoteSource(ctx, cfg.Remote, httpClient)
	if err != nil {
		return nil, err
	}

	transport := opts.Transport
	switch {
	case transport != nil:
	case opts.DryRun:
		transport = mailer.NewConsoleTransport(stdout)
	default:
		transport = mailer.NewSMTPTransport(mailer.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.From,
			Password: cfg.Mail.Password,
			Timeout:  cfg.Mail.Timeout,
		})
	}

	archiveDir := cfg.Report.ArchiveDir
	if opts.ArchiveDir != "" {
		archiveDir = opts.ArchiveDir
	}
	var archiver ReportArchiver
	if archiveDir != "" {
		dirs := validation.NewDirectoryValidator(infrastructure.WithComponent(logger, "archive"))
		if err := dirs.ValidateOutputDirectory(archiveDir); err != nil {
			return nil, err
		}
		archiver = exporter.NewArchiver(archiveDir)
	}

	metrics := infrastructure.NewRunMetrics()

	pipeline := &Pipeline{
		Resolver: config.NewResolver(remote, cfg.Report, cfg.Source.HTTPTimeout,
			infrastructure.WithComponent(logger, "config")),
		Loader: source.NewLoader(httpClient, cfg.Source.HTTPTimeout,
			infrastructure.WithComponent(logger, "source")),
		Selector: dataprocessing.NewSelector(dataprocessing.NewCorrection(cfg.YearOffsetValue()),
			infrastructure.WithComponent(logger, "selector")),
		Render:   exporter.RenderWorkbook,
		Archiver: archiver,
		Notifier: mailer.NewNotifier(transport, cfg.Mail.From, cfg.Mail.To, cfg.Report.SubjectPrefix,
			infrastructure.WithComponent(logger, "mailer")),
		Source:  cfg.Source.CSVURL,
		Out:     stdout,
		Now:     opts.Now,
		Tracer:  otelProviders.Tracer,
		Metrics: metrics,
		Logger:  logger,
	}

	logger.InfoContext(ctx, "Application configured",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("commit", contracts.GitCommit),
		slog.Bool("dry_run", opts.DryRun),
		slog.Bool("remote_config", remote != nil),
		slog.String("archive_dir", archiveDir),
		slog.String("transport", fmt.Sprint(transport)))

	return &Application{
		Config:   cfg,
		Pipeline: pipeline,
		Logger:   logger,
		OTel:     otelProviders,
		Metrics:  metrics,
	}, nil
}

// Run executes one report and flushes telemetry. The pipeline error, if any,
// is returned unchanged; telemetry failures are logged only.
func (a *Application) Run(ctx context.Context) (*domain.ReportResult, error) {
	result, err := a.Pipeline.Run(ctx)

	if path := a.Config.Metrics.Textfile; path != "" {
		if werr := a.Metrics.WriteTextfile(path); werr != nil {
			a.Logger.WarnContext(ctx, "Failed to write metrics textfile",
				slog.String("path", path), slog.String("error", werr.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if serr := a.OTel.Shutdown(shutdownCtx); serr != nil {
		a.Logger.WarnContext(ctx, "Tracing shutdown failed", slog.String("error", serr.Error()))
	}

	return result, err
}
