package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"classwatch/internal/dataprocessing"
	apperrors "classwatch/internal/errors"
	"classwatch/internal/exporter"
	"classwatch/internal/infrastructure"
	"classwatch/pkg/contracts/domain"
)

// Stage names, used for spans, metrics and logs.
const (
	StageResolve = "resolve"
	StageLoad    = "load"
	StageSelect  = "select"
	StageRender  = "render"
	StageSummary = "summary"
	StageArchive = "archive"
	StageNotify  = "notify"
)

// ConfigResolver produces the selection parameters for a run.
type ConfigResolver interface {
	Resolve(ctx context.Context) (domain.RunConfig, error)
}

// ClassLoader reads the class feed.
type ClassLoader interface {
	Load(ctx context.Context, location string) (*domain.Dataset, error)
}

// ClassSelector filters the feed down to the classes needing attention.
type ClassSelector interface {
	Select(ds *domain.Dataset, today time.Time, params domain.RunConfig) *domain.Dataset
}

// ReportArchiver keeps a copy of a rendered report.
type ReportArchiver interface {
	Archive(result *domain.ReportResult, attachment *domain.Attachment) ([]string, error)
}

// ReportNotifier delivers the report email.
type ReportNotifier interface {
	Notify(ctx context.Context, result *domain.ReportResult, attachment *domain.Attachment) error
}

// RenderFunc turns a result into the email attachment; nil for an empty result.
type RenderFunc func(result *domain.ReportResult) (*domain.Attachment, error)

// Pipeline runs one report end to end. Stages run strictly in order and the
// first failure aborts the run.
type Pipeline struct {
	Resolver ConfigResolver
	Loader   ClassLoader
	Selector ClassSelector
	Render   RenderFunc
	Archiver ReportArchiver // optional
	Notifier ReportNotifier

	// Source is the class feed location handed to the loader.
	Source string
	// Out receives the human-readable summary.
	Out io.Writer
	// Now is the clock the reference date is taken from.
	Now func() time.Time

	Tracer  trace.Tracer
	Metrics *infrastructure.RunMetrics
	Logger  *slog.Logger
}

// Run resolves parameters, loads and filters the feed, renders and prints the
// result, archives it when configured, and sends the email exactly once.
func (p *Pipeline) Run(ctx context.Context) (*domain.ReportResult, error) {
	p.defaults()

	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := p.Tracer.Start(ctx, "report.run",
		trace.WithAttributes(attribute.String("run.id", infrastructure.GetTraceID(ctx))))
	defer span.End()

	start := p.Now()
	today := dataprocessing.Today(start)
	p.Logger.InfoContext(ctx, "Report run started", slog.String("today", today.Format("2006-01-02")))

	result, err := p.run(ctx, today)
	p.Metrics.Finish(start, p.Now(), err == nil)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		p.Logger.ErrorContext(ctx, "Report run failed",
			slog.String("error", err.Error()),
			slog.String("type", errorType(err)))
		return nil, err
	}

	p.Logger.InfoContext(ctx, "Report run complete",
		slog.Int("classes", result.Classes.Len()),
		slog.Duration("duration", p.Now().Sub(start)))
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, today time.Time) (*domain.ReportResult, error) {
	var params domain.RunConfig
	err := p.stage(ctx, StageResolve, func(ctx context.Context) error {
		var err error
		params, err = p.Resolver.Resolve(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	var feed *domain.Dataset
	err = p.stage(ctx, StageLoad, func(ctx context.Context) error {
		var err error
		feed, err = p.Loader.Load(ctx, p.Source)
		p.Metrics.SetRowsLoaded(feed.Len())
		infrastructure.SetSpanAttributes(ctx, map[string]interface{}{"rows": feed.Len()})
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &domain.ReportResult{ReferenceDate: today, Params: params}
	err = p.stage(ctx, StageSelect, func(ctx context.Context) error {
		result.Classes = p.Selector.Select(feed, today, params)
		if result.Classes == nil {
			return apperrors.NewDataParseError("class selection produced no result", nil)
		}
		p.Metrics.SetClassesSelected(result.Classes.Len())
		infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
			"classes":      result.Classes.Len(),
			"days_ahead":   params.DaysAhead,
			"min_students": params.MinStudents,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var attachment *domain.Attachment
	err = p.stage(ctx, StageRender, func(ctx context.Context) error {
		var err error
		attachment, err = p.Render(result)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageSummary, func(ctx context.Context) error {
		if err := exporter.WriteSummary(p.Out, result); err != nil {
			return apperrors.NewRenderError("failed to print summary", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if p.Archiver != nil && attachment != nil {
		err = p.stage(ctx, StageArchive, func(ctx context.Context) error {
			paths, err := p.Archiver.Archive(result, attachment)
			if err == nil {
				p.Logger.InfoContext(ctx, "Report archived", slog.Any("paths", paths))
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	err = p.stage(ctx, StageNotify, func(ctx context.Context) error {
		if err := p.Notifier.Notify(ctx, result, attachment); err != nil {
			return err
		}
		p.Metrics.EmailSent()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// stage runs fn inside its own span and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := p.Tracer.Start(ctx, "report."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.Metrics.ObserveStage(name, time.Since(start))

	if err != nil {
		infrastructure.RecordError(ctx, err)
		p.Metrics.RecordError(errorType(err))
		p.Logger.DebugContext(ctx, "Stage failed", slog.String("stage", name))
		return err
	}
	p.Logger.DebugContext(ctx, "Stage complete", slog.String("stage", name))
	return nil
}

func (p *Pipeline) defaults() {
	if p.Render == nil {
		p.Render = exporter.RenderWorkbook
	}
	if p.Out == nil {
		p.Out = os.Stdout
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Tracer == nil {
		p.Tracer = noop.NewTracerProvider().Tracer("classwatch")
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
}

func errorType(err error) string {
	if t := apperrors.TypeOf(err); t != "" {
		return string(t)
	}
	return "UNKNOWN"
}
