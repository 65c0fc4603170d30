package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"classwatch/internal/dataprocessing"
	apperrors "classwatch/internal/errors"
	"classwatch/internal/infrastructure"
	"classwatch/pkg/contracts/domain"
)

type fakeResolver struct {
	params domain.RunConfig
	err    error
	calls  int
}

func (f *fakeResolver) Resolve(context.Context) (domain.RunConfig, error) {
	f.calls++
	return f.params, f.err
}

type fakeLoader struct {
	ds       *domain.Dataset
	err      error
	location string
	calls    int
}

func (f *fakeLoader) Load(_ context.Context, location string) (*domain.Dataset, error) {
	f.calls++
	f.location = location
	return f.ds, f.err
}

type fakeArchiver struct {
	err   error
	calls int
}

func (f *fakeArchiver) Archive(*domain.ReportResult, *domain.Attachment) ([]string, error) {
	f.calls++
	return []string{"report.xlsx"}, f.err
}

type fakeNotifier struct {
	err        error
	calls      int
	result     *domain.ReportResult
	attachment *domain.Attachment
}

func (f *fakeNotifier) Notify(_ context.Context, result *domain.ReportResult, attachment *domain.Attachment) error {
	f.calls++
	f.result = result
	f.attachment = attachment
	return f.err
}

type nilSelector struct{}

func (nilSelector) Select(*domain.Dataset, time.Time, domain.RunConfig) *domain.Dataset {
	return nil
}

var fixedNow = time.Date(2025, time.June, 1, 10, 0, 0, 0, time.Local)

func feed(rows ...[]string) *domain.Dataset {
	ds := &domain.Dataset{Columns: []string{"name", "start_date", "total_student"}}
	for _, r := range rows {
		ds.Records = append(ds.Records, domain.ClassRecord{Values: r})
	}
	return ds
}

type fixture struct {
	resolver *fakeResolver
	loader   *fakeLoader
	archiver *fakeArchiver
	notifier *fakeNotifier
	out      *bytes.Buffer
	pipeline *Pipeline
}

func newFixture(ds *domain.Dataset) *fixture {
	f := &fixture{
		resolver: &fakeResolver{params: domain.DefaultRunConfig()},
		loader:   &fakeLoader{ds: ds},
		archiver: &fakeArchiver{},
		notifier: &fakeNotifier{},
		out:      &bytes.Buffer{},
	}
	f.pipeline = &Pipeline{
		Resolver: f.resolver,
		Loader:   f.loader,
		Selector: dataprocessing.NewSelector(dataprocessing.NewCorrection(2), nil),
		Archiver: f.archiver,
		Notifier: f.notifier,
		Source:   "https://example.com/classes.csv",
		Out:      f.out,
		Now:      func() time.Time { return fixedNow },
		Metrics:  infrastructure.NewRunMetrics(),
		Logger:   slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}
	return f
}

func TestPipeline_Run(t *testing.T) {
	f := newFixture(feed(
		[]string{"A1", "2023-06-05", "10"},
		[]string{"B2", "2023-06-05", "20"},
		[]string{"C3", "2023-07-30", "5"},
		[]string{"D4", "not a date", "3"},
	))

	result, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/classes.csv", f.loader.location)
	require.Equal(t, 1, result.Classes.Len())
	assert.Equal(t, "A1", result.Classes.Records[0].Values[0])
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.Local), result.ReferenceDate)
	assert.Equal(t, domain.DefaultRunConfig(), result.Params)

	assert.Equal(t, 1, f.archiver.calls)
	require.Equal(t, 1, f.notifier.calls)
	require.NotNil(t, f.notifier.attachment)
	assert.Equal(t, "report_2025-06-01.xlsx", f.notifier.attachment.Filename)

	assert.Contains(t, f.out.String(), "fewer than 15 students: 1")
	assert.Contains(t, f.out.String(), "A1")

	m := f.pipeline.Metrics
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RowsLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassesSelected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailsSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LastSuccess))
}

func TestPipeline_RunEmpty(t *testing.T) {
	f := newFixture(feed([]string{"B2", "2023-06-05", "20"}))

	result, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Empty())

	// the notice is still sent, without an attachment, and nothing is archived
	require.Equal(t, 1, f.notifier.calls)
	assert.Nil(t, f.notifier.attachment)
	assert.Equal(t, 0, f.archiver.calls)
	assert.Contains(t, f.out.String(), "(0 matches)")
}

func TestPipeline_RunNoArchiver(t *testing.T) {
	f := newFixture(feed([]string{"A1", "2023-06-05", "10"}))
	f.pipeline.Archiver = nil

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.notifier.calls)
}

func TestPipeline_RunAbortsOnFirstFailure(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(f *fixture)
		wantType     apperrors.ErrorType
		wantLoads    int
		wantArchives int
		wantNotifies int
	}{
		{
			name: "config fetch",
			setup: func(f *fixture) {
				f.resolver.err = apperrors.NewConfigFetchError("https://example.com/cfg.csv", errors.New("503"))
			},
			wantType: apperrors.ErrTypeConfigFetch,
		},
		{
			name: "data fetch",
			setup: func(f *fixture) {
				f.loader.ds = nil
				f.loader.err = apperrors.NewDataFetchError("https://example.com/classes.csv", errors.New("timeout"))
			},
			wantType:  apperrors.ErrTypeDataFetch,
			wantLoads: 1,
		},
		{
			name: "select",
			setup: func(f *fixture) {
				f.pipeline.Selector = nilSelector{}
			},
			wantType:  apperrors.ErrTypeDataParse,
			wantLoads: 1,
		},
		{
			name: "render",
			setup: func(f *fixture) {
				f.pipeline.Render = func(*domain.ReportResult) (*domain.Attachment, error) {
					return nil, apperrors.NewRenderError("broken", errors.New("disk"))
				}
			},
			wantType:  apperrors.ErrTypeRender,
			wantLoads: 1,
		},
		{
			name: "archive",
			setup: func(f *fixture) {
				f.archiver.err = apperrors.NewStorageError("read-only", errors.New("EROFS"))
			},
			wantType:     apperrors.ErrTypeStorage,
			wantLoads:    1,
			wantArchives: 1,
		},
		{
			name: "delivery",
			setup: func(f *fixture) {
				f.notifier.err = apperrors.NewAuthError(errors.New("535"))
			},
			wantType:     apperrors.ErrTypeAuth,
			wantLoads:    1,
			wantArchives: 1,
			wantNotifies: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(feed([]string{"A1", "2023-06-05", "10"}))
			tt.setup(f)

			result, err := f.pipeline.Run(context.Background())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))

			assert.Equal(t, tt.wantLoads, f.loader.calls)
			assert.Equal(t, tt.wantArchives, f.archiver.calls)
			assert.Equal(t, tt.wantNotifies, f.notifier.calls)

			m := f.pipeline.Metrics
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues(string(tt.wantType))))
			assert.Equal(t, 0.0, testutil.ToFloat64(m.LastSuccess))
		})
	}
}

func TestPipeline_RunSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(feed([]string{"A1", "2023-06-05", "10"}))
	f.pipeline.Tracer = tp.Tracer("test")

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Equal(t, []string{
		"report.resolve",
		"report.load",
		"report.select",
		"report.render",
		"report.summary",
		"report.archive",
		"report.notify",
		"report.run",
	}, names)
}

func TestPipeline_RunKeepsTraceID(t *testing.T) {
	var logs bytes.Buffer
	f := newFixture(feed())
	f.pipeline.Logger = infrastructure.NewLogger(&logs, "info")

	ctx := infrastructure.WithTraceID(context.Background(), "run-42")
	_, err := f.pipeline.Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"trace_id":"run-42"`)
}
