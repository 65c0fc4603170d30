package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestInitializeOTel_Disabled(t *testing.T) {
	providers, err := InitializeOTel(nil, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, providers.Tracer)
	assert.Nil(t, providers.TracerProvider)

	ctx, span := providers.Tracer.Start(context.Background(), "noop")
	span.End()
	assert.Empty(t, TraceIDFromContext(ctx))
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_Stdout(t *testing.T) {
	var spans bytes.Buffer
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		TraceExporter:  "stdout",
		Writer:         &spans,
	}, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, providers.TracerProvider)

	ctx, span := providers.Tracer.Start(context.Background(), "load")
	traceID := TraceIDFromContext(ctx)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)

	SetSpanAttributes(ctx, map[string]interface{}{"rows": 3, "source": "feed.csv"})
	RecordError(ctx, errors.New("boom"))
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
	out := spans.String()
	assert.Contains(t, out, `"Name": "load"`)
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, traceID)
}

func TestInitializeOTel_UnknownExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "jaeger"}, quietLogger())
	assert.Error(t, err)
}

func TestTraceIDFromContext_NoSpan(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
}
