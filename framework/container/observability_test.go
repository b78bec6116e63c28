package container_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-inject/framework/container"
)

// ── Metrics ───────────────────────────────────────────────────────────────────

func TestMetrics_RecordsResolutionsAndConstructions(t *testing.T) {
	t.Parallel()

	m := container.NewMetrics("test")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	inj, err := container.Build(serviceGraph(container.Singleton), nil, container.WithMetrics(m))
	require.NoError(t, err)

	container.MustResolve[*Service](inj)
	container.MustResolve[*Service](inj)
	_, err = inj.Resolve(container.KeyOf[*Missing]())
	require.Error(t, err)

	service := container.KeyOf[*Service]().String()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(service, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(container.KeyOf[*Missing]().String(), "unresolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Constructions.WithLabelValues("singleton")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Constructions.WithLabelValues("unique")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Singletons))

	require.NoError(t, inj.Teardown())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Singletons))
}

func TestMetrics_DuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	require.NoError(t, container.NewMetrics("dup").Register(reg))
	assert.Error(t, container.NewMetrics("dup").Register(reg))
}

// ── Tracing ───────────────────────────────────────────────────────────────────

func TestResolveContext_RecordsSpan(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	inj, err := container.Build(serviceGraph(container.Singleton), nil, container.WithTracer(tp.Tracer("test")))
	require.NoError(t, err)

	ctx := container.ContextWithRequestID(context.Background(), "req-42")
	_, err = inj.ResolveContext(ctx, container.KeyOf[*Service]())
	require.NoError(t, err)
	_, err = inj.ResolveContext(context.Background(), container.KeyOf[*Missing]())
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	ok, failed := spans[0], spans[1]
	assert.Equal(t, "container.resolve", ok.Name())
	assert.Contains(t, ok.Attributes(), attribute.String("container.contract", container.KeyOf[*Service]().String()))
	assert.Contains(t, ok.Attributes(), attribute.String("container.request_id", "req-42"))
	assert.Equal(t, codes.Unset, ok.Status().Code)

	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "unresolved", failed.Status().Description)
	require.NotEmpty(t, failed.Events())
	assert.Equal(t, "exception", failed.Events()[0].Name)
}

// ── Logging ───────────────────────────────────────────────────────────────────

func TestInjector_Logging(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	inj, err := container.Build(serviceGraph(container.Singleton), nil, container.WithLogger(zap.New(core)))
	require.NoError(t, err)

	built := logs.FilterMessage("container built").All()
	require.Len(t, built, 1)
	assert.Equal(t, int64(4), built[0].ContextMap()["bindings"])
	assert.Equal(t, "container", built[0].LoggerName)

	container.MustResolve[*Service](inj)
	assert.Equal(t, 1, logs.FilterMessage("singleton created").Len())

	_, _ = inj.Resolve(container.KeyOf[*Missing]())
	failed := logs.FilterMessage("resolution failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, "unresolved", failed[0].ContextMap()["kind"])
	assert.NotEmpty(t, failed[0].ContextMap()["request_id"])
}
