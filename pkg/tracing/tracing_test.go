package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"cablesync/internal/config"
)

func TestInit_DisabledInstallsPropagator(t *testing.T) {
	tp, err := Init(config.TracingConfig{}, "sync-service")
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	parent := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	headers := InjectTraceContext(parent, []kafka.Header{{Key: "other", Value: []byte("x")}})
	require.Len(t, headers, 2)

	carrier := headerCarrier(headers)
	assert.Contains(t, carrier.Get("traceparent"), traceID.String())
	assert.ElementsMatch(t, []string{"other", "traceparent"}, carrier.Keys())

	extracted := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), headers))
	assert.Equal(t, traceID, extracted.TraceID())

	ctx, span := StartConsumerSpan(context.Background(), kafka.Message{Topic: "import_requests", Headers: headers})
	defer span.End()
	assert.Equal(t, traceID, trace.SpanContextFromContext(ctx).TraceID())
}

func TestInit_EnabledRequiresEndpoint(t *testing.T) {
	_, err := Init(config.TracingConfig{Enabled: true}, "sync-service")
	assert.ErrorContains(t, err, "tracing.otlp.endpoint")
}

func TestHeaderCarrier_SetReplaces(t *testing.T) {
	carrier := headerCarrier{}
	carrier.Set("traceparent", "a")
	carrier.Set("traceparent", "b")
	require.Len(t, carrier, 1)
	assert.Equal(t, "b", carrier.Get("traceparent"))
	assert.Empty(t, carrier.Get("missing"))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		cfg  config.SamplerConfig
		want string
	}{
		{config.SamplerConfig{Type: "always_off"}, sdktrace.NeverSample().Description()},
		{config.SamplerConfig{Type: "traceidratio", Param: 0.5}, sdktrace.TraceIDRatioBased(0.5).Description()},
		{config.SamplerConfig{Type: "parentbased_always_on"}, sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
		{config.SamplerConfig{Type: "bogus"}, sdktrace.AlwaysSample().Description()},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Type, func(t *testing.T) {
			assert.Equal(t, tt.want, Sampler(tt.cfg).Description())
		})
	}
}
