package arrestor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Bahjat/arrestorgear/internal/failure"
	"github.com/Bahjat/arrestorgear/internal/future"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Sum[int64] {
	t.Helper()

	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &data))

	sums := make(map[string]metricdata.Sum[int64])
	for _, scope := range data.ScopeMetrics {
		for _, m := range scope.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				sums[m.Name] = sum
			}
		}
	}
	return sums
}

func total(sum metricdata.Sum[int64], attr attribute.KeyValue) int64 {
	var n int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v.Emit() == attr.Value.Emit() {
			n += dp.Value
		}
	}
	return n
}

func TestGear_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("test")
	sink := &recordingSink{}

	pending, _, reject := future.New[string]()
	claimed, err := New(pending, WithMeter(meter), WithName("login"), WithSink(sink))
	require.NoError(t, err)
	claimed.CaptureStatusCode(failure.Codes(403), func(failure.HTTPContext) {})
	reject(&httpError{resp: &failure.Response{Status: 403}})
	waitDone(t, claimed)

	unclaimed, err := New(future.Rejected[string](errAbort), WithMeter(meter), WithName("login"))
	require.NoError(t, err)
	waitDone(t, unclaimed)

	fulfilled, err := New(future.Resolved("ok"), WithMeter(meter), WithName("login"), WithSink(sink))
	require.NoError(t, err)
	waitDone(t, fulfilled)
	fulfilled.OnFulfilled(func(string) { panic("hook failed") })

	sums := collectSums(t, reader)

	assert.Equal(t, int64(2), total(sums[MetricSettlements], attribute.String(AttrOutcome, "rejected")))
	assert.Equal(t, int64(1), total(sums[MetricSettlements], attribute.String(AttrOutcome, "fulfilled")))
	assert.Equal(t, int64(1), total(sums[MetricClaims], attribute.String(AttrArrestor, "status")))
	assert.Equal(t, int64(1), total(sums[MetricUnclaimed], attribute.String(AttrGear, "login")))
	assert.Equal(t, int64(1), total(sums[MetricHookFaults], attribute.String(AttrStage, stageFulfilled)))
	assert.Equal(t, 1, sink.count())
}
