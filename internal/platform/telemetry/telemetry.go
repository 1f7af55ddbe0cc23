// Package telemetry installs an in-process OpenTelemetry meter provider and
// serves a JSON snapshot of its counters.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Point is one counter value with its attributes.
type Point struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      int64             `json:"value"`
}

// Telemetry owns the meter provider and its reader.
type Telemetry struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
	logger   *slog.Logger
}

// Setup creates a meter provider and registers it globally, so instruments
// created through otel.Meter afterwards report into it.
func Setup(logger *slog.Logger) *Telemetry {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	return &Telemetry{provider: provider, reader: reader, logger: logger}
}

// Shutdown flushes and stops the provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// Snapshot collects every int64 counter, keyed by instrument name.
func (t *Telemetry) Snapshot(ctx context.Context) (map[string][]Point, error) {
	var data metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &data); err != nil {
		return nil, err
	}

	out := make(map[string][]Point)
	for _, scope := range data.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				attrs := make(map[string]string, dp.Attributes.Len())
				for _, kv := range dp.Attributes.ToSlice() {
					attrs[string(kv.Key)] = kv.Value.Emit()
				}
				out[m.Name] = append(out[m.Name], Point{Attributes: attrs, Value: dp.Value})
			}
		}
	}

	for _, points := range out {
		sort.Slice(points, func(i, j int) bool { return points[i].Value > points[j].Value })
	}
	return out, nil
}

// RegisterRoutes serves the snapshot at GET /metrics.
func (t *Telemetry) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		snap, err := t.Snapshot(r.Context())
		if err != nil {
			t.logger.Error("failed to collect metrics", "error", err)
			http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	})
}
