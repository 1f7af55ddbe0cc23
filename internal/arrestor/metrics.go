package arrestor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/Bahjat/arrestorgear/internal/arrestor"

// Instrument names.
const (
	MetricSettlements = "arrestor.settlements"
	MetricClaims      = "arrestor.claims"
	MetricUnclaimed   = "arrestor.unclaimed"
	MetricHookFaults  = "arrestor.hook_faults"
)

// Attribute keys.
const (
	AttrGear     = "gear"
	AttrOutcome  = "outcome"
	AttrArrestor = "arrestor"
	AttrStage    = "stage"
)

type gearMetrics struct {
	gear        attribute.KeyValue
	settlements metric.Int64Counter
	claims      metric.Int64Counter
	unclaimed   metric.Int64Counter
	faults      metric.Int64Counter
}

func newGearMetrics(meter metric.Meter, gear string) *gearMetrics {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	return &gearMetrics{
		gear:        attribute.String(AttrGear, gear),
		settlements: counter(meter, MetricSettlements, "Number of wrapped operations that settled"),
		claims:      counter(meter, MetricClaims, "Number of rejections claimed by an arrestor"),
		unclaimed:   counter(meter, MetricUnclaimed, "Number of rejections no arrestor claimed"),
		faults:      counter(meter, MetricHookFaults, "Number of panics recovered from hooks and arrestors"),
	}
}

// counter falls back to a no-op instrument so a broken meter never stops a gear.
func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}

func (m *gearMetrics) settled(outcome string) {
	m.settlements.Add(context.Background(), 1,
		metric.WithAttributes(m.gear, attribute.String(AttrOutcome, outcome)))
}

func (m *gearMetrics) claimed(kind string) {
	m.claims.Add(context.Background(), 1,
		metric.WithAttributes(m.gear, attribute.String(AttrArrestor, kind)))
}

func (m *gearMetrics) unclaimedRejection() {
	m.unclaimed.Add(context.Background(), 1, metric.WithAttributes(m.gear))
}

func (m *gearMetrics) fault(stage string) {
	m.faults.Add(context.Background(), 1,
		metric.WithAttributes(m.gear, attribute.String(AttrStage, stage)))
}
