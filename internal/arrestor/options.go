package arrestor

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
)

// Sink receives hook faults that no OnError hook is registered to handle.
type Sink interface {
	Report(gearID string, fault error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(gearID string, fault error)

// Report calls f.
func (f SinkFunc) Report(gearID string, fault error) {
	f(gearID, fault)
}

// LogSink reports faults at error level. A nil logger means slog.Default()
// at report time.
func LogSink(logger *slog.Logger) Sink {
	return SinkFunc(func(gearID string, fault error) {
		l := logger
		if l == nil {
			l = slog.Default()
		}
		l.Error("unhandled hook fault", "gear_id", gearID, "error", fault)
	})
}

// Option configures a Gear.
type Option func(*options)

type options struct {
	name   string
	sink   Sink
	logger *slog.Logger
	meter  metric.Meter
}

// WithName labels the gear in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithSink replaces the default fault sink.
func WithSink(sink Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithLogger sets the logger used for lifecycle messages and, unless WithSink
// is given, for unhandled hook faults.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMeter sets the meter used to create the gear's instruments.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

func buildOptions(opts []Option) options {
	o := options{name: "default"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sink == nil {
		o.sink = LogSink(o.logger)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
