// Package probe sends one request per target URL and sorts each outcome
// through an arrestor gear.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/Bahjat/arrestorgear/internal/arrestor"
	"github.com/Bahjat/arrestorgear/internal/failure"
	"github.com/Bahjat/arrestorgear/internal/future"
	"github.com/Bahjat/arrestorgear/internal/httpcall"
	"github.com/Bahjat/arrestorgear/internal/model"
	"github.com/Bahjat/arrestorgear/internal/platform/requestid"
)

const defaultConcurrency = 4

// upstreamFailures are server-side statuses reported separately from other
// HTTP failures.
var upstreamFailures = failure.Masks("5XX")

// Service probes URLs and logs results.
type Service struct {
	sender      Sender
	logger      *slog.Logger
	method      string
	body        any
	expect      failure.StatusPatterns
	concurrency int
	gearOpts    []arrestor.Option
}

// Option configures a Service.
type Option func(*Service)

// WithRequest sets the method and body sent to every target.
func WithRequest(method string, body any) Option {
	return func(s *Service) {
		s.method = method
		s.body = body
	}
}

// WithExpected marks failures with a matching status as expected.
func WithExpected(patterns failure.StatusPatterns) Option {
	return func(s *Service) { s.expect = patterns }
}

// WithConcurrency limits how many targets are probed at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithGearOptions passes extra options to every gear the Service creates.
func WithGearOptions(opts ...arrestor.Option) Option {
	return func(s *Service) { s.gearOpts = append(s.gearOpts, opts...) }
}

// NewService creates a Service backed by the given sender.
func NewService(sender Sender, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		sender:      sender,
		logger:      logger,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// With returns a copy of s with opts applied.
func (s *Service) With(opts ...Option) *Service {
	c := *s
	c.gearOpts = slices.Clone(s.gearOpts)
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Probe sends the configured request to target and waits until its gear has
// finished. The returned error is non-nil only when the gear could not be
// built.
func (s *Service) Probe(ctx context.Context, target string) (model.Report, error) {
	ctx, id := requestid.Ensure(ctx)
	logger := s.logger.With("url", target, "request_id", id)
	report := model.Report{URL: target, RequestID: id}

	opts := append([]arrestor.Option{arrestor.WithName("probe"), arrestor.WithLogger(logger)}, s.gearOpts...)
	gear, err := arrestor.NewFromFactory(func() *future.Future[*httpcall.Result] {
		return s.sender.Send(ctx, httpcall.Request{Method: s.method, URL: target, Body: s.body})
	}, opts...)
	if err != nil {
		return report, fmt.Errorf("probe %s: %w", target, err)
	}

	gear.OnFulfilled(func(res *httpcall.Result) {
		report.Outcome = model.OutcomeOK
		report.Status = res.Status
	})

	if len(s.expect) > 0 {
		gear.CaptureStatusCode(s.expect, func(hc failure.HTTPContext) {
			report.Outcome = model.OutcomeExpected
			report.Status = hc.Status
			report.Message = messageOf(hc.Data)
		})
	}

	gear.
		CaptureValidationError(func(bag *failure.MessageBag, hc failure.HTTPContext) {
			report.Outcome = model.OutcomeValidation
			report.Status = hc.Status
			report.Message = bag.Message()
			report.Fields = bag.All()
		}).
		CaptureStatusCode(upstreamFailures, func(hc failure.HTTPContext) {
			report.Outcome = model.OutcomeUpstream
			report.Status = hc.Status
			report.Message = messageOf(hc.Data)
		}).
		CaptureHTTPError(func(hc failure.HTTPContext) {
			report.Outcome = model.OutcomeHTTP
			report.Status = hc.Status
			report.Message = messageOf(hc.Data)
		}).
		CaptureAny(func(err error) {
			report.Outcome = model.OutcomeFailed
			report.Error = err.Error()
		})

	// The gear settles even when ctx ends, because the request is bound to ctx.
	<-gear.Finally(nil).Done()

	attrs := []any{"outcome", report.Outcome}
	if report.Status != 0 {
		attrs = append(attrs, "target_status", report.Status)
	}
	if report.Unexpected() {
		logger.Warn("probe failed", append(attrs, "message", report.Message, "error", report.Error)...)
	} else {
		logger.Info("probe complete", attrs...)
	}
	return report, nil
}

// ProbeAll probes targets concurrently, bounded by the configured
// concurrency, and returns reports in target order.
func (s *Service) ProbeAll(ctx context.Context, targets []string) ([]model.Report, error) {
	reports := make([]model.Report, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			r, err := s.Probe(ctx, target)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// messageOf extracts a human-readable message from a decoded failure body.
func messageOf(data any) string {
	switch d := data.(type) {
	case string:
		return d
	case map[string]any:
		if msg, ok := d["message"].(string); ok {
			return msg
		}
	}
	return ""
}
