package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	attrMethod     = attribute.Key("http.method")
	attrRoute      = attribute.Key("http.route")
	attrRequestErr = attribute.Key("backend.request.error")
	attrPollScope  = attribute.Key("poll.sessions")
	attrPollErr    = attribute.Key("poll.error")
)

type metrics struct {
	requests  metric.Int64Counter
	latency   metric.Float64Histogram
	pollTicks metric.Int64Counter
}

// RequestData captures the metadata recorded for each backend call.
type RequestData struct {
	Method   string
	Route    string
	Duration time.Duration
	Error    error
}

// PollData captures one background poll tick.
type PollData struct {
	Sessions int
	Error    error
}

func newMetrics(m meterProvider) (*metrics, error) {
	if m == nil {
		return &metrics{}, nil
	}
	requests, err := m.Int64Counter("backend.requests.total", metric.WithDescription("Total number of backend HTTP requests."))
	if err != nil {
		return nil, err
	}
	latency, err := m.Float64Histogram("backend.latency.ms", metric.WithDescription("Backend request latency in milliseconds."), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	pollTicks, err := m.Int64Counter("poll.ticks.total", metric.WithDescription("Total number of session job poll ticks."))
	if err != nil {
		return nil, err
	}
	return &metrics{
		requests:  requests,
		latency:   latency,
		pollTicks: pollTicks,
	}, nil
}

func (m *metrics) RecordRequest(ctx context.Context, data RequestData) {
	if m == nil || m.requests == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attrMethod.String(data.Method),
		attrRoute.String(data.Route),
		attrRequestErr.Bool(data.Error != nil),
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	if data.Duration > 0 && m.latency != nil {
		m.latency.Record(ctx, float64(data.Duration.Milliseconds()), metric.WithAttributes(attrs...))
	}
}

func (m *metrics) RecordPoll(ctx context.Context, data PollData) {
	if m == nil || m.pollTicks == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attrPollScope.Int(data.Sessions),
		attrPollErr.Bool(data.Error != nil),
	}
	m.pollTicks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// meterProvider is the subset of metric.Meter we rely on, which makes
// dependency injection straightforward in tests.
type meterProvider interface {
	Int64Counter(name string, opts ...metric.Int64CounterOption) (metric.Int64Counter, error)
	Float64Histogram(name string, opts ...metric.Float64HistogramOption) (metric.Float64Histogram, error)
}
