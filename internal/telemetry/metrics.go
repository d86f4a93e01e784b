package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	attrProvider = attribute.Key("provider")
	attrOutcome  = attribute.Key("outcome")
	attrMethod   = attribute.Key("http.method")
	attrRoute    = attribute.Key("http.route")
	attrStatus   = attribute.Key("http.status_code")
)

// Metrics holds the instruments recorded by services and middleware.
// A nil *Metrics records nothing.
type Metrics struct {
	deploysStarted  metric.Int64Counter
	deploysFinished metric.Int64Counter
	deployDuration  metric.Float64Histogram
	destroys        metric.Int64Counter
	reconcileMarks  metric.Int64Counter
	httpRequests    metric.Int64Counter
	httpDuration    metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.deploysStarted, err = meter.Int64Counter("clawguild_deployments_started",
		metric.WithDescription("Deploy calls accepted by the deployment manager"))
	if err != nil {
		return nil, err
	}

	m.deploysFinished, err = meter.Int64Counter("clawguild_deployments_finished",
		metric.WithDescription("Deploy calls finished, by outcome"))
	if err != nil {
		return nil, err
	}

	m.deployDuration, err = meter.Float64Histogram("clawguild_deployment_duration_seconds",
		metric.WithDescription("Time from deploy call to a terminal state"))
	if err != nil {
		return nil, err
	}

	m.destroys, err = meter.Int64Counter("clawguild_destroys",
		metric.WithDescription("Destroy calls, by outcome"))
	if err != nil {
		return nil, err
	}

	m.reconcileMarks, err = meter.Int64Counter("clawguild_reconciler_failures",
		metric.WithDescription("Running deployments the reconciler marked failed"))
	if err != nil {
		return nil, err
	}

	m.httpRequests, err = meter.Int64Counter("clawguild_http_requests",
		metric.WithDescription("HTTP requests served"))
	if err != nil {
		return nil, err
	}

	m.httpDuration, err = meter.Float64Histogram("clawguild_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// NewNoopMetrics returns instruments that discard every measurement.
func NewNoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(meterName))
	return m
}

func (m *Metrics) DeployStarted(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.deploysStarted.Add(ctx, 1, metric.WithAttributes(attrProvider.String(provider)))
}

// DeployFinished records the outcome (running, failed, timeout, rejected,
// error) and elapsed time of one deploy call.
func (m *Metrics) DeployFinished(ctx context.Context, provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attrProvider.String(provider), attrOutcome.String(outcome))
	m.deploysFinished.Add(ctx, 1, attrs)
	m.deployDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *Metrics) Destroyed(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.destroys.Add(ctx, 1, metric.WithAttributes(attrProvider.String(provider), attrOutcome.String(outcome)))
}

func (m *Metrics) ReconcileFailed(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.reconcileMarks.Add(ctx, 1, metric.WithAttributes(attrProvider.String(provider)))
}

func (m *Metrics) Request(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attrMethod.String(method),
		attrRoute.String(route),
		attrStatus.String(strconv.Itoa(status)),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, elapsed.Seconds(), attrs)
}
