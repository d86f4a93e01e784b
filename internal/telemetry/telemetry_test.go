package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_ExposesRecordedMetrics(t *testing.T) {
	ctx := context.Background()
	p, err := Setup(ctx, "clawguild-test")
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(ctx) }()

	m, err := NewMetrics(p.Meter())
	require.NoError(t, err)

	m.DeployStarted(ctx, "flyio")
	m.DeployFinished(ctx, "flyio", "running", 3*time.Second)
	m.Destroyed(ctx, "flyio", "ok")
	m.Request(ctx, http.MethodGet, "/v1/agents", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, "clawguild_deployments_started")
	assert.Contains(t, out, "clawguild_deployments_finished")
	assert.Contains(t, out, "clawguild_http_requests")
	assert.Contains(t, out, `provider="flyio"`)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.DeployStarted(ctx, "aws")
		m.DeployFinished(ctx, "aws", "failed", time.Second)
		m.Destroyed(ctx, "aws", "error")
		m.ReconcileFailed(ctx, "aws")
		m.Request(ctx, http.MethodPost, "/", http.StatusCreated, time.Millisecond)
	})
	assert.NotNil(t, NewNoopMetrics())
}
