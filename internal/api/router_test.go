package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/Harshitk-cp/clawguild/internal/provider"
	clawruntime "github.com/Harshitk-cp/clawguild/internal/runtime"
	"github.com/Harshitk-cp/clawguild/internal/service"
	"github.com/Harshitk-cp/clawguild/internal/store"
	"github.com/Harshitk-cp/clawguild/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	srv     *httptest.Server
	adapter *provider.MockAdapter
	apiKey  string
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	agents := store.NewMemoryAgentStore()
	deps := store.NewMemoryDeploymentStore()
	adapter := provider.NewMockAdapter("mock")
	providers := provider.NewRegistry(adapter)
	runtimes := clawruntime.DefaultRegistry()

	manager := service.NewDeploymentManager(agents, deps, providers, runtimes, service.ManagerOptions{
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 3,
		Metrics:         telemetry.NewNoopMetrics(),
	}, logger)
	deploymentSvc, err := service.NewDeploymentService(deps, providers, time.Millisecond, logger)
	require.NoError(t, err)
	t.Cleanup(deploymentSvc.Close)

	app := NewApp(Services{
		Agents:      service.NewAgentService(agents, deps, manager, logger),
		Deployments: deploymentSvc,
		Manager:     manager,
		Providers:   providers,
		Runtimes:    runtimes,
	}, Options{APIKey: apiKey, RateLimitRPS: 1000, RateLimitBurst: 1000}, logger)
	t.Cleanup(app.Close)

	srv := httptest.NewServer(app.Router)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, adapter: adapter, apiKey: apiKey}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (e *testEnv) createAgent(t *testing.T, name string) domain.Agent {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/v1/agents", map[string]any{
		"name":           name,
		"role":           "master",
		"model_provider": "anthropic",
		"model_api_key":  "sk-test",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var resp struct {
		Agent domain.Agent `json:"agent"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Agent
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")
	status, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"ok"`)
	assert.Contains(t, string(body), `"version"`)
}

func TestHealth_Unhealthy(t *testing.T) {
	app := NewApp(Services{
		Providers: provider.NewRegistry(),
		Runtimes:  clawruntime.DefaultRegistry(),
	}, Options{Health: func(context.Context) error { return errors.New("db down") }}, zap.NewNop())
	defer app.Close()

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, "secret")

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/v1/agents", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	status, _ := env.do(t, http.MethodGet, "/v1/agents", nil)
	assert.Equal(t, http.StatusOK, status)

	// health stays open
	resp, err = http.Get(env.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAgentLifecycle(t *testing.T) {
	env := newTestEnv(t, "")
	agent := env.createAgent(t, "lead")
	assert.Equal(t, domain.AgentPending, agent.Status)
	assert.Equal(t, domain.RuntimeOpenClaw, agent.Runtime)

	status, body := env.do(t, http.MethodPost, fmt.Sprintf("/v1/agents/%s/deploy", agent.ID), map[string]string{"provider": "mock"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var dep domain.Deployment
	require.NoError(t, json.Unmarshal(body, &dep))
	assert.Equal(t, domain.DeploymentRunning, dep.Status)
	assert.Equal(t, "https://mock.local", dep.Endpoint)

	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/v1/agents/%s/status", agent.ID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"running"`)

	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/v1/deployments/%s", dep.ID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), dep.ID.String())

	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/v1/deployments/%s/live", dep.ID), nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"status":"running"`)

	status, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/v1/agents/%s/deployment", agent.ID), nil)
	assert.Equal(t, http.StatusNoContent, status)
	require.Len(t, env.adapter.DestroyCalls, 1)

	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/v1/agents/%s", agent.ID), nil)
	require.Equal(t, http.StatusOK, status)
	var got domain.Agent
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, domain.AgentStopped, got.Status)
	assert.Nil(t, got.DeploymentID)
}

func TestCreateAgent_WithProviderDeploys(t *testing.T) {
	env := newTestEnv(t, "")
	status, body := env.do(t, http.MethodPost, "/v1/agents", map[string]any{
		"name":     "solo",
		"role":     "slave",
		"provider": "mock",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var resp struct {
		Agent      domain.Agent       `json:"agent"`
		Deployment *domain.Deployment `json:"deployment"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.Deployment)
	assert.Equal(t, domain.AgentRunning, resp.Agent.Status)
	assert.Equal(t, resp.Deployment.ID, *resp.Agent.DeploymentID)
}

func TestCreateAgent_Validation(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name string
		body any
	}{
		{"missing name", map[string]any{"role": "master"}},
		{"bad role", map[string]any{"name": "a", "role": "boss"}},
		{"bad runtime", map[string]any{"name": "a", "runtime": "claw9000"}},
		{"unknown field", map[string]any{"name": "a", "tenant": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, "/v1/agents", tt.body)
			assert.Equal(t, http.StatusBadRequest, status, string(body))
			assert.Contains(t, string(body), `"error"`)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, "")
	agent := env.createAgent(t, "lead")

	status, _ := env.do(t, http.MethodGet, "/v1/agents/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodGet, "/v1/agents/00000000-0000-0000-0000-000000000001", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body := env.do(t, http.MethodPost, fmt.Sprintf("/v1/agents/%s/deploy", agent.ID), map[string]string{"provider": "aws"})
	assert.Equal(t, http.StatusBadRequest, status, "unconfigured provider")
	assert.Contains(t, string(body), "not configured")

	env.adapter.Statuses = []domain.ProviderStatus{{Status: domain.DeploymentCreating}}
	status, _ = env.do(t, http.MethodPost, fmt.Sprintf("/v1/agents/%s/deploy", agent.ID), map[string]string{"provider": "mock"})
	assert.Equal(t, http.StatusGatewayTimeout, status)

	other := env.createAgent(t, "other")
	env.adapter.Statuses = []domain.ProviderStatus{{Status: domain.DeploymentFailed}}
	status, _ = env.do(t, http.MethodPost, fmt.Sprintf("/v1/agents/%s/deploy", other.ID), map[string]string{"provider": "mock"})
	assert.Equal(t, http.StatusBadGateway, status)

	third := env.createAgent(t, "third")
	env.adapter.DeployError = errors.New("socket closed")
	status, body = env.do(t, http.MethodPost, fmt.Sprintf("/v1/agents/%s/deploy", third.ID), map[string]string{"provider": "mock"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, string(body), "socket closed", "internal errors stay opaque")
}

func TestDeployMulti_WithTelegramSettings(t *testing.T) {
	env := newTestEnv(t, "")
	lead := env.createAgent(t, "lead")
	helper := env.createAgent(t, "helper")

	status, body := env.do(t, http.MethodPost, "/v1/deployments/multi", map[string]any{
		"agent_ids": []string{lead.ID.String(), helper.ID.String()},
		"provider":  "mock",
		"telegram_settings": map[string]any{
			"dm_policy":  "allowlist",
			"allow_from": []string{"12345"},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var dep domain.Deployment
	require.NoError(t, json.Unmarshal(body, &dep))
	assert.Len(t, dep.AgentIDs, 2)

	require.Len(t, env.adapter.DeployCalls, 1)
	assert.Len(t, env.adapter.DeployCalls[0].Agents, 2)

	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/v1/agents/%s", helper.ID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"dmPolicy":"allowlist"`)

	status, body = env.do(t, http.MethodGet, "/v1/deployments", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), dep.ID.String())
}

func TestDeployMulti_RejectsEmptyAndDuplicates(t *testing.T) {
	env := newTestEnv(t, "")
	lead := env.createAgent(t, "lead")

	status, _ := env.do(t, http.MethodPost, "/v1/deployments/multi", map[string]any{"agent_ids": []string{}, "provider": "mock"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/v1/deployments/multi", map[string]any{
		"agent_ids": []string{lead.ID.String(), lead.ID.String()},
		"provider":  "mock",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Empty(t, env.adapter.DeployCalls)
}

func TestUpdateTelegram_InvalidPolicy(t *testing.T) {
	env := newTestEnv(t, "")
	agent := env.createAgent(t, "lead")

	status, body := env.do(t, http.MethodPut, "/v1/agents/telegram", map[string]any{
		"agent_ids": []string{agent.ID.String()},
		"settings":  map[string]any{"enabled": true, "dm_policy": "open", "allow_from": []string{"42"}},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "allowFrom")

	status, _ = env.do(t, http.MethodPut, "/v1/agents/telegram", map[string]any{
		"agent_ids": []string{agent.ID.String()},
		"settings":  map[string]any{"enabled": true, "dm_policy": "open", "allow_from": []string{"*"}},
	})
	assert.Equal(t, http.StatusOK, status)
}

func TestDeploymentLogs(t *testing.T) {
	env := newTestEnv(t, "")
	agent := env.createAgent(t, "lead")
	env.adapter.LogsResponse = []string{"booting", "ready"}

	status, body := env.do(t, http.MethodPost, fmt.Sprintf("/v1/agents/%s/deploy", agent.ID), map[string]string{"provider": "mock"})
	require.Equal(t, http.StatusCreated, status)
	var dep domain.Deployment
	require.NoError(t, json.Unmarshal(body, &dep))

	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/v1/deployments/%s/logs?lines=50", dep.ID), nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), "ready")
	assert.Equal(t, []int{50}, env.adapter.LogsCalls)

	status, _ = env.do(t, http.MethodGet, fmt.Sprintf("/v1/deployments/%s/logs?lines=-1", dep.ID), nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProviders(t *testing.T) {
	env := newTestEnv(t, "")
	status, body := env.do(t, http.MethodGet, "/v1/providers", nil)
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Providers []string `json:"providers"`
		Runtimes  []string `json:"runtimes"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, []string{"mock"}, resp.Providers)
	assert.Contains(t, resp.Runtimes, "openclaw")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(t, http.MethodGet, "/v1/agents", nil)
	env.do(t, http.MethodGet, "/v1/agents/nope", nil)

	status, body := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	assert.GreaterOrEqual(t, m["request_count"], float64(2))
	assert.GreaterOrEqual(t, m["error_count"], float64(1))
}
