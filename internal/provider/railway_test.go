package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRailwayAdapter_Lifecycle(t *testing.T) {
	var (
		gotService railwayServiceRequest
		gotVars    map[string]string
		deleted    bool
		status     = "BUILDING"
	)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/projects", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"project":{"id":"p-1"}}`))
	})
	mux.HandleFunc("POST /v1/projects/p-1/services", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotService)
		_, _ = w.Write([]byte(`{"service":{"id":"s-1"}}`))
	})
	mux.HandleFunc("GET /v1/services/s-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service": map[string]string{"id": "s-1", "status": status, "url": "https://s-1.up.railway.app"},
		})
	})
	mux.HandleFunc("POST /v1/services/s-1/variables", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotVars)
	})
	mux.HandleFunc("DELETE /v1/services/s-1", func(w http.ResponseWriter, r *http.Request) {
		deleted = true
	})
	mux.HandleFunc("GET /v1/services/s-1/logs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"logs":["a","b"]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := NewRailwayAdapter(Options{RailwayAPIKey: "key", RailwayBaseURL: srv.URL}, zap.NewNop())
	ctx := context.Background()

	id, err := a.Deploy(ctx, domain.AgentConfig{
		Agent:   domain.Agent{Name: "Scout"},
		Runtime: domain.RuntimeZeroClaw,
		Env:     map[string]string{"ZEROCLAW_MODEL": "gpt-4o-mini"},
	})
	require.NoError(t, err)
	assert.Equal(t, "railway-s-1", id.ProviderID)
	assert.Equal(t, "scout", gotService.Name)
	assert.Equal(t, "gpt-4o-mini", gotService.Variables["ZEROCLAW_MODEL"])

	st, err := a.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentCreating, st.Status)

	status = "DEPLOYED"
	st, err = a.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentRunning, st.Status)
	assert.Equal(t, "https://s-1.up.railway.app/openclaw", st.GatewayURL)

	require.NoError(t, a.UpdateConfig(ctx, id, domain.AgentConfig{Agent: domain.Agent{DiscordChannelID: "42"}}))
	assert.Equal(t, "42", gotVars["DISCORD_CHANNEL_ID"])

	lines, err := a.GetLogs(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lines)

	require.NoError(t, a.Destroy(ctx, id))
	assert.True(t, deleted)
}

func TestRailwayAdapter_MissingServiceID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/projects" {
			_, _ = w.Write([]byte(`{"project":{"id":"p-1"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"service":{}}`))
	}))
	defer srv.Close()

	a := NewRailwayAdapter(Options{RailwayAPIKey: "key", RailwayBaseURL: srv.URL}, zap.NewNop())
	_, err := a.Deploy(context.Background(), domain.AgentConfig{Agent: domain.Agent{Name: "x"}})
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestRailwayAdapter_BreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewRailwayAdapter(Options{RailwayAPIKey: "key", RailwayBaseURL: srv.URL, BreakerFailures: 2}, zap.NewNop())
	id := domain.DeploymentID{ProviderID: "railway-s-1"}
	for i := 0; i < 3; i++ {
		_, err := a.GetStatus(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrRemoteRejected)
	}
	assert.Equal(t, 2, calls)
}

func TestMapRailwayStatus(t *testing.T) {
	assert.Equal(t, domain.DeploymentRunning, mapRailwayStatus("RUNNING"))
	assert.Equal(t, domain.DeploymentCreating, mapRailwayStatus("deploying"))
	assert.Equal(t, domain.DeploymentFailed, mapRailwayStatus("CRASHED"))
	assert.Equal(t, domain.DeploymentPending, mapRailwayStatus("QUEUED"))
}
