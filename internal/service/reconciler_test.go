package service

import (
	"context"
	"testing"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/Harshitk-cp/clawguild/internal/provider"
	"github.com/Harshitk-cp/clawguild/internal/runtime"
	"github.com/Harshitk-cp/clawguild/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReconciler_MarksProviderFailures(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	id := f.seedAgent(t, "lead", domain.RuntimeOpenClaw)
	dep, err := f.manager.DeployAgent(ctx, id, "mock", "")
	require.NoError(t, err)

	r := NewReconciler(f.manager, zap.NewNop())

	assert.Equal(t, 0, r.run(ctx), "healthy deployments are left alone")
	assert.Equal(t, domain.DeploymentRunning, f.deps.get(dep.ID).Status)

	f.adapter.Statuses = []domain.ProviderStatus{{Status: domain.DeploymentFailed}}
	assert.Equal(t, 1, r.run(ctx))
	assert.Equal(t, domain.DeploymentFailed, f.deps.get(dep.ID).Status)
	assert.Equal(t, domain.AgentError, f.agents.get(id).Status)
	assert.Nil(t, f.agents.get(id).DeploymentID, "failed agents are unlinked")

	assert.Equal(t, 0, r.run(ctx), "failed deployments are not running anymore")
}

// destroyingAdapter lets a destroy complete between the reconciler's
// status check and its write.
type destroyingAdapter struct {
	*provider.MockAdapter
	beforeStatus func()
}

func (a *destroyingAdapter) GetStatus(ctx context.Context, id domain.DeploymentID) (domain.ProviderStatus, error) {
	if a.beforeStatus != nil {
		a.beforeStatus()
	}
	return a.MockAdapter.GetStatus(ctx, id)
}

func TestReconciler_DoesNotReviveDestroyedDeployment(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	adapter := &destroyingAdapter{MockAdapter: f.adapter}
	manager := NewDeploymentManager(f.agents, f.deps, provider.NewRegistry(adapter),
		runtime.DefaultRegistry(), ManagerOptions{Sleep: noSleep, Metrics: telemetry.NewNoopMetrics()}, zap.NewNop())

	id := f.seedAgent(t, "lead", domain.RuntimeOpenClaw)
	dep, err := manager.DeployAgent(ctx, id, "mock", "")
	require.NoError(t, err)

	f.adapter.Statuses = []domain.ProviderStatus{{Status: domain.DeploymentFailed}}
	adapter.beforeStatus = func() {
		adapter.beforeStatus = nil
		require.NoError(t, manager.DestroyAgent(ctx, id))
	}

	r := NewReconciler(manager, zap.NewNop())
	assert.Equal(t, 0, r.run(ctx))
	assert.Equal(t, domain.DeploymentStopped, f.deps.get(dep.ID).Status)
	assert.Equal(t, domain.AgentStopped, f.agents.get(id).Status)
}

func TestReconciler_SkipsUnconfiguredProviders(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	id := f.seedAgent(t, "lead", domain.RuntimeOpenClaw)
	require.NoError(t, f.deps.Create(ctx, &domain.Deployment{
		AgentID: id, Provider: domain.ProviderAWS, Status: domain.DeploymentRunning,
	}))

	r := NewReconciler(f.manager, zap.NewNop())
	assert.Equal(t, 0, r.run(ctx))
}

func TestReconciler_StartStop(t *testing.T) {
	f := newManagerFixture(t)
	r := NewReconciler(f.manager, zap.NewNop())
	r.SetInterval(10 * time.Millisecond)
	r.Start()
	time.Sleep(30 * time.Millisecond)
	r.Stop()
}
