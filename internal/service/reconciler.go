package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultReconcileInterval = time.Minute

// Reconciler periodically checks running deployments against their
// provider and fails the ones the provider reports as failed.
type Reconciler struct {
	manager *DeploymentManager
	logger  *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewReconciler(manager *DeploymentManager, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		manager:  manager,
		logger:   logger,
		interval: defaultReconcileInterval,
		stopCh:   make(chan struct{}),
	}
}

func (r *Reconciler) SetInterval(d time.Duration) {
	if d > 0 {
		r.interval = d
	}
}

// Start runs the reconciler on a periodic schedule in a background goroutine.
func (r *Reconciler) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("deployment reconciler started", zap.Duration("interval", r.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				r.run(ctx)
				cancel()
			case <-r.stopCh:
				r.logger.Info("deployment reconciler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the reconciler.
func (r *Reconciler) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

// run returns how many deployments were marked failed.
func (r *Reconciler) run(ctx context.Context) int {
	m := r.manager
	deps, err := m.deployments.ListByStatus(ctx, domain.DeploymentRunning)
	if err != nil {
		r.logger.Error("failed to list running deployments", zap.Error(err))
		return 0
	}

	failed := 0
	for i := range deps {
		dep := &deps[i]
		log := r.logger.With(zap.String("deployment_id", dep.ID.String()), zap.String("provider", string(dep.Provider)))

		adapter, err := m.adapters.Get(string(dep.Provider))
		if err != nil {
			log.Warn("skipping deployment with unconfigured provider")
			continue
		}
		st, err := adapter.GetStatus(ctx, providerRef(dep))
		if err != nil {
			log.Warn("status check failed", zap.Error(err))
			continue
		}
		if st.Status != domain.DeploymentFailed {
			continue
		}

		release, err := m.locks.acquire(dep.Members()...)
		if err != nil {
			log.Debug("deployment busy, retrying next round")
			continue
		}
		if r.failDeployment(ctx, dep.ID, log) {
			failed++
		}
		release()
	}
	return failed
}

// failDeployment must be called with the members locked. The deployment is
// re-read so a destroy that finished during the status check wins.
func (r *Reconciler) failDeployment(ctx context.Context, id uuid.UUID, log *zap.Logger) bool {
	m := r.manager
	dep, err := m.deployments.GetByID(ctx, id)
	if err != nil {
		log.Warn("failed to reload deployment", zap.Error(err))
		return false
	}
	if dep.Status != domain.DeploymentRunning {
		log.Debug("deployment changed during status check", zap.String("status", string(dep.Status)))
		return false
	}

	primary := domain.Agent{ID: dep.AgentID}
	if a, err := m.agents.GetByID(ctx, dep.AgentID); err == nil {
		primary = *a
	}
	err = errors.Join(
		m.fail(ctx, dep, primary, "provider reported failure after start"),
		m.unlink(ctx, dep.Members()),
	)
	if err != nil {
		log.Error("failed to mark deployment failed", zap.Error(err))
		return false
	}
	m.opts.Metrics.ReconcileFailed(ctx, string(dep.Provider))
	log.Warn("running deployment reported failed by provider")
	return true
}
