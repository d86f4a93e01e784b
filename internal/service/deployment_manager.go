package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/Harshitk-cp/clawguild/internal/provider"
	"github.com/Harshitk-cp/clawguild/internal/runtime"
	"github.com/Harshitk-cp/clawguild/internal/store"
	"github.com/Harshitk-cp/clawguild/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPollInterval    = 2 * time.Second
	defaultMaxPollAttempts = 30
)

// Embed colors for coordination announcements.
const (
	colorInfo    = 0x3498db
	colorSuccess = 0x2ecc71
	colorFailure = 0xe74c3c
)

type ManagerOptions struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	// Sleep waits between polls and must return ctx.Err() if ctx ends first.
	Sleep func(ctx context.Context, d time.Duration) error

	Messenger domain.Messenger
	Events    domain.EventPublisher
	Metrics   *telemetry.Metrics
}

func (o ManagerOptions) withDefaults() ManagerOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.MaxPollAttempts <= 0 {
		o.MaxPollAttempts = defaultMaxPollAttempts
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	return o
}

// DeploymentManager drives deployments through their lifecycle. Deploy
// calls block until the workload is running, has failed, or the poll
// budget runs out.
type DeploymentManager struct {
	agents      domain.AgentStore
	deployments domain.DeploymentStore
	adapters    *provider.Registry
	runtimes    *runtime.Registry
	opts        ManagerOptions
	locks       *agentLocks
	logger      *zap.Logger
}

func NewDeploymentManager(
	as domain.AgentStore,
	ds domain.DeploymentStore,
	adapters *provider.Registry,
	runtimes *runtime.Registry,
	opts ManagerOptions,
	logger *zap.Logger,
) *DeploymentManager {
	return &DeploymentManager{
		agents:      as,
		deployments: ds,
		adapters:    adapters,
		runtimes:    runtimes,
		opts:        opts.withDefaults(),
		locks:       newAgentLocks(),
		logger:      logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DeployAgent deploys one agent on its own host.
func (m *DeploymentManager) DeployAgent(ctx context.Context, agentID uuid.UUID, providerName, region string) (*domain.Deployment, error) {
	return m.deploy(ctx, []uuid.UUID{agentID}, providerName, region)
}

// DeployAgents deploys several agents on one shared host. The first id is
// the primary agent.
func (m *DeploymentManager) DeployAgents(ctx context.Context, agentIDs []uuid.UUID, providerName, region string) (*domain.Deployment, error) {
	if len(agentIDs) == 0 {
		return nil, fmt.Errorf("%w: agent_ids cannot be empty", domain.ErrInvalidRequest)
	}
	seen := make(map[uuid.UUID]struct{}, len(agentIDs))
	for _, id := range agentIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: agent %s listed twice", domain.ErrInvalidRequest, id)
		}
		seen[id] = struct{}{}
	}
	return m.deploy(ctx, agentIDs, providerName, region)
}

func (m *DeploymentManager) deploy(ctx context.Context, ids []uuid.UUID, providerName, region string) (*domain.Deployment, error) {
	adapter, err := m.adapters.Get(providerName)
	if err != nil {
		return nil, err
	}

	release, err := m.locks.acquire(ids...)
	if err != nil {
		return nil, err
	}
	defer release()

	agents, err := m.loadAgents(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := m.ensureNotRunning(ctx, ids); err != nil {
		return nil, err
	}

	kind, plan, err := m.runtimes.BuildPlan(agents)
	if err != nil {
		return nil, err
	}

	dep := &domain.Deployment{
		AgentID:  ids[0],
		Provider: domain.ProviderKind(adapter.ProviderName()),
		Region:   region,
		Status:   domain.DeploymentPending,
	}
	if len(ids) > 1 {
		dep.AgentIDs = ids
	}
	if err := m.deployments.Create(ctx, dep); err != nil {
		return nil, translate(err, "create deployment")
	}

	log := m.logger.With(
		zap.String("deployment_id", dep.ID.String()),
		zap.String("provider", string(dep.Provider)),
		zap.Int("agents", len(ids)),
	)
	start := time.Now()
	m.opts.Metrics.DeployStarted(ctx, string(dep.Provider))
	m.publish(ctx, dep, "")

	if err := m.setStatus(ctx, ids, domain.AgentDeploying); err != nil {
		return dep, err
	}
	m.announce(ctx, agents[0], fmt.Sprintf("📊 [COORD] Deploying %s to %s", agentNames(agents), dep.Provider), nil)

	cfg := domain.AgentConfig{
		Agent:      agents[0],
		Region:     region,
		Runtime:    kind,
		InitScript: plan.InitScript,
		Env:        plan.Env,
		Services:   plan.Services,
	}
	if len(agents) > 1 {
		cfg.Agents = agents
	}

	log.Info("deploying", zap.String("runtime", string(kind)))
	pid, err := adapter.Deploy(ctx, cfg)
	if err != nil {
		local := context.WithoutCancel(ctx)
		log.Error("provider rejected deploy", zap.Error(err))
		m.opts.Metrics.DeployFinished(local, string(dep.Provider), "rejected", time.Since(start))
		m.announce(local, agents[0], fmt.Sprintf("📊 [COORD] Deployment of %s was rejected by %s", agentNames(agents), dep.Provider), nil)
		return dep, errors.Join(
			fmt.Errorf("deploy %s on %s: %w", dep.ID, dep.Provider, err),
			m.setStatus(local, ids, domain.AgentError),
		)
	}

	dep.ProviderID = pid.ProviderID
	if err := m.deployments.UpdateProviderID(ctx, dep.ID, pid.ProviderID); err != nil {
		return dep, m.abort(ctx, dep, agents[0], translate(err, "store provider id"), start)
	}
	if err := m.deployments.UpdateStatus(ctx, dep.ID, domain.DeploymentCreating); err != nil {
		return dep, m.abort(ctx, dep, agents[0], translate(err, "mark deployment creating"), start)
	}
	dep.Status = domain.DeploymentCreating
	m.publish(ctx, dep, "")
	log.Info("deployment created", zap.String("provider_id", dep.ProviderID))

	return dep, m.await(ctx, adapter, dep, agents[0], start, log)
}

// ensureNotRunning rejects agents that already live on a running host.
// They have to be destroyed first.
func (m *DeploymentManager) ensureNotRunning(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		dep, err := m.deployments.GetActiveByAgentID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return translate(err, "find deployment")
		}
		if dep.Status == domain.DeploymentRunning {
			return fmt.Errorf("%w: agent %s is already running on deployment %s", domain.ErrConflict, id, dep.ID)
		}
	}
	return nil
}

// await polls the provider until the deployment settles.
func (m *DeploymentManager) await(ctx context.Context, adapter domain.ProviderAdapter, dep *domain.Deployment, primary domain.Agent, start time.Time, log *zap.Logger) error {
	id := domain.DeploymentID{ID: dep.ID, ProviderID: dep.ProviderID}
	providerName := string(dep.Provider)

	for attempt := 1; attempt <= m.opts.MaxPollAttempts; attempt++ {
		if err := m.opts.Sleep(ctx, m.opts.PollInterval); err != nil {
			local := context.WithoutCancel(ctx)
			m.opts.Metrics.DeployFinished(local, providerName, "timeout", time.Since(start))
			return errors.Join(
				fmt.Errorf("%w: deployment %s abandoned after %d attempts: %w", domain.ErrDeploymentTimeout, dep.ID, attempt-1, err),
				m.fail(local, dep, primary, "polling cancelled"),
			)
		}

		st, err := adapter.GetStatus(ctx, id)
		if err != nil {
			log.Warn("status poll failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		log.Debug("status polled", zap.Int("attempt", attempt), zap.String("status", string(st.Status)))

		switch st.Status {
		case domain.DeploymentRunning:
			if err := m.complete(ctx, dep, st); err != nil {
				return m.abort(ctx, dep, primary, err, start)
			}
			m.opts.Metrics.DeployFinished(ctx, providerName, "running", time.Since(start))
			log.Info("deployment running", zap.String("endpoint", st.Endpoint), zap.Int("attempts", attempt))
			m.announce(ctx, primary, fmt.Sprintf("📊 [COORD] Deployment %s is running", dep.ID), &domain.Embed{
				Title: "Deployment running",
				Color: colorSuccess,
				Fields: []domain.EmbedField{
					{Name: "Provider", Value: providerName, Inline: true},
					{Name: "Endpoint", Value: firstNonEmpty(st.Endpoint, "-"), Inline: true},
				},
			})
			return nil
		case domain.DeploymentFailed:
			m.opts.Metrics.DeployFinished(ctx, providerName, "failed", time.Since(start))
			log.Warn("provider reported deployment failed", zap.Int("attempt", attempt))
			return errors.Join(
				fmt.Errorf("%w: provider reported %s failed", domain.ErrDeploymentFailed, dep.ID),
				m.fail(ctx, dep, primary, "provider reported failure"),
			)
		}
	}

	m.opts.Metrics.DeployFinished(ctx, providerName, "timeout", time.Since(start))
	log.Warn("deployment did not start in time", zap.Int("attempts", m.opts.MaxPollAttempts))
	return errors.Join(
		fmt.Errorf("%w: %s not running after %d status checks", domain.ErrDeploymentTimeout, dep.ID, m.opts.MaxPollAttempts),
		m.fail(ctx, dep, primary, "timed out waiting for running"),
	)
}

// complete records the running state and links every hosted agent.
func (m *DeploymentManager) complete(ctx context.Context, dep *domain.Deployment, st domain.ProviderStatus) error {
	if err := m.deployments.UpdateStatusDetails(ctx, dep.ID, domain.DeploymentRunning, st.Endpoint, st.GatewayURL); err != nil {
		return translate(err, "mark deployment running")
	}
	dep.Status = domain.DeploymentRunning
	dep.Endpoint = st.Endpoint
	dep.GatewayURL = st.GatewayURL

	depID := dep.ID
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range dep.Members() {
		g.Go(func() error {
			if err := m.agents.UpdateStatus(gctx, id, domain.AgentRunning); err != nil {
				return translate(err, "mark agent running")
			}
			return translate(m.agents.UpdateDeploymentID(gctx, id, &depID), "link agent")
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.publish(ctx, dep, "")
	return nil
}

// fail moves the deployment to failed and its agents to error.
func (m *DeploymentManager) fail(ctx context.Context, dep *domain.Deployment, primary domain.Agent, reason string) error {
	var errs []error
	if err := m.deployments.UpdateStatus(ctx, dep.ID, domain.DeploymentFailed); err != nil {
		errs = append(errs, translate(err, "mark deployment failed"))
	} else {
		dep.Status = domain.DeploymentFailed
	}
	errs = append(errs, m.setStatus(ctx, dep.Members(), domain.AgentError))

	m.publish(ctx, dep, reason)
	m.announce(ctx, primary, fmt.Sprintf("📊 [COORD] Deployment %s failed: %s", dep.ID, reason), &domain.Embed{
		Title:       "Deployment failed",
		Description: reason,
		Color:       colorFailure,
	})
	return errors.Join(errs...)
}

// abort fails the deployment after a local error and returns that error.
func (m *DeploymentManager) abort(ctx context.Context, dep *domain.Deployment, primary domain.Agent, cause error, start time.Time) error {
	local := context.WithoutCancel(ctx)
	m.opts.Metrics.DeployFinished(local, string(dep.Provider), "error", time.Since(start))
	m.logger.Error("deployment aborted", zap.String("deployment_id", dep.ID.String()), zap.Error(cause))
	return errors.Join(cause, m.fail(local, dep, primary, "internal error"))
}

// unlink clears the deployment reference of every agent in ids.
func (m *DeploymentManager) unlink(ctx context.Context, ids []uuid.UUID) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			return translate(m.agents.UpdateDeploymentID(gctx, id, nil), "unlink agent")
		})
	}
	return g.Wait()
}

// DestroyAgent tears down the host the agent runs on. Every agent sharing
// that host is stopped with it. An agent without a deployment is simply
// marked stopped.
func (m *DeploymentManager) DestroyAgent(ctx context.Context, agentID uuid.UUID) error {
	agent, err := m.agents.GetByID(ctx, agentID)
	if err != nil {
		return translate(err, "get agent")
	}

	dep, err := m.deployments.GetActiveByAgentID(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		release, err := m.locks.acquire(agentID)
		if err != nil {
			return err
		}
		defer release()
		return translate(m.agents.UpdateStatus(ctx, agentID, domain.AgentStopped), "mark agent stopped")
	}
	if err != nil {
		return translate(err, "find deployment")
	}

	release, err := m.locks.acquire(dep.Members()...)
	if err != nil {
		return err
	}
	defer release()

	adapter, err := m.adapters.Get(string(dep.Provider))
	if err != nil {
		return err
	}

	log := m.logger.With(zap.String("deployment_id", dep.ID.String()), zap.String("provider", string(dep.Provider)))
	if err := adapter.Destroy(ctx, providerRef(dep)); err != nil {
		m.opts.Metrics.Destroyed(ctx, string(dep.Provider), "error")
		log.Error("provider destroy failed", zap.Error(err))
		return fmt.Errorf("destroy %s on %s: %w", dep.ID, dep.Provider, err)
	}

	if err := m.deployments.UpdateStatus(ctx, dep.ID, domain.DeploymentStopped); err != nil {
		return translate(err, "mark deployment stopped")
	}
	dep.Status = domain.DeploymentStopped

	if err := m.setStatus(ctx, dep.Members(), domain.AgentStopped); err != nil {
		return err
	}
	if err := m.unlink(ctx, dep.Members()); err != nil {
		return err
	}

	m.opts.Metrics.Destroyed(ctx, string(dep.Provider), "ok")
	m.publish(ctx, dep, "destroyed")
	m.announce(ctx, *agent, fmt.Sprintf("📊 [COORD] Deployment %s on %s stopped", dep.ID, dep.Provider), nil)
	log.Info("deployment destroyed")
	return nil
}

// PushConfig rebuilds the plan for a live deployment and hands it to the
// provider without recreating the host.
func (m *DeploymentManager) PushConfig(ctx context.Context, dep *domain.Deployment) error {
	adapter, err := m.adapters.Get(string(dep.Provider))
	if err != nil {
		return err
	}
	agents, err := m.loadAgents(ctx, dep.Members())
	if err != nil {
		return err
	}
	kind, plan, err := m.runtimes.BuildPlan(agents)
	if err != nil {
		return err
	}

	cfg := domain.AgentConfig{
		Agent:      agents[0],
		Region:     dep.Region,
		Runtime:    kind,
		InitScript: plan.InitScript,
		Env:        plan.Env,
		Services:   plan.Services,
	}
	if len(agents) > 1 {
		cfg.Agents = agents
	}
	if err := adapter.UpdateConfig(ctx, providerRef(dep), cfg); err != nil {
		return fmt.Errorf("update config of %s on %s: %w", dep.ID, dep.Provider, err)
	}
	m.announce(ctx, agents[0], fmt.Sprintf("📊 [COORD] Configuration of %s updated", agentNames(agents)), &domain.Embed{
		Title: "Configuration updated",
		Color: colorInfo,
	})
	return nil
}

func (m *DeploymentManager) loadAgents(ctx context.Context, ids []uuid.UUID) ([]domain.Agent, error) {
	agents := make([]domain.Agent, 0, len(ids))
	for _, id := range ids {
		a, err := m.agents.GetByID(ctx, id)
		if err != nil {
			return nil, translate(err, "agent "+id.String())
		}
		agents = append(agents, *a)
	}
	return agents, nil
}

func (m *DeploymentManager) setStatus(ctx context.Context, ids []uuid.UUID, status domain.AgentStatus) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			return translate(m.agents.UpdateStatus(gctx, id, status), "mark agent "+string(status))
		})
	}
	return g.Wait()
}

func (m *DeploymentManager) publish(ctx context.Context, dep *domain.Deployment, reason string) {
	if m.opts.Events == nil {
		return
	}
	ev := domain.DeploymentEvent{
		DeploymentID: dep.ID,
		AgentIDs:     dep.Members(),
		Provider:     dep.Provider,
		Status:       dep.Status,
		Endpoint:     dep.Endpoint,
		Reason:       reason,
		At:           time.Now().UTC(),
	}
	if err := m.opts.Events.PublishDeployment(ctx, ev); err != nil {
		m.logger.Warn("failed to publish deployment event",
			zap.String("deployment_id", dep.ID.String()),
			zap.String("status", string(dep.Status)),
			zap.Error(err))
	}
}

// announce posts to the primary agent's coordination channel. Failures
// are logged only.
func (m *DeploymentManager) announce(ctx context.Context, primary domain.Agent, text string, embed *domain.Embed) {
	if m.opts.Messenger == nil {
		return
	}
	channel := coordinationChannel(primary)
	if channel == "" {
		return
	}
	if err := m.opts.Messenger.SendMessage(ctx, channel, text, embed); err != nil {
		m.logger.Warn("coordination message failed",
			zap.String("agent_id", primary.ID.String()),
			zap.String("channel_id", channel),
			zap.Error(err))
	}
}

func coordinationChannel(a domain.Agent) string {
	if a.DiscordChannels != nil && a.DiscordChannels.CoordinationLogs != "" {
		return a.DiscordChannels.CoordinationLogs
	}
	return a.DiscordChannelID
}

// providerRef is the id adapters address a deployment by. Deployments that
// never stored one fall back to <provider>-<deployment id>.
func providerRef(dep *domain.Deployment) domain.DeploymentID {
	pid := dep.ProviderID
	if pid == "" {
		pid = fmt.Sprintf("%s-%s", dep.Provider, dep.ID)
	}
	return domain.DeploymentID{ID: dep.ID, ProviderID: pid}
}

func agentNames(agents []domain.Agent) string {
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
