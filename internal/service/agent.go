package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/clawguild/internal/channels"
	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AgentService struct {
	agents      domain.AgentStore
	deployments domain.DeploymentStore
	manager     *DeploymentManager
	logger      *zap.Logger
}

func NewAgentService(as domain.AgentStore, ds domain.DeploymentStore, manager *DeploymentManager, logger *zap.Logger) *AgentService {
	return &AgentService{agents: as, deployments: ds, manager: manager, logger: logger}
}

// Create validates and stores a new agent. Openclaw agents get the default
// Telegram section merged under their runtime_config.
func (s *AgentService) Create(ctx context.Context, a *domain.Agent) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidRequest)
	}
	if !domain.ValidAgentRole(string(a.Role)) {
		return fmt.Errorf("%w: role must be master or slave", domain.ErrInvalidRequest)
	}
	if a.Runtime == "" {
		a.Runtime = domain.RuntimeOpenClaw
	}
	if !domain.ValidRuntimeKind(string(a.Runtime)) {
		return fmt.Errorf("%w: unknown runtime %q", domain.ErrInvalidRequest, a.Runtime)
	}
	if a.ModelProvider != "" && !domain.ValidModelProvider(string(a.ModelProvider)) {
		return fmt.Errorf("%w: unknown model_provider %q", domain.ErrInvalidRequest, a.ModelProvider)
	}
	a.Status = domain.AgentPending
	a.DeploymentID = nil

	if a.Runtime == domain.RuntimeOpenClaw {
		cfg, err := channels.PrepareOpenClaw(*a, nil)
		if err != nil {
			return err
		}
		a.RuntimeConfig = cfg
	}

	if err := s.agents.Create(ctx, a); err != nil {
		return translate(err, "create agent")
	}
	s.logger.Info("agent created",
		zap.String("agent_id", a.ID.String()),
		zap.String("runtime", string(a.Runtime)),
		zap.String("role", string(a.Role)))
	return nil
}

func (s *AgentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	a, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "get agent")
	}
	return a, nil
}

func (s *AgentService) List(ctx context.Context) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return nil, translate(err, "list agents")
	}
	return agents, nil
}

func (s *AgentService) Status(ctx context.Context, id uuid.UUID) (domain.AgentStatus, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return a.Status, nil
}

// UpdateTelegramSettings applies settings to every openclaw agent in ids.
// Nothing is written unless all agents validate. Running deployments
// receive the rebuilt configuration afterwards. Agents on other runtimes
// are left untouched and not returned.
func (s *AgentService) UpdateTelegramSettings(ctx context.Context, ids []uuid.UUID, settings channels.TelegramSettings) ([]domain.Agent, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: agent_ids cannot be empty", domain.ErrInvalidRequest)
	}

	var updated []domain.Agent
	for _, id := range ids {
		a, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if a.Runtime != domain.RuntimeOpenClaw {
			continue
		}
		cfg, err := channels.PrepareOpenClaw(*a, &settings)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.ID, err)
		}
		a.RuntimeConfig = cfg
		updated = append(updated, *a)
	}

	for _, a := range updated {
		if err := s.agents.UpdateRuntimeConfig(ctx, a.ID, a.RuntimeConfig); err != nil {
			return nil, translate(err, "update runtime_config")
		}
	}

	pushed := map[uuid.UUID]bool{}
	for _, a := range updated {
		if a.DeploymentID == nil || pushed[*a.DeploymentID] {
			continue
		}
		pushed[*a.DeploymentID] = true

		dep, err := s.deployments.GetByID(ctx, *a.DeploymentID)
		if err != nil {
			return nil, translate(err, "get deployment")
		}
		if dep.Status != domain.DeploymentRunning {
			continue
		}
		err = s.manager.PushConfig(ctx, dep)
		if errors.Is(err, domain.ErrUnsupported) {
			s.logger.Warn("provider cannot update config in place; settings apply on next deploy",
				zap.String("deployment_id", dep.ID.String()),
				zap.String("provider", string(dep.Provider)))
			continue
		}
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("telegram settings updated", zap.Int("agents", len(updated)))
	return updated, nil
}
