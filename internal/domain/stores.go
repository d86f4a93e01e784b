package domain

import (
	"context"

	"github.com/google/uuid"
)

type AgentStore interface {
	Create(ctx context.Context, a *Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Agent, error)
	List(ctx context.Context) ([]Agent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status AgentStatus) error
	UpdateDeploymentID(ctx context.Context, id uuid.UUID, deploymentID *uuid.UUID) error
	UpdateRuntimeConfig(ctx context.Context, id uuid.UUID, cfg map[string]any) error
}

type DeploymentStore interface {
	Create(ctx context.Context, d *Deployment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Deployment, error)
	// GetActiveByAgentID returns the newest non-stopped deployment hosting
	// the agent, either as primary or as a co-hosted member.
	GetActiveByAgentID(ctx context.Context, agentID uuid.UUID) (*Deployment, error)
	List(ctx context.Context) ([]Deployment, error)
	ListByStatus(ctx context.Context, status DeploymentStatus) ([]Deployment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status DeploymentStatus) error
	UpdateStatusDetails(ctx context.Context, id uuid.UUID, status DeploymentStatus, endpoint, gatewayURL string) error
	UpdateProviderID(ctx context.Context, id uuid.UUID, providerID string) error
}
