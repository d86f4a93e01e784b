package domain

import (
	"time"

	"github.com/google/uuid"
)

type DeploymentStatus string

const (
	DeploymentPending  DeploymentStatus = "pending"
	DeploymentCreating DeploymentStatus = "creating"
	DeploymentRunning  DeploymentStatus = "running"
	DeploymentStopped  DeploymentStatus = "stopped"
	DeploymentFailed   DeploymentStatus = "failed"
)

// ProviderKind is the routing key of a VPS provider adapter.
type ProviderKind string

const (
	ProviderFlyIO   ProviderKind = "flyio"
	ProviderRailway ProviderKind = "railway"
	ProviderAWS     ProviderKind = "aws"
	ProviderDocker  ProviderKind = "docker"
)

type Deployment struct {
	ID         uuid.UUID        `json:"id"`
	AgentID    uuid.UUID        `json:"agent_id"`
	AgentIDs   []uuid.UUID      `json:"agent_ids,omitempty"`
	Provider   ProviderKind     `json:"provider"`
	Region     string           `json:"region,omitempty"`
	Status     DeploymentStatus `json:"status"`
	ProviderID string           `json:"provider_id,omitempty"`
	Endpoint   string           `json:"endpoint,omitempty"`
	GatewayURL string           `json:"gateway_url,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Members returns every agent hosted by the deployment, primary first.
func (d *Deployment) Members() []uuid.UUID {
	if len(d.AgentIDs) == 0 {
		return []uuid.UUID{d.AgentID}
	}
	return d.AgentIDs
}

// DeploymentEvent is published on every deployment status transition.
type DeploymentEvent struct {
	DeploymentID uuid.UUID        `json:"deployment_id"`
	AgentIDs     []uuid.UUID      `json:"agent_ids"`
	Provider     ProviderKind     `json:"provider"`
	Status       DeploymentStatus `json:"status"`
	Endpoint     string           `json:"endpoint,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	At           time.Time        `json:"at"`
}
