package domain

import (
	"context"

	"github.com/google/uuid"
)

// ServicePort declares a public port forwarded to the workload.
type ServicePort struct {
	Port         int      `json:"port"`
	Handlers     []string `json:"handlers"`
	InternalPort int      `json:"internal_port"`
}

// RuntimePlan is the boot plan produced by a runtime flavor.
type RuntimePlan struct {
	Env        map[string]string
	InitScript string
	Services   []ServicePort
}

// AgentConfig is everything a provider needs to materialize one host.
type AgentConfig struct {
	Agent      Agent
	Agents     []Agent
	Region     string
	Runtime    RuntimeKind
	InitScript string
	Env        map[string]string
	Services   []ServicePort
}

// Hosted returns the co-hosted agents, defaulting to the primary alone.
func (c AgentConfig) Hosted() []Agent {
	if len(c.Agents) == 0 {
		return []Agent{c.Agent}
	}
	return c.Agents
}

type DeploymentID struct {
	ID         uuid.UUID
	ProviderID string
}

type ProviderStatus struct {
	Status     DeploymentStatus `json:"status"`
	Endpoint   string           `json:"endpoint,omitempty"`
	GatewayURL string           `json:"gateway_url,omitempty"`
}

type ProviderAdapter interface {
	Deploy(ctx context.Context, cfg AgentConfig) (DeploymentID, error)
	GetStatus(ctx context.Context, id DeploymentID) (ProviderStatus, error)
	Destroy(ctx context.Context, id DeploymentID) error
	UpdateConfig(ctx context.Context, id DeploymentID, cfg AgentConfig) error
	GetLogs(ctx context.Context, id DeploymentID, maxLines int) ([]string, error)
	ProviderName() string
}

// Embed is optional rich content attached to a chat message.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Messenger interface {
	SendMessage(ctx context.Context, channelID, text string, embed *Embed) error
}

type EventPublisher interface {
	PublishDeployment(ctx context.Context, ev DeploymentEvent) error
}
