package domain

import (
	"time"

	"github.com/google/uuid"
)

type AgentRole string

const (
	RoleMaster AgentRole = "master"
	RoleSlave  AgentRole = "slave"
)

func ValidAgentRole(r string) bool {
	switch AgentRole(r) {
	case RoleMaster, RoleSlave:
		return true
	}
	return false
}

type AgentStatus string

const (
	AgentPending   AgentStatus = "pending"
	AgentDeploying AgentStatus = "deploying"
	AgentRunning   AgentStatus = "running"
	AgentStopped   AgentStatus = "stopped"
	AgentError     AgentStatus = "error"
)

// RuntimeKind names the agent software stack booted on the host.
type RuntimeKind string

const (
	RuntimeOpenClaw RuntimeKind = "openclaw"
	RuntimeZeroClaw RuntimeKind = "zeroclaw"
	RuntimePicoClaw RuntimeKind = "picoclaw"
	RuntimeNanoClaw RuntimeKind = "nanoclaw"
)

func ValidRuntimeKind(k string) bool {
	switch RuntimeKind(k) {
	case RuntimeOpenClaw, RuntimeZeroClaw, RuntimePicoClaw, RuntimeNanoClaw:
		return true
	}
	return false
}

type ModelProvider string

const (
	ModelOpenClaw  ModelProvider = "openclaw"
	ModelAnthropic ModelProvider = "anthropic"
	ModelOpenAI    ModelProvider = "openai"
	ModelBYOM      ModelProvider = "byom"
)

func ValidModelProvider(p string) bool {
	switch ModelProvider(p) {
	case ModelOpenClaw, ModelAnthropic, ModelOpenAI, ModelBYOM:
		return true
	}
	return false
}

// Channel purposes an agent can be bound to.
const (
	PurposeCoordinationLogs  = "coordination_logs"
	PurposePeerCommunication = "peer_communication"
	PurposeOrders            = "orders"
)

// ChannelBindings maps each well-known purpose to a chat channel id.
type ChannelBindings struct {
	CoordinationLogs  string `json:"coordination_logs,omitempty"`
	PeerCommunication string `json:"peer_communication,omitempty"`
	Orders            string `json:"orders,omitempty"`
}

// Purposes returns the bound purposes in a fixed order, skipping empty ones.
func (c *ChannelBindings) Purposes() [][2]string {
	if c == nil {
		return nil
	}
	var out [][2]string
	for _, p := range [][2]string{
		{PurposeCoordinationLogs, c.CoordinationLogs},
		{PurposePeerCommunication, c.PeerCommunication},
		{PurposeOrders, c.Orders},
	} {
		if p[1] != "" {
			out = append(out, p)
		}
	}
	return out
}

type Agent struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	Role             AgentRole        `json:"role"`
	Status           AgentStatus      `json:"status"`
	Runtime          RuntimeKind      `json:"runtime"`
	DeploymentID     *uuid.UUID       `json:"deployment_id,omitempty"`
	TeamID           *uuid.UUID       `json:"team_id,omitempty"`
	DiscordBotToken  string           `json:"-"`
	DiscordChannelID string           `json:"discord_channel_id,omitempty"`
	DiscordChannels  *ChannelBindings `json:"discord_channels,omitempty"`
	ModelProvider    ModelProvider    `json:"model_provider"`
	ModelAPIKey      string           `json:"-"`
	ModelEndpoint    string           `json:"model_endpoint,omitempty"`
	Personality      string           `json:"personality,omitempty"`
	Skills           []string         `json:"skills,omitempty"`
	WorkspaceDir     string           `json:"workspace_dir,omitempty"`
	RuntimeConfig    map[string]any   `json:"runtime_config,omitempty"`
	Responsibility   string           `json:"responsibility,omitempty"`
	Emoji            string           `json:"emoji,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
