package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/clawguild/internal/channels"
	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/Harshitk-cp/clawguild/internal/service"
	"github.com/google/uuid"
)

type AgentHandler struct {
	svc     *service.AgentService
	manager *service.DeploymentManager
}

func NewAgentHandler(svc *service.AgentService, manager *service.DeploymentManager) *AgentHandler {
	return &AgentHandler{svc: svc, manager: manager}
}

type createAgentRequest struct {
	Name             string                  `json:"name"`
	Role             string                  `json:"role"`
	Runtime          string                  `json:"runtime"`
	TeamID           *uuid.UUID              `json:"team_id"`
	DiscordBotToken  string                  `json:"discord_bot_token"`
	DiscordChannelID string                  `json:"discord_channel_id"`
	DiscordChannels  *domain.ChannelBindings `json:"discord_channels"`
	ModelProvider    string                  `json:"model_provider"`
	ModelAPIKey      string                  `json:"model_api_key"`
	ModelEndpoint    string                  `json:"model_endpoint"`
	Personality      string                  `json:"personality"`
	Skills           []string                `json:"skills"`
	WorkspaceDir     string                  `json:"workspace_dir"`
	RuntimeConfig    map[string]any          `json:"runtime_config"`
	Responsibility   string                  `json:"responsibility"`
	Emoji            string                  `json:"emoji"`

	// Provider, when set, deploys the agent right after creation.
	Provider string `json:"provider"`
	Region   string `json:"region"`
}

type createAgentResponse struct {
	Agent      *domain.Agent      `json:"agent"`
	Deployment *domain.Deployment `json:"deployment,omitempty"`
}

func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = string(domain.RoleSlave)
	}

	agent := &domain.Agent{
		Name:             req.Name,
		Role:             domain.AgentRole(req.Role),
		Runtime:          domain.RuntimeKind(req.Runtime),
		TeamID:           req.TeamID,
		DiscordBotToken:  req.DiscordBotToken,
		DiscordChannelID: req.DiscordChannelID,
		DiscordChannels:  req.DiscordChannels,
		ModelProvider:    domain.ModelProvider(req.ModelProvider),
		ModelAPIKey:      req.ModelAPIKey,
		ModelEndpoint:    req.ModelEndpoint,
		Personality:      req.Personality,
		Skills:           req.Skills,
		WorkspaceDir:     req.WorkspaceDir,
		RuntimeConfig:    req.RuntimeConfig,
		Responsibility:   req.Responsibility,
		Emoji:            req.Emoji,
	}
	if agent.ModelProvider == "" {
		agent.ModelProvider = domain.ModelOpenClaw
	}

	if err := h.svc.Create(r.Context(), agent); err != nil {
		writeServiceError(w, r, err, "failed to create agent")
		return
	}
	if req.Provider == "" {
		writeJSON(w, http.StatusCreated, createAgentResponse{Agent: agent})
		return
	}

	dep, err := h.manager.DeployAgent(r.Context(), agent.ID, req.Provider, req.Region)
	if err != nil {
		writeServiceError(w, r, err, "failed to deploy agent")
		return
	}
	if fresh, err := h.svc.GetByID(r.Context(), agent.ID); err == nil {
		agent = fresh
	}
	writeJSON(w, http.StatusCreated, createAgentResponse{Agent: agent, Deployment: dep})
}

func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	agents, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to list agents")
		return
	}
	if agents == nil {
		agents = []domain.Agent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

func (h *AgentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	agent, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to get agent")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (h *AgentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	status, err := h.svc.Status(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to get agent status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id.String(), "status": string(status)})
}

type deployRequest struct {
	Provider string `json:"provider"`
	Region   string `json:"region"`
}

func (h *AgentHandler) Deploy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	var req deployRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	dep, err := h.manager.DeployAgent(r.Context(), id, req.Provider, req.Region)
	if err != nil {
		writeServiceError(w, r, err, "failed to deploy agent")
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

func (h *AgentHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	if err := h.manager.DestroyAgent(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "failed to destroy deployment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type telegramRequest struct {
	AgentIDs []uuid.UUID               `json:"agent_ids"`
	Settings channels.TelegramSettings `json:"settings"`
}

func (h *AgentHandler) UpdateTelegram(w http.ResponseWriter, r *http.Request) {
	var req telegramRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	agents, err := h.svc.UpdateTelegramSettings(r.Context(), req.AgentIDs, req.Settings)
	if err != nil {
		writeServiceError(w, r, err, "failed to update telegram settings")
		return
	}
	if agents == nil {
		agents = []domain.Agent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}
