package handlers

import (
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/clawguild/internal/channels"
	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/Harshitk-cp/clawguild/internal/service"
	"github.com/google/uuid"
)

const (
	defaultLogLines = 100
	maxLogLines     = 5000
)

type DeploymentHandler struct {
	svc     *service.DeploymentService
	agents  *service.AgentService
	manager *service.DeploymentManager
}

func NewDeploymentHandler(svc *service.DeploymentService, agents *service.AgentService, manager *service.DeploymentManager) *DeploymentHandler {
	return &DeploymentHandler{svc: svc, agents: agents, manager: manager}
}

type multiDeployRequest struct {
	AgentIDs         []uuid.UUID                `json:"agent_ids"`
	Provider         string                     `json:"provider"`
	Region           string                     `json:"region"`
	TelegramSettings *channels.TelegramSettings `json:"telegram_settings"`
}

// DeployMulti puts several agents on one shared host. Telegram settings,
// when given, are stored on the agents before the plan is built.
func (h *DeploymentHandler) DeployMulti(w http.ResponseWriter, r *http.Request) {
	var req multiDeployRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}
	if len(req.AgentIDs) == 0 {
		writeError(w, http.StatusBadRequest, "agent_ids cannot be empty")
		return
	}

	if req.TelegramSettings != nil {
		if _, err := h.agents.UpdateTelegramSettings(r.Context(), req.AgentIDs, *req.TelegramSettings); err != nil {
			writeServiceError(w, r, err, "failed to apply telegram settings")
			return
		}
	}

	dep, err := h.manager.DeployAgents(r.Context(), req.AgentIDs, req.Provider, req.Region)
	if err != nil {
		writeServiceError(w, r, err, "failed to deploy agents")
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

func (h *DeploymentHandler) List(w http.ResponseWriter, r *http.Request) {
	deps, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to list deployments")
		return
	}
	if deps == nil {
		deps = []domain.Deployment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deployments": deps})
}

func (h *DeploymentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid deployment id")
		return
	}
	dep, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to get deployment")
		return
	}
	writeJSON(w, http.StatusOK, dep)
}

func (h *DeploymentHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid deployment id")
		return
	}

	lines := defaultLogLines
	if s := r.URL.Query().Get("lines"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "lines must be a positive integer")
			return
		}
		lines = min(n, maxLogLines)
	}

	out, err := h.svc.Logs(r.Context(), id, lines)
	if err != nil {
		writeServiceError(w, r, err, "failed to fetch logs")
		return
	}
	if out == nil {
		out = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deployment_id": id, "lines": out})
}

func (h *DeploymentHandler) Live(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid deployment id")
		return
	}
	st, err := h.svc.LiveStatus(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to fetch live status")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
