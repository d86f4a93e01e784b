package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"go.uber.org/zap"
)

// RailwayAdapter creates a project and a single service per deployment.
// Provider ids look like railway-<service>.
type RailwayAdapter struct {
	api    *apiClient
	logger *zap.Logger
}

func NewRailwayAdapter(opts Options, logger *zap.Logger) *RailwayAdapter {
	opts = opts.withDefaults()
	return &RailwayAdapter{
		api:    newAPIClient("railway", strings.TrimRight(opts.RailwayBaseURL, "/"), "Bearer "+opts.RailwayAPIKey, opts),
		logger: logger,
	}
}

func (a *RailwayAdapter) ProviderName() string { return string(domain.ProviderRailway) }

type railwayProjectResponse struct {
	Project struct {
		ID string `json:"id"`
	} `json:"project"`
}

type railwayServiceRequest struct {
	Name      string            `json:"name"`
	Source    railwaySource     `json:"source"`
	Region    string            `json:"region,omitempty"`
	StartCmd  string            `json:"startCommand,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}

type railwaySource struct {
	Repo     string `json:"repo"`
	Template string `json:"template"`
}

type railwayServiceResponse struct {
	Service struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		URL    string `json:"url"`
	} `json:"service"`
}

func (a *RailwayAdapter) Deploy(ctx context.Context, cfg domain.AgentConfig) (domain.DeploymentID, error) {
	var project railwayProjectResponse
	err := a.api.do(ctx, http.MethodPost, "/v1/projects", map[string]string{"name": hostName(cfg)}, &project)
	if err != nil {
		return domain.DeploymentID{}, fmt.Errorf("create railway project: %w", err)
	}
	if project.Project.ID == "" {
		return domain.DeploymentID{}, fmt.Errorf("%w: railway project response has no id", domain.ErrMalformedResponse)
	}

	var service railwayServiceResponse
	err = a.api.do(ctx, http.MethodPost, "/v1/projects/"+url.PathEscape(project.Project.ID)+"/services", railwayServiceRequest{
		Name:      slug(cfg.Agent.Name),
		Source:    railwaySource{Repo: "openclaw/openclaw", Template: string(cfg.Runtime)},
		Region:    cfg.Region,
		StartCmd:  cfg.InitScript,
		Variables: cfg.Env,
	}, &service)
	if err != nil {
		return domain.DeploymentID{}, fmt.Errorf("create railway service: %w", err)
	}
	if service.Service.ID == "" {
		return domain.DeploymentID{}, fmt.Errorf("%w: railway service response has no id", domain.ErrMalformedResponse)
	}

	a.logger.Info("railway service created",
		zap.String("project", project.Project.ID),
		zap.String("service", service.Service.ID))

	return domain.DeploymentID{ProviderID: "railway-" + service.Service.ID}, nil
}

func (a *RailwayAdapter) GetStatus(ctx context.Context, id domain.DeploymentID) (domain.ProviderStatus, error) {
	serviceID, err := trimProviderPrefix("railway", id.ProviderID)
	if err != nil {
		return domain.ProviderStatus{}, err
	}

	var service railwayServiceResponse
	if err := a.api.do(ctx, http.MethodGet, "/v1/services/"+url.PathEscape(serviceID), nil, &service); err != nil {
		return domain.ProviderStatus{}, fmt.Errorf("get railway service: %w", err)
	}

	status := domain.ProviderStatus{Status: mapRailwayStatus(service.Service.Status)}
	if service.Service.URL != "" {
		status.Endpoint = service.Service.URL
		status.GatewayURL = service.Service.URL + "/openclaw"
	}
	return status, nil
}

func mapRailwayStatus(s string) domain.DeploymentStatus {
	switch strings.ToUpper(s) {
	case "DEPLOYED", "RUNNING", "SUCCESS":
		return domain.DeploymentRunning
	case "DEPLOYING", "BUILDING", "INITIALIZING":
		return domain.DeploymentCreating
	case "FAILED", "CRASHED":
		return domain.DeploymentFailed
	default:
		return domain.DeploymentPending
	}
}

func (a *RailwayAdapter) Destroy(ctx context.Context, id domain.DeploymentID) error {
	serviceID, err := trimProviderPrefix("railway", id.ProviderID)
	if err != nil {
		return err
	}
	err = a.api.do(ctx, http.MethodDelete, "/v1/services/"+url.PathEscape(serviceID), nil, nil)
	if err != nil && !hasStatus(err, http.StatusNotFound) {
		return fmt.Errorf("delete railway service: %w", err)
	}
	return nil
}

func (a *RailwayAdapter) UpdateConfig(ctx context.Context, id domain.DeploymentID, cfg domain.AgentConfig) error {
	serviceID, err := trimProviderPrefix("railway", id.ProviderID)
	if err != nil {
		return err
	}
	err = a.api.do(ctx, http.MethodPost, "/v1/services/"+url.PathEscape(serviceID)+"/variables", secretEnv(cfg), nil)
	if err != nil {
		return fmt.Errorf("set railway variables: %w", err)
	}
	return nil
}

func (a *RailwayAdapter) GetLogs(ctx context.Context, id domain.DeploymentID, maxLines int) ([]string, error) {
	serviceID, err := trimProviderPrefix("railway", id.ProviderID)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Logs []string `json:"logs"`
	}
	path := fmt.Sprintf("/v1/services/%s/logs?limit=%d", url.PathEscape(serviceID), logLimit(maxLines))
	if err := a.api.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		a.logger.Debug("railway logs unavailable", zap.String("service", serviceID), zap.Error(err))
		return []string{"Logs not available via API. Use the Railway dashboard."}, nil
	}
	return tail(resp.Logs, logLimit(maxLines)), nil
}
