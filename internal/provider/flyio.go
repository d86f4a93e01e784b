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

const (
	flyDefaultRegion = "iad"
	flyImage         = "debian:bookworm-slim"
)

// FlyIOAdapter provisions one Fly app per deployment and runs the boot plan
// on a single machine inside it. Provider ids look like flyio-<app>/<machine>.
type FlyIOAdapter struct {
	api    *apiClient
	org    string
	logger *zap.Logger
}

func NewFlyIOAdapter(opts Options, logger *zap.Logger) *FlyIOAdapter {
	opts = opts.withDefaults()
	return &FlyIOAdapter{
		api:    newAPIClient("flyio", strings.TrimRight(opts.FlyBaseURL, "/"), "Bearer "+opts.FlyAPIToken, opts),
		org:    opts.FlyOrgSlug,
		logger: logger,
	}
}

func (a *FlyIOAdapter) ProviderName() string { return string(domain.ProviderFlyIO) }

type flyApp struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type flyPort struct {
	Port       int      `json:"port"`
	Handlers   []string `json:"handlers"`
	ForceHTTPS bool     `json:"force_https,omitempty"`
}

type flyService struct {
	Ports        []flyPort `json:"ports"`
	Protocol     string    `json:"protocol"`
	InternalPort int       `json:"internal_port"`
}

type flyMachineConfig struct {
	Image    string            `json:"image"`
	Env      map[string]string `json:"env,omitempty"`
	Init     flyInit           `json:"init"`
	Services []flyService      `json:"services,omitempty"`
}

type flyInit struct {
	Cmd []string `json:"cmd"`
}

type flyMachineRequest struct {
	Name   string           `json:"name"`
	Region string           `json:"region"`
	Config flyMachineConfig `json:"config"`
}

type flyMachine struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

func (a *FlyIOAdapter) Deploy(ctx context.Context, cfg domain.AgentConfig) (domain.DeploymentID, error) {
	appName, err := a.ensureApp(ctx, hostName(cfg))
	if err != nil {
		return domain.DeploymentID{}, err
	}

	region := cfg.Region
	if region == "" {
		region = flyDefaultRegion
	}

	services := make([]flyService, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		services = append(services, flyService{
			Ports:        []flyPort{{Port: s.Port, Handlers: s.Handlers, ForceHTTPS: containsString(s.Handlers, "tls")}},
			Protocol:     "tcp",
			InternalPort: s.InternalPort,
		})
	}

	var machine flyMachine
	err = a.api.do(ctx, http.MethodPost, "/v1/apps/"+url.PathEscape(appName)+"/machines", flyMachineRequest{
		Name:   appName + "-machine",
		Region: region,
		Config: flyMachineConfig{
			Image:    flyImage,
			Env:      cfg.Env,
			Init:     flyInit{Cmd: []string{"/bin/bash", "-c", cfg.InitScript}},
			Services: services,
		},
	}, &machine)
	if err != nil {
		return domain.DeploymentID{}, fmt.Errorf("create fly machine: %w", err)
	}

	machineID := firstNonEmpty(machine.ID, machine.Name)
	if machineID == "" {
		return domain.DeploymentID{}, fmt.Errorf("%w: fly machine response has no id", domain.ErrMalformedResponse)
	}

	a.logger.Info("fly machine created",
		zap.String("app", appName),
		zap.String("machine", machineID),
		zap.String("region", region))

	return domain.DeploymentID{ProviderID: fmt.Sprintf("flyio-%s/%s", appName, machineID)}, nil
}

// ensureApp returns the name of an existing app or creates it.
func (a *FlyIOAdapter) ensureApp(ctx context.Context, name string) (string, error) {
	var app flyApp
	err := a.api.do(ctx, http.MethodGet, "/v1/apps/"+url.PathEscape(name), nil, &app)
	if err == nil {
		return firstNonEmpty(app.Name, name), nil
	}
	if !hasStatus(err, http.StatusNotFound) {
		return "", fmt.Errorf("get fly app: %w", err)
	}

	app = flyApp{}
	err = a.api.do(ctx, http.MethodPost, "/v1/apps", map[string]string{
		"app_name": name,
		"org_slug": a.org,
	}, &app)
	if err != nil {
		return "", fmt.Errorf("create fly app: %w", err)
	}
	return firstNonEmpty(app.Name, name), nil
}

func (a *FlyIOAdapter) GetStatus(ctx context.Context, id domain.DeploymentID) (domain.ProviderStatus, error) {
	appName, machineID, err := parseFlyID(id.ProviderID)
	if err != nil {
		return domain.ProviderStatus{}, err
	}
	if machineID == "" {
		return domain.ProviderStatus{Status: domain.DeploymentPending}, nil
	}

	var machine flyMachine
	path := "/v1/apps/" + url.PathEscape(appName) + "/machines/" + url.PathEscape(machineID)
	if err := a.api.do(ctx, http.MethodGet, path, nil, &machine); err != nil {
		return domain.ProviderStatus{}, fmt.Errorf("get fly machine: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.fly.dev", appName)
	return domain.ProviderStatus{
		Status:     mapFlyState(machine.State),
		Endpoint:   endpoint,
		GatewayURL: endpoint + "/openclaw",
	}, nil
}

func mapFlyState(state string) domain.DeploymentStatus {
	switch state {
	case "running", "started":
		return domain.DeploymentRunning
	case "starting", "stopping", "created":
		return domain.DeploymentCreating
	case "stopped", "failed", "destroyed":
		return domain.DeploymentFailed
	default:
		return domain.DeploymentPending
	}
}

// Destroy deletes the whole app. A missing app counts as destroyed.
func (a *FlyIOAdapter) Destroy(ctx context.Context, id domain.DeploymentID) error {
	appName, _, err := parseFlyID(id.ProviderID)
	if err != nil {
		return err
	}
	err = a.api.do(ctx, http.MethodDelete, "/v1/apps/"+url.PathEscape(appName), nil, nil)
	if err != nil && !hasStatus(err, http.StatusNotFound) {
		return fmt.Errorf("delete fly app: %w", err)
	}
	return nil
}

func (a *FlyIOAdapter) UpdateConfig(ctx context.Context, id domain.DeploymentID, cfg domain.AgentConfig) error {
	appName, _, err := parseFlyID(id.ProviderID)
	if err != nil {
		return err
	}
	err = a.api.do(ctx, http.MethodPost, "/v1/apps/"+url.PathEscape(appName)+"/secrets", secretEnv(cfg), nil)
	if err != nil {
		return fmt.Errorf("set fly secrets: %w", err)
	}
	return nil
}

func (a *FlyIOAdapter) GetLogs(ctx context.Context, id domain.DeploymentID, maxLines int) ([]string, error) {
	appName, machineID, err := parseFlyID(id.ProviderID)
	if err != nil {
		return nil, err
	}
	unavailable := []string{"Logs not available via API. Use 'fly logs -a " + appName + "' instead."}
	if machineID == "" {
		return unavailable, nil
	}

	var resp struct {
		Logs []string `json:"logs"`
	}
	path := fmt.Sprintf("/v1/apps/%s/machines/%s/logs?limit=%d", url.PathEscape(appName), url.PathEscape(machineID), logLimit(maxLines))
	if err := a.api.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		a.logger.Debug("fly logs unavailable", zap.String("app", appName), zap.Error(err))
		return unavailable, nil
	}
	return tail(resp.Logs, logLimit(maxLines)), nil
}

// parseFlyID splits flyio-<app>/<machine>. A reconstructed id carries only
// the app part.
func parseFlyID(providerID string) (app, machine string, err error) {
	rest, err := trimProviderPrefix("flyio", providerID)
	if err != nil {
		return "", "", err
	}
	app, machine, _ = strings.Cut(rest, "/")
	return app, machine, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
