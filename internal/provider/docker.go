package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"
)

const (
	labelManagedBy = "clawguild.managed-by"
	labelAgentID   = "clawguild.agent-id"
	labelRuntime   = "clawguild.runtime"
	managedByValue = "clawguild"

	dockerImage = "debian:bookworm-slim"
)

// containerAPI is the part of the Docker Engine the adapter drives.
type containerAPI interface {
	Create(ctx context.Context, cfg *container.Config, host *container.HostConfig, net *network.NetworkingConfig, name string) (string, error)
	Start(ctx context.Context, id string) error
	Inspect(ctx context.Context, id string) (containerState, error)
	Remove(ctx context.Context, id string) error
	Logs(ctx context.Context, id string, tail int) (io.ReadCloser, error)
}

type containerState struct {
	Status string
	IP     string
}

// engineClient adapts *dockerclient.Client to containerAPI.
type engineClient struct {
	cli     *dockerclient.Client
	network string
}

func (e *engineClient) Create(ctx context.Context, cfg *container.Config, host *container.HostConfig, net *network.NetworkingConfig, name string) (string, error) {
	resp, err := e.cli.ContainerCreate(ctx, cfg, host, net, nil, name)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (e *engineClient) Start(ctx context.Context, id string) error {
	return e.cli.ContainerStart(ctx, id, container.StartOptions{})
}

func (e *engineClient) Inspect(ctx context.Context, id string) (containerState, error) {
	inspect, err := e.cli.ContainerInspect(ctx, id)
	if err != nil {
		return containerState{}, err
	}
	var st containerState
	if inspect.ContainerJSONBase != nil && inspect.State != nil {
		st.Status = inspect.State.Status
	}
	if inspect.NetworkSettings != nil {
		if ep, ok := inspect.NetworkSettings.Networks[e.network]; ok && ep != nil {
			st.IP = ep.IPAddress
		}
		if st.IP == "" {
			st.IP = inspect.NetworkSettings.IPAddress
		}
	}
	return st, nil
}

func (e *engineClient) Remove(ctx context.Context, id string) error {
	return e.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}

func (e *engineClient) Logs(ctx context.Context, id string, tail int) (io.ReadCloser, error) {
	return e.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
}

// DockerAdapter runs deployments as containers on the local Docker host.
// Provider ids look like docker-<container id>.
type DockerAdapter struct {
	engine  containerAPI
	network string
	logger  *zap.Logger
}

func NewDockerAdapter(opts Options, logger *zap.Logger) (*DockerAdapter, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return newDockerAdapter(&engineClient{cli: cli, network: opts.DockerNetwork}, opts.DockerNetwork, logger), nil
}

func newDockerAdapter(engine containerAPI, networkName string, logger *zap.Logger) *DockerAdapter {
	return &DockerAdapter{engine: engine, network: networkName, logger: logger}
}

func (a *DockerAdapter) ProviderName() string { return string(domain.ProviderDocker) }

func (a *DockerAdapter) Deploy(ctx context.Context, cfg domain.AgentConfig) (domain.DeploymentID, error) {
	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)

	containerCfg := &container.Config{
		Image: dockerImage,
		Env:   env,
		Cmd:   []string{"/bin/bash", "-c", cfg.InitScript},
		Labels: map[string]string{
			labelManagedBy: managedByValue,
			labelAgentID:   cfg.Agent.ID.String(),
			labelRuntime:   string(cfg.Runtime),
		},
	}
	hostCfg := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{Name: "unless-stopped"},
	}
	var netCfg *network.NetworkingConfig
	if a.network != "" {
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{a.network: {}},
		}
	}

	id, err := a.engine.Create(ctx, containerCfg, hostCfg, netCfg, hostName(cfg))
	if err != nil {
		return domain.DeploymentID{}, fmt.Errorf("%w: create container: %w", domain.ErrRemoteRejected, err)
	}
	if err := a.engine.Start(ctx, id); err != nil {
		_ = a.engine.Remove(ctx, id)
		return domain.DeploymentID{}, fmt.Errorf("%w: start container: %w", domain.ErrRemoteRejected, err)
	}

	a.logger.Info("container started", zap.String("container", id), zap.String("name", hostName(cfg)))
	return domain.DeploymentID{ProviderID: "docker-" + id}, nil
}

func (a *DockerAdapter) GetStatus(ctx context.Context, id domain.DeploymentID) (domain.ProviderStatus, error) {
	containerID, err := trimProviderPrefix("docker", id.ProviderID)
	if err != nil {
		return domain.ProviderStatus{}, err
	}

	st, err := a.engine.Inspect(ctx, containerID)
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return domain.ProviderStatus{Status: domain.DeploymentPending}, nil
		}
		return domain.ProviderStatus{}, fmt.Errorf("%w: inspect container: %w", domain.ErrRemoteRejected, err)
	}

	status := domain.ProviderStatus{Status: mapContainerState(st.Status)}
	if st.IP != "" {
		status.Endpoint = "http://" + st.IP + ":3000"
		status.GatewayURL = status.Endpoint + "/openclaw"
	}
	return status, nil
}

func mapContainerState(s string) domain.DeploymentStatus {
	switch strings.ToLower(s) {
	case "running":
		return domain.DeploymentRunning
	case "created", "restarting":
		return domain.DeploymentCreating
	case "exited", "dead", "removing", "paused":
		return domain.DeploymentFailed
	default:
		return domain.DeploymentPending
	}
}

func (a *DockerAdapter) Destroy(ctx context.Context, id domain.DeploymentID) error {
	containerID, err := trimProviderPrefix("docker", id.ProviderID)
	if err != nil {
		return err
	}
	if err := a.engine.Remove(ctx, containerID); err != nil && !dockerclient.IsErrNotFound(err) {
		return fmt.Errorf("%w: remove container: %w", domain.ErrRemoteRejected, err)
	}
	return nil
}

func (a *DockerAdapter) UpdateConfig(ctx context.Context, id domain.DeploymentID, cfg domain.AgentConfig) error {
	return fmt.Errorf("%w: container environment is fixed at creation", domain.ErrUnsupported)
}

func (a *DockerAdapter) GetLogs(ctx context.Context, id domain.DeploymentID, maxLines int) ([]string, error) {
	containerID, err := trimProviderPrefix("docker", id.ProviderID)
	if err != nil {
		return nil, err
	}

	rc, err := a.engine.Logs(ctx, containerID, logLimit(maxLines))
	if err != nil {
		a.logger.Debug("container logs unavailable", zap.String("container", containerID), zap.Error(err))
		return []string{"Logs not available. Use 'docker logs " + containerID + "' instead."}, nil
	}
	defer func() { _ = rc.Close() }()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return nil, fmt.Errorf("%w: read container logs: %w", domain.ErrMalformedResponse, err)
	}
	out := strings.TrimRight(buf.String(), "\n")
	if out == "" {
		return []string{}, nil
	}
	return tail(strings.Split(out, "\n"), logLimit(maxLines)), nil
}
