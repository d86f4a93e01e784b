package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEngine struct {
	created  *container.Config
	name     string
	startErr error
	removed  []string
	state    containerState
	logs     []byte
}

func (f *fakeEngine) Create(ctx context.Context, cfg *container.Config, host *container.HostConfig, net *network.NetworkingConfig, name string) (string, error) {
	f.created = cfg
	f.name = name
	return "c0ffee", nil
}

func (f *fakeEngine) Start(ctx context.Context, id string) error { return f.startErr }

func (f *fakeEngine) Inspect(ctx context.Context, id string) (containerState, error) {
	return f.state, nil
}

func (f *fakeEngine) Remove(ctx context.Context, id string) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeEngine) Logs(ctx context.Context, id string, tail int) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.logs)), nil
}

func TestDockerAdapter_Deploy(t *testing.T) {
	f := &fakeEngine{}
	a := newDockerAdapter(f, "", zap.NewNop())
	agentID := uuid.New()

	id, err := a.Deploy(context.Background(), domain.AgentConfig{
		Agent:      domain.Agent{ID: agentID, Name: "Scout"},
		Runtime:    domain.RuntimePicoClaw,
		InitScript: "echo hi",
		Env:        map[string]string{"Z": "1", "A": "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "docker-c0ffee", id.ProviderID)
	assert.Equal(t, "clawguild-scout", f.name)
	assert.Equal(t, []string{"A=2", "Z=1"}, f.created.Env)
	assert.Equal(t, agentID.String(), f.created.Labels[labelAgentID])
	assert.Equal(t, "picoclaw", f.created.Labels[labelRuntime])
}

func TestDockerAdapter_StartFailureRemovesContainer(t *testing.T) {
	f := &fakeEngine{startErr: errors.New("no such image")}
	_, err := newDockerAdapter(f, "", zap.NewNop()).Deploy(context.Background(), domain.AgentConfig{Agent: domain.Agent{Name: "x"}})
	assert.ErrorIs(t, err, domain.ErrRemoteRejected)
	assert.Equal(t, []string{"c0ffee"}, f.removed)
}

func TestDockerAdapter_GetStatus(t *testing.T) {
	f := &fakeEngine{state: containerState{Status: "running", IP: "172.18.0.5"}}
	st, err := newDockerAdapter(f, "", zap.NewNop()).GetStatus(context.Background(), domain.DeploymentID{ProviderID: "docker-c0ffee"})
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentRunning, st.Status)
	assert.Equal(t, "http://172.18.0.5:3000", st.Endpoint)

	f.state = containerState{Status: "exited"}
	st, err = newDockerAdapter(f, "", zap.NewNop()).GetStatus(context.Background(), domain.DeploymentID{ProviderID: "docker-c0ffee"})
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentFailed, st.Status)
	assert.Empty(t, st.Endpoint)
}

func TestDockerAdapter_GetLogsDemultiplexes(t *testing.T) {
	var buf bytes.Buffer
	_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte("one\ntwo\n"))
	_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte("three\n"))

	f := &fakeEngine{logs: buf.Bytes()}
	lines, err := newDockerAdapter(f, "", zap.NewNop()).GetLogs(context.Background(), domain.DeploymentID{ProviderID: "docker-c0ffee"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "three"}, lines)
}

func TestDockerAdapter_UpdateConfigUnsupported(t *testing.T) {
	err := newDockerAdapter(&fakeEngine{}, "", zap.NewNop()).UpdateConfig(context.Background(), domain.DeploymentID{ProviderID: "docker-c0ffee"}, domain.AgentConfig{})
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}
