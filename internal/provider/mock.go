package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/Harshitk-cp/clawguild/internal/domain"
)

// MockAdapter is a configurable in-memory provider for tests and local runs.
// GetStatus walks Statuses in order and keeps returning the last entry.
type MockAdapter struct {
	Name string

	DeployResponse domain.DeploymentID
	DeployError    error
	Statuses       []domain.ProviderStatus
	StatusError    error
	DestroyError   error
	UpdateError    error
	LogsResponse   []string
	LogsError      error

	mu           sync.Mutex
	DeployCalls  []domain.AgentConfig
	StatusCalls  int
	DestroyCalls []domain.DeploymentID
	UpdateCalls  []domain.AgentConfig
	LogsCalls    []int
}

func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{
		Name:           name,
		DeployResponse: domain.DeploymentID{ProviderID: name + "-mock"},
		Statuses:       []domain.ProviderStatus{{Status: domain.DeploymentRunning, Endpoint: "https://mock.local", GatewayURL: "https://mock.local/openclaw"}},
		LogsResponse:   []string{},
	}
}

func (m *MockAdapter) ProviderName() string { return m.Name }

func (m *MockAdapter) Deploy(ctx context.Context, cfg domain.AgentConfig) (domain.DeploymentID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeployCalls = append(m.DeployCalls, cfg)
	if m.DeployError != nil {
		return domain.DeploymentID{}, m.DeployError
	}
	return m.DeployResponse, nil
}

func (m *MockAdapter) GetStatus(ctx context.Context, id domain.DeploymentID) (domain.ProviderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusCalls++
	if m.StatusError != nil {
		return domain.ProviderStatus{}, m.StatusError
	}
	if len(m.Statuses) == 0 {
		return domain.ProviderStatus{Status: domain.DeploymentPending}, nil
	}
	i := m.StatusCalls - 1
	if i >= len(m.Statuses) {
		i = len(m.Statuses) - 1
	}
	return m.Statuses[i], nil
}

func (m *MockAdapter) Destroy(ctx context.Context, id domain.DeploymentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DestroyCalls = append(m.DestroyCalls, id)
	return m.DestroyError
}

func (m *MockAdapter) UpdateConfig(ctx context.Context, id domain.DeploymentID, cfg domain.AgentConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = append(m.UpdateCalls, cfg)
	return m.UpdateError
}

func (m *MockAdapter) GetLogs(ctx context.Context, id domain.DeploymentID, maxLines int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LogsCalls = append(m.LogsCalls, maxLines)
	if m.LogsError != nil {
		return nil, m.LogsError
	}
	return tail(m.LogsResponse, logLimit(maxLines)), nil
}

// StatusCallCount is safe to read while a deploy is polling.
func (m *MockAdapter) StatusCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StatusCalls
}

func (m *MockAdapter) String() string {
	return fmt.Sprintf("mock provider %q", m.Name)
}
