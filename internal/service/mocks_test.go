package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/Harshitk-cp/clawguild/internal/store"
	"github.com/google/uuid"
)

// mockAgentStore implements domain.AgentStore for testing.
type mockAgentStore struct {
	mu     sync.Mutex
	agents map[uuid.UUID]*domain.Agent
}

func newMockAgentStore() *mockAgentStore {
	return &mockAgentStore{agents: make(map[uuid.UUID]*domain.Agent)}
}

func (m *mockAgentStore) Create(ctx context.Context, a *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.agents {
		if existing.Name == a.Name {
			return store.ErrConflict
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.agents[a.ID] = &cp
	return nil
}

func (m *mockAgentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAgentStore) List(ctx context.Context) ([]domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAgentStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AgentStatus) error {
	return m.update(id, func(a *domain.Agent) { a.Status = status })
}

func (m *mockAgentStore) UpdateDeploymentID(ctx context.Context, id uuid.UUID, deploymentID *uuid.UUID) error {
	return m.update(id, func(a *domain.Agent) {
		if deploymentID == nil {
			a.DeploymentID = nil
			return
		}
		v := *deploymentID
		a.DeploymentID = &v
	})
}

func (m *mockAgentStore) UpdateRuntimeConfig(ctx context.Context, id uuid.UUID, cfg map[string]any) error {
	return m.update(id, func(a *domain.Agent) { a.RuntimeConfig = cfg })
}

func (m *mockAgentStore) update(id uuid.UUID, fn func(*domain.Agent)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(a)
	a.UpdatedAt = time.Now()
	return nil
}

// get reads an agent for assertions.
func (m *mockAgentStore) get(id uuid.UUID) domain.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.agents[id]
}

// mockDeploymentStore implements domain.DeploymentStore for testing.
type mockDeploymentStore struct {
	mu    sync.Mutex
	deps  map[uuid.UUID]*domain.Deployment
	order []uuid.UUID
}

func newMockDeploymentStore() *mockDeploymentStore {
	return &mockDeploymentStore{deps: make(map[uuid.UUID]*domain.Deployment)}
}

func (m *mockDeploymentStore) Create(ctx context.Context, d *domain.Deployment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	cp.AgentIDs = slices.Clone(d.AgentIDs)
	m.deps[d.ID] = &cp
	m.order = append(m.order, d.ID)
	return nil
}

func (m *mockDeploymentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deps[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockDeploymentStore) GetActiveByAgentID(ctx context.Context, agentID uuid.UUID) (*domain.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		d := m.deps[m.order[i]]
		if d.Status == domain.DeploymentStopped {
			continue
		}
		if d.AgentID == agentID || slices.Contains(d.AgentIDs, agentID) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockDeploymentStore) List(ctx context.Context) ([]domain.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Deployment, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, *m.deps[m.order[i]])
	}
	return out, nil
}

func (m *mockDeploymentStore) ListByStatus(ctx context.Context, status domain.DeploymentStatus) ([]domain.Deployment, error) {
	all, _ := m.List(ctx)
	var out []domain.Deployment
	for _, d := range all {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDeploymentStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DeploymentStatus) error {
	return m.update(id, func(d *domain.Deployment) { d.Status = status })
}

func (m *mockDeploymentStore) UpdateStatusDetails(ctx context.Context, id uuid.UUID, status domain.DeploymentStatus, endpoint, gatewayURL string) error {
	return m.update(id, func(d *domain.Deployment) {
		d.Status = status
		d.Endpoint = endpoint
		d.GatewayURL = gatewayURL
	})
}

func (m *mockDeploymentStore) UpdateProviderID(ctx context.Context, id uuid.UUID, providerID string) error {
	return m.update(id, func(d *domain.Deployment) { d.ProviderID = providerID })
}

func (m *mockDeploymentStore) update(id uuid.UUID, fn func(*domain.Deployment)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deps[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(d)
	d.UpdatedAt = time.Now()
	return nil
}

func (m *mockDeploymentStore) get(id uuid.UUID) domain.Deployment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.deps[id]
}

func (m *mockDeploymentStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deps)
}

type sentMessage struct {
	channel string
	text    string
	embed   *domain.Embed
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeMessenger) SendMessage(ctx context.Context, channelID, text string, embed *domain.Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channel: channelID, text: text, embed: embed})
	return f.err
}

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.DeploymentEvent
}

func (f *fakeEvents) PublishDeployment(ctx context.Context, ev domain.DeploymentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) statuses() []domain.DeploymentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.DeploymentStatus, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Status)
	}
	return out
}

var (
	_ domain.AgentStore      = (*mockAgentStore)(nil)
	_ domain.DeploymentStore = (*mockDeploymentStore)(nil)
	_ domain.Messenger       = (*fakeMessenger)(nil)
	_ domain.EventPublisher  = (*fakeEvents)(nil)
)
