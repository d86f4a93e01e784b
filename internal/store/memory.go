package store

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/google/uuid"
)

// MemoryAgentStore keeps agents in process memory. It backs local runs
// without DATABASE_URL and the HTTP tests.
type MemoryAgentStore struct {
	mu     sync.RWMutex
	agents map[uuid.UUID]domain.Agent
}

func NewMemoryAgentStore() *MemoryAgentStore {
	return &MemoryAgentStore{agents: make(map[uuid.UUID]domain.Agent)}
}

func (s *MemoryAgentStore) Create(_ context.Context, a *domain.Agent) error {
	if a.Skills == nil {
		a.Skills = []string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.agents {
		if existing.Name == a.Name {
			return ErrConflict
		}
	}
	now := time.Now().UTC()
	a.ID = uuid.New()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.agents[a.ID] = cloneAgent(*a)
	return nil
}

func (s *MemoryAgentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneAgent(a)
	return &out, nil
}

func (s *MemoryAgentStore) List(_ context.Context) ([]domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, cloneAgent(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryAgentStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.AgentStatus) error {
	return s.update(id, func(a *domain.Agent) { a.Status = status })
}

func (s *MemoryAgentStore) UpdateDeploymentID(_ context.Context, id uuid.UUID, deploymentID *uuid.UUID) error {
	return s.update(id, func(a *domain.Agent) {
		if deploymentID == nil {
			a.DeploymentID = nil
			return
		}
		d := *deploymentID
		a.DeploymentID = &d
	})
}

func (s *MemoryAgentStore) UpdateRuntimeConfig(_ context.Context, id uuid.UUID, cfg map[string]any) error {
	return s.update(id, func(a *domain.Agent) { a.RuntimeConfig = cloneMap(cfg) })
}

func (s *MemoryAgentStore) update(id uuid.UUID, fn func(*domain.Agent)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return ErrNotFound
	}
	fn(&a)
	a.UpdatedAt = time.Now().UTC()
	s.agents[id] = a
	return nil
}

// MemoryDeploymentStore is the in-process counterpart of DeploymentStore.
type MemoryDeploymentStore struct {
	mu          sync.RWMutex
	deployments map[uuid.UUID]domain.Deployment
	seq         int64
	order       map[uuid.UUID]int64
}

func NewMemoryDeploymentStore() *MemoryDeploymentStore {
	return &MemoryDeploymentStore{
		deployments: make(map[uuid.UUID]domain.Deployment),
		order:       make(map[uuid.UUID]int64),
	}
}

func (s *MemoryDeploymentStore) Create(_ context.Context, d *domain.Deployment) error {
	now := time.Now().UTC()
	d.ID = uuid.New()
	d.CreatedAt = now
	d.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.order[d.ID] = s.seq
	s.deployments[d.ID] = cloneDeployment(*d)
	return nil
}

func (s *MemoryDeploymentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deployments[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneDeployment(d)
	return &out, nil
}

func (s *MemoryDeploymentStore) GetActiveByAgentID(_ context.Context, agentID uuid.UUID) (*domain.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best    *domain.Deployment
		bestSeq int64
	)
	for id, d := range s.deployments {
		if d.Status == domain.DeploymentStopped {
			continue
		}
		if d.AgentID != agentID && !slices.Contains(d.AgentIDs, agentID) {
			continue
		}
		if seq := s.order[id]; best == nil || seq > bestSeq {
			c := cloneDeployment(d)
			best, bestSeq = &c, seq
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (s *MemoryDeploymentStore) List(_ context.Context) ([]domain.Deployment, error) {
	out := s.filter(func(domain.Deployment) bool { return true })
	slices.Reverse(out)
	return out, nil
}

func (s *MemoryDeploymentStore) ListByStatus(_ context.Context, status domain.DeploymentStatus) ([]domain.Deployment, error) {
	return s.filter(func(d domain.Deployment) bool { return d.Status == status }), nil
}

func (s *MemoryDeploymentStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.DeploymentStatus) error {
	return s.update(id, func(d *domain.Deployment) { d.Status = status })
}

func (s *MemoryDeploymentStore) UpdateStatusDetails(_ context.Context, id uuid.UUID, status domain.DeploymentStatus, endpoint, gatewayURL string) error {
	return s.update(id, func(d *domain.Deployment) {
		d.Status = status
		d.Endpoint = endpoint
		d.GatewayURL = gatewayURL
	})
}

func (s *MemoryDeploymentStore) UpdateProviderID(_ context.Context, id uuid.UUID, providerID string) error {
	return s.update(id, func(d *domain.Deployment) { d.ProviderID = providerID })
}

// filter returns matching deployments oldest first.
func (s *MemoryDeploymentStore) filter(keep func(domain.Deployment) bool) []domain.Deployment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Deployment, 0, len(s.deployments))
	for _, d := range s.deployments {
		if keep(d) {
			out = append(out, cloneDeployment(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] < s.order[out[j].ID] })
	return out
}

func (s *MemoryDeploymentStore) update(id uuid.UUID, fn func(*domain.Deployment)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deployments[id]
	if !ok {
		return ErrNotFound
	}
	fn(&d)
	d.UpdatedAt = time.Now().UTC()
	s.deployments[id] = d
	return nil
}

func cloneAgent(a domain.Agent) domain.Agent {
	if a.DeploymentID != nil {
		d := *a.DeploymentID
		a.DeploymentID = &d
	}
	if a.TeamID != nil {
		t := *a.TeamID
		a.TeamID = &t
	}
	if a.DiscordChannels != nil {
		c := *a.DiscordChannels
		a.DiscordChannels = &c
	}
	a.Skills = slices.Clone(a.Skills)
	a.RuntimeConfig = cloneMap(a.RuntimeConfig)
	return a
}

func cloneDeployment(d domain.Deployment) domain.Deployment {
	d.AgentIDs = slices.Clone(d.AgentIDs)
	return d
}

// cloneMap deep-copies a JSON document the same way a JSONB round trip does.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return m
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return m
	}
	return out
}
