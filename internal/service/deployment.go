package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/Harshitk-cp/clawguild/internal/provider"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultStatusTTL = 5 * time.Second

// DeploymentService serves read paths over deployments: records, logs and
// live provider status.
type DeploymentService struct {
	deployments domain.DeploymentStore
	adapters    *provider.Registry
	cache       *ristretto.Cache[string, domain.ProviderStatus]
	ttl         time.Duration
	logger      *zap.Logger
}

func NewDeploymentService(ds domain.DeploymentStore, adapters *provider.Registry, statusTTL time.Duration, logger *zap.Logger) (*DeploymentService, error) {
	if statusTTL <= 0 {
		statusTTL = defaultStatusTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, domain.ProviderStatus]{
		NumCounters:        10_000,
		MaxCost:            1_000,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("status cache: %w", err)
	}
	return &DeploymentService{
		deployments: ds,
		adapters:    adapters,
		cache:       cache,
		ttl:         statusTTL,
		logger:      logger,
	}, nil
}

func (s *DeploymentService) List(ctx context.Context) ([]domain.Deployment, error) {
	deps, err := s.deployments.List(ctx)
	if err != nil {
		return nil, translate(err, "list deployments")
	}
	return deps, nil
}

func (s *DeploymentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error) {
	d, err := s.deployments.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "get deployment")
	}
	return d, nil
}

// Logs returns up to maxLines of the host's recent output, oldest first.
func (s *DeploymentService) Logs(ctx context.Context, id uuid.UUID, maxLines int) ([]string, error) {
	dep, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	adapter, err := s.adapters.Get(string(dep.Provider))
	if err != nil {
		return nil, err
	}
	lines, err := adapter.GetLogs(ctx, providerRef(dep), maxLines)
	if err != nil {
		return nil, fmt.Errorf("logs of %s: %w", dep.ID, err)
	}
	return lines, nil
}

// LiveStatus asks the provider for the current status. Answers are cached
// briefly so dashboards polling the endpoint do not hammer provider APIs.
func (s *DeploymentService) LiveStatus(ctx context.Context, id uuid.UUID) (domain.ProviderStatus, error) {
	key := id.String()
	if st, ok := s.cache.Get(key); ok {
		return st, nil
	}

	dep, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.ProviderStatus{}, err
	}
	if dep.Status == domain.DeploymentStopped {
		return domain.ProviderStatus{Status: domain.DeploymentStopped}, nil
	}
	adapter, err := s.adapters.Get(string(dep.Provider))
	if err != nil {
		return domain.ProviderStatus{}, err
	}
	st, err := adapter.GetStatus(ctx, providerRef(dep))
	if err != nil {
		return domain.ProviderStatus{}, fmt.Errorf("status of %s: %w", dep.ID, err)
	}

	s.cache.SetWithTTL(key, st, 1, s.ttl)
	return st, nil
}

func (s *DeploymentService) Close() {
	s.cache.Close()
}
