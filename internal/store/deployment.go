package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const deploymentColumns = `id, agent_id, agent_ids, provider, COALESCE(region, ''), status,
	COALESCE(provider_id, ''), COALESCE(endpoint, ''), COALESCE(gateway_url, ''), created_at, updated_at`

type DeploymentStore struct {
	db *pgxpool.Pool
}

func NewDeploymentStore(db *pgxpool.Pool) *DeploymentStore {
	return &DeploymentStore{db: db}
}

func (s *DeploymentStore) Create(ctx context.Context, d *domain.Deployment) error {
	agentIDs := d.AgentIDs
	if agentIDs == nil {
		agentIDs = []uuid.UUID{}
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO deployments (agent_id, agent_ids, provider, region, status)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		 RETURNING id, created_at, updated_at`,
		d.AgentID, agentIDs, d.Provider, d.Region, d.Status,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (s *DeploymentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error) {
	return s.getOne(ctx, `SELECT `+deploymentColumns+` FROM deployments WHERE id = $1`, id)
}

func (s *DeploymentStore) GetActiveByAgentID(ctx context.Context, agentID uuid.UUID) (*domain.Deployment, error) {
	return s.getOne(ctx,
		`SELECT `+deploymentColumns+` FROM deployments
		 WHERE (agent_id = $1 OR $1 = ANY(agent_ids)) AND status <> $2
		 ORDER BY created_at DESC LIMIT 1`,
		agentID, domain.DeploymentStopped)
}

func (s *DeploymentStore) List(ctx context.Context) ([]domain.Deployment, error) {
	return s.list(ctx, `SELECT `+deploymentColumns+` FROM deployments ORDER BY created_at DESC`)
}

func (s *DeploymentStore) ListByStatus(ctx context.Context, status domain.DeploymentStatus) ([]domain.Deployment, error) {
	return s.list(ctx,
		`SELECT `+deploymentColumns+` FROM deployments WHERE status = $1 ORDER BY created_at`,
		status)
}

func (s *DeploymentStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DeploymentStatus) error {
	return s.exec(ctx,
		`UPDATE deployments SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
}

func (s *DeploymentStore) UpdateStatusDetails(ctx context.Context, id uuid.UUID, status domain.DeploymentStatus, endpoint, gatewayURL string) error {
	return s.exec(ctx,
		`UPDATE deployments
		 SET status = $2, endpoint = NULLIF($3, ''), gateway_url = NULLIF($4, ''), updated_at = NOW()
		 WHERE id = $1`,
		id, status, endpoint, gatewayURL)
}

func (s *DeploymentStore) UpdateProviderID(ctx context.Context, id uuid.UUID, providerID string) error {
	return s.exec(ctx,
		`UPDATE deployments SET provider_id = $2, updated_at = NOW() WHERE id = $1`,
		id, providerID)
}

func (s *DeploymentStore) getOne(ctx context.Context, sql string, args ...any) (*domain.Deployment, error) {
	d, err := scanDeployment(s.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *DeploymentStore) list(ctx context.Context, sql string, args ...any) ([]domain.Deployment, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *DeploymentStore) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDeployment(row pgx.Row) (*domain.Deployment, error) {
	d := &domain.Deployment{}
	err := row.Scan(&d.ID, &d.AgentID, &d.AgentIDs, &d.Provider, &d.Region, &d.Status,
		&d.ProviderID, &d.Endpoint, &d.GatewayURL, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}
