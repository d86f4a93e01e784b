package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const agentColumns = `id, name, role, status, runtime, deployment_id, team_id,
	COALESCE(discord_bot_token, ''), COALESCE(discord_channel_id, ''), discord_channels,
	model_provider, COALESCE(model_api_key, ''), COALESCE(model_endpoint, ''),
	COALESCE(personality, ''), skills, COALESCE(workspace_dir, ''), runtime_config,
	COALESCE(responsibility, ''), COALESCE(emoji, ''), created_at, updated_at`

type AgentStore struct {
	db *pgxpool.Pool
}

func NewAgentStore(db *pgxpool.Pool) *AgentStore {
	return &AgentStore{db: db}
}

func (s *AgentStore) Create(ctx context.Context, a *domain.Agent) error {
	if a.Skills == nil {
		a.Skills = []string{}
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO agents (name, role, status, runtime, team_id, discord_bot_token, discord_channel_id,
		   discord_channels, model_provider, model_api_key, model_endpoint, personality, skills,
		   workspace_dir, runtime_config, responsibility, emoji)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id, created_at, updated_at`,
		a.Name, a.Role, a.Status, a.Runtime, a.TeamID, a.DiscordBotToken, a.DiscordChannelID,
		a.DiscordChannels, a.ModelProvider, a.ModelAPIKey, a.ModelEndpoint, a.Personality, a.Skills,
		a.WorkspaceDir, a.RuntimeConfig, a.Responsibility, a.Emoji,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *AgentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	a, err := scanAgent(s.db.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *AgentStore) List(ctx context.Context) ([]domain.Agent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

func (s *AgentStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AgentStatus) error {
	return s.exec(ctx,
		`UPDATE agents SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
}

func (s *AgentStore) UpdateDeploymentID(ctx context.Context, id uuid.UUID, deploymentID *uuid.UUID) error {
	return s.exec(ctx,
		`UPDATE agents SET deployment_id = $2, updated_at = NOW() WHERE id = $1`,
		id, deploymentID)
}

func (s *AgentStore) UpdateRuntimeConfig(ctx context.Context, id uuid.UUID, cfg map[string]any) error {
	return s.exec(ctx,
		`UPDATE agents SET runtime_config = $2, updated_at = NOW() WHERE id = $1`,
		id, cfg)
}

func (s *AgentStore) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	a := &domain.Agent{}
	err := row.Scan(&a.ID, &a.Name, &a.Role, &a.Status, &a.Runtime, &a.DeploymentID, &a.TeamID,
		&a.DiscordBotToken, &a.DiscordChannelID, &a.DiscordChannels,
		&a.ModelProvider, &a.ModelAPIKey, &a.ModelEndpoint,
		&a.Personality, &a.Skills, &a.WorkspaceDir, &a.RuntimeConfig,
		&a.Responsibility, &a.Emoji, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}
