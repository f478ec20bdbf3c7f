package policystore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/davidleathers/change-risk-gate/internal/domain/errors"
	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
	"github.com/davidleathers/change-risk-gate/internal/infrastructure/config"
)

const listActivePoliciesSQL = `
	SELECT id, organization_id, name, is_active, rules
	FROM governance_policies
	WHERE organization_id = $1 AND is_active
	ORDER BY created_at, id`

const upsertPolicySQL = `
	INSERT INTO governance_policies (id, organization_id, name, is_active, rules)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		organization_id = EXCLUDED.organization_id,
		name = EXCLUDED.name,
		is_active = EXCLUDED.is_active,
		rules = EXCLUDED.rules,
		updated_at = NOW()`

// PostgresStore reads policies from the governance_policies table
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresPool opens a pgx pool for the configured database and pings it
func NewPostgresPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// NewPostgresStore creates a store over an open pool
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// ListActivePolicies returns the organization's active policies, oldest first
func (s *PostgresStore) ListActivePolicies(ctx context.Context, organizationID string) ([]*policy.Policy, error) {
	rows, err := s.pool.Query(ctx, listActivePoliciesSQL, organizationID)
	if err != nil {
		return nil, errors.NewExternalError("postgres", "failed to query active policies").WithCause(err)
	}
	defer rows.Close()

	var policies []*policy.Policy
	for rows.Next() {
		var (
			p     policy.Policy
			rules []byte
		)
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.IsActive, &rules); err != nil {
			return nil, errors.NewExternalError("postgres", "failed to scan policy").WithCause(err)
		}
		p.Rules = policy.NewRuleDocument(rules)
		policies = append(policies, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewExternalError("postgres", "failed to read policies").WithCause(err)
	}

	s.logger.Debug("active policies loaded",
		zap.String("organization_id", organizationID),
		zap.Int("count", len(policies)))

	return policies, nil
}

// SavePolicy inserts or replaces a policy
func (s *PostgresStore) SavePolicy(ctx context.Context, p *policy.Policy) error {
	if p == nil || p.ID == "" || p.OrganizationID == "" {
		return errors.NewValidationError("INVALID_POLICY", "policy id and organization id are required")
	}

	rules, err := p.Rules.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encoding rule document")
	}

	if _, err := s.pool.Exec(ctx, upsertPolicySQL, p.ID, p.OrganizationID, p.Name, p.IsActive, rules); err != nil {
		return errors.NewExternalError("postgres", "failed to save policy").WithCause(err)
	}
	return nil
}
