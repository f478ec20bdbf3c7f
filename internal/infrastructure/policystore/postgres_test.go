package policystore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/change-risk-gate/internal/domain/errors"
	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
	"github.com/davidleathers/change-risk-gate/internal/infrastructure/config"
	"github.com/davidleathers/change-risk-gate/internal/testutil"
	"github.com/davidleathers/change-risk-gate/internal/testutil/containers"
	"github.com/davidleathers/change-risk-gate/internal/testutil/fixtures"
)

func TestPgx5URL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "postgres://u:p@localhost:5432/db?sslmode=disable", want: "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{in: "postgresql://localhost/db", want: "pgx5://localhost/db"},
		{in: "pgx5://localhost/db", want: "pgx5://localhost/db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pgx5URL(tt.in))
	}
}

func TestMigrate_UnknownDirection(t *testing.T) {
	_, err := Migrate("postgres://localhost:1/db", "sideways")
	assert.Error(t, err)
}

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := testutil.TestContext(t)
	pg, err := containers.NewPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	version, err := Migrate(pg.ConnectionString, MigrateUp)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	version, err = Migrate(pg.ConnectionString, MigrateUp)
	require.NoError(t, err, "re-running up is a no-op")
	assert.Equal(t, uint(1), version)

	pool, err := NewPostgresPool(ctx, config.DatabaseConfig{URL: pg.ConnectionString, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewPostgresStore(pool, zaptest.NewLogger(t))

	listDoc := fixtures.NewPolicyBuilder(t, "p-list").
		WithRules(fixtures.NewRuleBuilder(t, "adds"), fixtures.NewRuleBuilder(t, "big").MatchCount("totalChanges", 10)).
		Build()
	wrappedDoc := fixtures.NewPolicyBuilder(t, "p-wrapped").
		WithRawRules(`{"rules": [{"id": "r", "category": "security", "severity": 2, "matcher": {"type": "operation", "op": "remove"}}]}`).
		Build()
	inactive := fixtures.NewPolicyBuilder(t, "p-off").Inactive().Build()
	otherOrg := fixtures.NewPolicyBuilder(t, "p-other").WithOrganization("org-other").Build()

	for _, p := range []*policy.Policy{listDoc, wrappedDoc, inactive, otherOrg} {
		require.NoError(t, store.SavePolicy(ctx, p))
	}

	policies, err := store.ListActivePolicies(ctx, fixtures.DefaultOrganizationID)
	require.NoError(t, err)
	require.Len(t, policies, 2)

	byID := map[string]*policy.Policy{}
	for _, p := range policies {
		byID[p.ID] = p
	}
	require.Contains(t, byID, "p-list")
	require.Contains(t, byID, "p-wrapped")
	assert.Equal(t, policy.EncodingList, byID["p-list"].Rules.Encoding())
	assert.Equal(t, 2, byID["p-list"].Rules.Len())
	assert.Equal(t, policy.EncodingWrapped, byID["p-wrapped"].Rules.Encoding())

	err = store.SavePolicy(ctx, &policy.Policy{ID: "no-org"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	version, err = Migrate(pg.ConnectionString, MigrateDown)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}
