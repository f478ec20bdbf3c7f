package policystore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
	"github.com/davidleathers/change-risk-gate/internal/testutil"
)

const samplePolicyFile = `
policies:
  - id: security-baseline
    organization_id: org-1
    name: Security baseline
    rules:
      - id: no-secrets
        title: Hardcoded secret
        category: security
        severity: 9
        autoBlock: true
        matcher:
          type: jsonpath
          pattern: "*secret*"
      - id: big-change
        category: complexity
        severity: 3
        matcher:
          type: count
          threshold: 50
  - id: wrapped
    organization_id: org-1
    rules:
      rules:
        - id: removals
          category: governance
          severity: 2
          matcher: {type: operation, op: remove}
  - id: single
    organization_id: org-1
    rules:
      id: pii
      category: security
      severity: 6
      matcher: {type: regex, field: value, pattern: "ssn"}
  - id: retired
    organization_id: org-1
    active: false
    rules: []
  - id: elsewhere
    organization_id: org-2
    rules: []
`

func TestDecodePolicies(t *testing.T) {
	policies, err := DecodePolicies(strings.NewReader(samplePolicyFile))
	require.NoError(t, err)
	require.Len(t, policies, 5)

	tests := []struct {
		index    int
		encoding policy.DocumentEncoding
		rules    int
		active   bool
	}{
		{index: 0, encoding: policy.EncodingList, rules: 2, active: true},
		{index: 1, encoding: policy.EncodingWrapped, rules: 1, active: true},
		{index: 2, encoding: policy.EncodingSingle, rules: 1, active: true},
		{index: 3, encoding: policy.EncodingList, rules: 0, active: false},
	}
	for _, tt := range tests {
		p := policies[tt.index]
		assert.Equal(t, tt.encoding, p.Rules.Encoding(), p.ID)
		assert.Equal(t, tt.rules, p.Rules.Len(), p.ID)
		assert.Equal(t, tt.active, p.IsActive, p.ID)
	}

	assert.Equal(t, "Security baseline", policies[0].Name)
	assert.Equal(t, "wrapped", policies[1].Name)

	rule, err := policy.DecodeRule(policies[0].Rules.RawRules()[1])
	require.NoError(t, err)
	count, ok := rule.Matcher.(*policy.CountMatcher)
	require.True(t, ok)
	assert.Equal(t, 50.0, count.Threshold)
	assert.Equal(t, policy.DefaultCountField, count.Field)
}

func TestDecodePolicies_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "missing id", doc: "policies:\n  - organization_id: org-1\n", wantErr: "id is required"},
		{name: "missing organization", doc: "policies:\n  - id: p\n", wantErr: "organization_id is required"},
		{name: "not yaml", doc: "policies: [", wantErr: "decoding yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePolicies(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodePolicies_Empty(t *testing.T) {
	policies, err := DecodePolicies(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, policies)
}

func TestFileStore(t *testing.T) {
	path := testutil.WriteFile(t, "policies.yaml", samplePolicyFile)

	store, err := NewFileStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	policies, err := store.ListActivePolicies(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, policies, 3)
	assert.Equal(t, []string{"security-baseline", "wrapped", "single"},
		[]string{policies[0].ID, policies[1].ID, policies[2].ID})

	_, err = NewFileStore(path+".missing", zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestFileStore_ShippedPolicies(t *testing.T) {
	store, err := NewFileStore("../../../configs/policies.yaml", zaptest.NewLogger(t))
	require.NoError(t, err)

	policies, err := store.ListActivePolicies(context.Background(), "default")
	require.NoError(t, err)
	require.Len(t, policies, 2)

	encodings := []policy.DocumentEncoding{policy.EncodingList, policy.EncodingWrapped}
	for i, p := range policies {
		assert.Equal(t, encodings[i], p.Rules.Encoding(), p.ID)
		for _, raw := range p.Rules.RawRules() {
			_, err := policy.DecodeRule(raw)
			assert.NoError(t, err, "policy %s", p.ID)
		}
	}
}
