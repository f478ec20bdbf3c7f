package fixtures

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidleathers/change-risk-gate/internal/domain/change"
	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
)

// DefaultOrganizationID is the organization fixtures belong to unless overridden
const DefaultOrganizationID = "org-test"

// RuleBuilder builds rule payloads in their stored JSON shape
type RuleBuilder struct {
	t       *testing.T
	fields  map[string]interface{}
	matcher map[string]interface{}
}

// NewRuleBuilder creates an operational severity 1 rule matching every add
func NewRuleBuilder(t *testing.T, id string) *RuleBuilder {
	t.Helper()
	return &RuleBuilder{
		t: t,
		fields: map[string]interface{}{
			"id":       id,
			"category": string(policy.CategoryOperational),
			"severity": 1,
		},
		matcher: map[string]interface{}{
			"type": string(policy.MatcherOperation),
			"op":   string(change.OpAdd),
		},
	}
}

func (b *RuleBuilder) WithTitle(title string) *RuleBuilder {
	b.fields["title"] = title
	return b
}

func (b *RuleBuilder) WithCategory(c policy.Category) *RuleBuilder {
	b.fields["category"] = string(c)
	return b
}

func (b *RuleBuilder) WithSeverity(severity int) *RuleBuilder {
	b.fields["severity"] = severity
	return b
}

func (b *RuleBuilder) WithMessage(message string) *RuleBuilder {
	b.fields["message"] = message
	return b
}

func (b *RuleBuilder) AutoBlock() *RuleBuilder {
	b.fields["autoBlock"] = true
	return b
}

func (b *RuleBuilder) Inverted() *RuleBuilder {
	b.fields["invert"] = true
	return b
}

func (b *RuleBuilder) MatchOperation(op change.OpCode) *RuleBuilder {
	b.matcher = map[string]interface{}{"type": string(policy.MatcherOperation), "op": string(op)}
	return b
}

func (b *RuleBuilder) MatchPath(pattern string) *RuleBuilder {
	b.matcher = map[string]interface{}{"type": string(policy.MatcherJSONPath), "pattern": pattern}
	return b
}

func (b *RuleBuilder) MatchValue(valuePattern string) *RuleBuilder {
	b.matcher = map[string]interface{}{"type": string(policy.MatcherJSONPath), "valuePattern": valuePattern}
	return b
}

func (b *RuleBuilder) MatchRegex(field policy.RegexField, pattern string) *RuleBuilder {
	b.matcher = map[string]interface{}{"type": string(policy.MatcherRegex), "field": string(field), "pattern": pattern}
	return b
}

func (b *RuleBuilder) MatchCount(field string, threshold float64) *RuleBuilder {
	b.matcher = map[string]interface{}{"type": string(policy.MatcherCount), "field": field, "threshold": threshold}
	return b
}

// Raw returns the stored JSON payload of the rule
func (b *RuleBuilder) Raw() json.RawMessage {
	b.t.Helper()
	payload := make(map[string]interface{}, len(b.fields)+1)
	for k, v := range b.fields {
		payload[k] = v
	}
	payload["matcher"] = b.matcher

	raw, err := json.Marshal(payload)
	require.NoError(b.t, err)
	return raw
}

// Build decodes the payload into a validated rule
func (b *RuleBuilder) Build() *policy.PolicyRule {
	b.t.Helper()
	rule, err := policy.DecodeRule(b.Raw())
	require.NoError(b.t, err)
	return rule
}

// PolicyBuilder builds test Policy values
type PolicyBuilder struct {
	t      *testing.T
	id     string
	orgID  string
	name   string
	active bool
	rules  []json.RawMessage
	raw    []byte
}

// NewPolicyBuilder creates an active, empty policy in DefaultOrganizationID
func NewPolicyBuilder(t *testing.T, id string) *PolicyBuilder {
	t.Helper()
	return &PolicyBuilder{
		t:      t,
		id:     id,
		orgID:  DefaultOrganizationID,
		name:   "Policy " + id,
		active: true,
	}
}

func (b *PolicyBuilder) WithOrganization(orgID string) *PolicyBuilder {
	b.orgID = orgID
	return b
}

func (b *PolicyBuilder) WithName(name string) *PolicyBuilder {
	b.name = name
	return b
}

func (b *PolicyBuilder) Inactive() *PolicyBuilder {
	b.active = false
	return b
}

// WithRules appends rules encoded as a list document
func (b *PolicyBuilder) WithRules(rules ...*RuleBuilder) *PolicyBuilder {
	for _, r := range rules {
		b.rules = append(b.rules, r.Raw())
	}
	return b
}

// WithRawRules sets the rule document verbatim, overriding WithRules
func (b *PolicyBuilder) WithRawRules(raw string) *PolicyBuilder {
	b.raw = []byte(raw)
	return b
}

// Build returns the policy
func (b *PolicyBuilder) Build() *policy.Policy {
	b.t.Helper()

	doc := policy.NewRuleDocumentFromRules(b.rules...)
	if b.raw != nil {
		doc = policy.NewRuleDocument(b.raw)
	}

	return &policy.Policy{
		ID:             b.id,
		OrganizationID: b.orgID,
		Name:           b.name,
		IsActive:       b.active,
		Rules:          doc,
	}
}
