// Package policystore provides the sources of active governance policies:
// a YAML file, Postgres, an in-memory set and a Redis read-through cache.
package policystore

import (
	"context"

	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
)

// Provider lists the active policies of an organization
type Provider interface {
	ListActivePolicies(ctx context.Context, organizationID string) ([]*policy.Policy, error)
}

// activeOnly returns the active, non-nil policies in order
func activeOnly(policies []*policy.Policy) []*policy.Policy {
	active := make([]*policy.Policy, 0, len(policies))
	for _, p := range policies {
		if p != nil && p.IsActive {
			active = append(active, p)
		}
	}
	return active
}
