package policy

import (
	"context"

	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
)

// ActivePolicyProvider returns the active policies of an organization.
// Implementations live in infrastructure/policystore.
type ActivePolicyProvider interface {
	ListActivePolicies(ctx context.Context, organizationID string) ([]*policy.Policy, error)
}

// Observer receives evaluation anomalies that are otherwise only logged
type Observer interface {
	PolicyFetchFailed(organizationID string)
	RuleFailed(policyID string)
	ViolationRecorded(category string, autoBlock bool)
}
