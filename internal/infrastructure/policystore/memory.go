package policystore

import (
	"context"
	"sync"

	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
)

// MemoryStore keeps policies in process, keyed by organization
type MemoryStore struct {
	mu    sync.RWMutex
	byOrg map[string][]*policy.Policy
}

// NewMemoryStore creates a store holding the given policies
func NewMemoryStore(policies ...*policy.Policy) *MemoryStore {
	s := &MemoryStore{byOrg: make(map[string][]*policy.Policy)}
	for _, p := range policies {
		s.Put(p)
	}
	return s
}

// Put adds a policy or replaces the one with the same id in its organization
func (s *MemoryStore) Put(p *policy.Policy) {
	if p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.byOrg[p.OrganizationID]
	for i, cur := range existing {
		if cur.ID == p.ID {
			existing[i] = p
			return
		}
	}
	s.byOrg[p.OrganizationID] = append(existing, p)
}

// ListActivePolicies returns the active policies in insertion order
func (s *MemoryStore) ListActivePolicies(_ context.Context, organizationID string) ([]*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeOnly(s.byOrg[organizationID]), nil
}
