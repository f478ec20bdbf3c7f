package policystore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
)

// policyFile is the on-disk YAML layout
type policyFile struct {
	Policies []filePolicy `yaml:"policies"`
}

type filePolicy struct {
	ID             string `yaml:"id"`
	OrganizationID string `yaml:"organization_id"`
	Name           string `yaml:"name"`
	Active         *bool  `yaml:"active"`
	// Rules accepts every rule document encoding: a list, {rules: [...]} or a single rule
	Rules interface{} `yaml:"rules"`
}

// FileStore serves policies read once from a YAML file
type FileStore struct {
	*MemoryStore
	path string
}

// NewFileStore loads the YAML policy file at path
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening policy file: %w", err)
	}
	defer f.Close()

	policies, err := DecodePolicies(f)
	if err != nil {
		return nil, fmt.Errorf("reading policy file %s: %w", path, err)
	}

	logger.Info("policy file loaded",
		zap.String("path", path),
		zap.Int("policies", len(policies)))

	return &FileStore{MemoryStore: NewMemoryStore(policies...), path: path}, nil
}

// Path returns the file the store was loaded from
func (s *FileStore) Path() string {
	return s.path
}

// DecodePolicies parses a YAML policy document. Policies without an explicit
// active flag are active.
func DecodePolicies(r io.Reader) ([]*policy.Policy, error) {
	var doc policyFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}

	policies := make([]*policy.Policy, 0, len(doc.Policies))
	for i, fp := range doc.Policies {
		if fp.ID == "" {
			return nil, fmt.Errorf("policy %d: id is required", i)
		}
		if fp.OrganizationID == "" {
			return nil, fmt.Errorf("policy %s: organization_id is required", fp.ID)
		}

		raw, err := json.Marshal(fp.Rules)
		if err != nil {
			return nil, fmt.Errorf("policy %s: encoding rules: %w", fp.ID, err)
		}

		active := true
		if fp.Active != nil {
			active = *fp.Active
		}

		name := fp.Name
		if name == "" {
			name = fp.ID
		}

		policies = append(policies, &policy.Policy{
			ID:             fp.ID,
			OrganizationID: fp.OrganizationID,
			Name:           name,
			IsActive:       active,
			Rules:          policy.NewRuleDocument(raw),
		})
	}

	return policies, nil
}
