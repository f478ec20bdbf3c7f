package policy

import (
	"encoding/json"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/davidleathers/change-risk-gate/internal/domain/errors"
)

// Category groups rules by the concern they guard
type Category string

const (
	CategorySecurity    Category = "security"
	CategoryOperational Category = "operational"
	CategoryComplexity  Category = "complexity"
	CategoryGovernance  Category = "governance"
	CategoryDependency  Category = "dependency"
)

// Severity bounds for a rule
const (
	MinRuleSeverity = 1
	MaxRuleSeverity = 10
)

// PolicyRule is one decoded, validated rule. Rules are immutable after decoding.
type PolicyRule struct {
	ID        string
	Title     string
	Category  Category
	Severity  int
	AutoBlock bool
	Invert    bool
	Matcher   Matcher
	Message   string
}

// ruleSpec is the stored shape of a rule
type ruleSpec struct {
	ID        string       `json:"id" validate:"required"`
	Title     string       `json:"title"`
	Category  Category     `json:"category" validate:"required,oneof=security operational complexity governance dependency"`
	Severity  int          `json:"severity" validate:"min=1,max=10"`
	AutoBlock bool         `json:"autoBlock"`
	Invert    bool         `json:"invert"`
	Matcher   *MatcherSpec `json:"matcher" validate:"required"`
	Message   string       `json:"message"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// DecodeRule decodes and validates one rule payload.
// Any failure is returned as a policy AppError carrying the rule id when known.
func DecodeRule(raw json.RawMessage) (*PolicyRule, error) {
	var spec ruleSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, errors.NewPolicyError("", "rule payload is not a valid rule object").WithCause(err)
	}

	if err := structValidator().Struct(spec); err != nil {
		return nil, errors.NewPolicyError(spec.ID, "rule failed validation").WithCause(err)
	}

	m, err := spec.Matcher.Resolve(spec.ID)
	if err != nil {
		return nil, err
	}

	title := spec.Title
	if title == "" {
		title = spec.ID
	}

	return &PolicyRule{
		ID:        spec.ID,
		Title:     title,
		Category:  spec.Category,
		Severity:  spec.Severity,
		AutoBlock: spec.AutoBlock,
		Invert:    spec.Invert,
		Matcher:   m,
		Message:   spec.Message,
	}, nil
}
