package policy

import (
	"regexp"
	"strings"

	"github.com/davidleathers/change-risk-gate/internal/domain/change"
	"github.com/davidleathers/change-risk-gate/internal/domain/errors"
)

// MatcherType tags the closed set of matcher variants
type MatcherType string

const (
	MatcherJSONPath  MatcherType = "jsonpath"
	MatcherRegex     MatcherType = "regex"
	MatcherOperation MatcherType = "operation"
	MatcherCount     MatcherType = "count"
)

// RegexField selects what a regex matcher is tested against
type RegexField string

const (
	FieldPath          RegexField = "path"
	FieldValue         RegexField = "value"
	FieldComponentName RegexField = "componentName"
)

// DefaultCountField is the diff summary counter used when a count matcher names none
const DefaultCountField = "totalChanges"

// Matcher is implemented only by the variants declared in this package
type Matcher interface {
	Type() MatcherType
	matcher()
}

// JSONPathMatcher hits operations whose path matches Pattern, or whose
// serialized value matches ValuePattern.
type JSONPathMatcher struct {
	Pattern      string
	ValuePattern string

	pathRe  *regexp.Regexp
	valueRe *regexp.Regexp
}

// RegexMatcher tests a case-insensitive pattern against one field
type RegexMatcher struct {
	Pattern string
	Field   RegexField

	re *regexp.Regexp
}

// OperationMatcher hits operations with the given op code
type OperationMatcher struct {
	Op change.OpCode
}

// CountMatcher compares a diff summary counter with a threshold
type CountMatcher struct {
	Field     string
	Threshold float64
}

func (*JSONPathMatcher) Type() MatcherType  { return MatcherJSONPath }
func (*RegexMatcher) Type() MatcherType     { return MatcherRegex }
func (*OperationMatcher) Type() MatcherType { return MatcherOperation }
func (*CountMatcher) Type() MatcherType     { return MatcherCount }

func (*JSONPathMatcher) matcher()  {}
func (*RegexMatcher) matcher()     {}
func (*OperationMatcher) matcher() {}
func (*CountMatcher) matcher()     {}

// MatchPath reports whether path satisfies the pattern. Patterns containing
// '*' are wildcards; anything else is a substring test.
func (m *JSONPathMatcher) MatchPath(path string) bool {
	if m.Pattern == "" {
		return false
	}
	if m.pathRe != nil {
		return m.pathRe.MatchString(path)
	}
	return strings.Contains(path, m.Pattern)
}

// MatchValue reports whether the serialized value satisfies ValuePattern
func (m *JSONPathMatcher) MatchValue(serialized string) bool {
	if m.valueRe == nil {
		return false
	}
	return m.valueRe.MatchString(serialized)
}

// HasValuePattern reports whether value matching is enabled
func (m *JSONPathMatcher) HasValuePattern() bool {
	return m.valueRe != nil
}

// Match runs the case-insensitive pattern
func (m *RegexMatcher) Match(s string) bool {
	return m.re != nil && m.re.MatchString(s)
}

// MatcherSpec is the stored shape of a matcher before it is resolved to a variant
type MatcherSpec struct {
	Type         MatcherType `json:"type" yaml:"type" validate:"required,oneof=jsonpath regex operation count"`
	Pattern      string      `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	ValuePattern string      `json:"valuePattern,omitempty" yaml:"valuePattern,omitempty"`
	Field        string      `json:"field,omitempty" yaml:"field,omitempty"`
	Op           string      `json:"op,omitempty" yaml:"op,omitempty"`
	Threshold    *float64    `json:"threshold,omitempty" yaml:"threshold,omitempty" validate:"omitempty,gte=0"`
}

// Resolve turns the stored spec into its variant, compiling any patterns
func (s MatcherSpec) Resolve(ruleID string) (Matcher, error) {
	switch s.Type {
	case MatcherJSONPath:
		if s.Pattern == "" && s.ValuePattern == "" {
			return nil, errors.NewPolicyError(ruleID, "jsonpath matcher requires pattern or valuePattern")
		}
		m := &JSONPathMatcher{Pattern: s.Pattern, ValuePattern: s.ValuePattern}
		if strings.Contains(s.Pattern, "*") {
			re, err := regexp.Compile(wildcardToRegex(s.Pattern))
			if err != nil {
				return nil, errors.NewPolicyError(ruleID, "invalid jsonpath pattern").WithCause(err)
			}
			m.pathRe = re
		}
		if s.ValuePattern != "" {
			re, err := regexp.Compile("(?i)" + s.ValuePattern)
			if err != nil {
				return nil, errors.NewPolicyError(ruleID, "invalid valuePattern").WithCause(err)
			}
			m.valueRe = re
		}
		return m, nil

	case MatcherRegex:
		if s.Pattern == "" {
			return nil, errors.NewPolicyError(ruleID, "regex matcher requires pattern")
		}
		field := RegexField(s.Field)
		switch field {
		case "":
			field = FieldPath
		case FieldPath, FieldValue, FieldComponentName:
		default:
			return nil, errors.NewPolicyError(ruleID, "regex matcher field must be path, value or componentName")
		}
		re, err := regexp.Compile("(?i)" + s.Pattern)
		if err != nil {
			return nil, errors.NewPolicyError(ruleID, "invalid regex pattern").WithCause(err)
		}
		return &RegexMatcher{Pattern: s.Pattern, Field: field, re: re}, nil

	case MatcherOperation:
		op := change.OpCode(s.Op)
		if !op.IsValid() {
			return nil, errors.NewPolicyError(ruleID, "operation matcher op must be add, remove or replace")
		}
		return &OperationMatcher{Op: op}, nil

	case MatcherCount:
		if s.Threshold == nil {
			return nil, errors.NewPolicyError(ruleID, "count matcher requires threshold")
		}
		field := s.Field
		if field == "" {
			field = DefaultCountField
		}
		return &CountMatcher{Field: field, Threshold: *s.Threshold}, nil
	}

	return nil, errors.NewPolicyError(ruleID, "unknown matcher type "+string(s.Type))
}

// wildcardToRegex escapes the pattern and turns each '*' into '.*'
func wildcardToRegex(pattern string) string {
	return strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*")
}
