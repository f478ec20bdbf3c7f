package values

import (
	"encoding/json"
	"strings"

	"github.com/davidleathers/change-risk-gate/internal/domain/errors"
)

// Severity grades a finding, a risk factor or an assessment
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// NewSeverity parses a severity, case-insensitively
func NewSeverity(s string) (Severity, error) {
	normalized := Severity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := severityRank[normalized]; !ok {
		return "", errors.NewValidationError("INVALID_SEVERITY",
			"severity must be one of low, medium, high, critical").
			WithDetails(map[string]interface{}{"value": s})
	}
	return normalized, nil
}

// IsValid reports whether s is one of the four known severities
func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s is as severe as other or more
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

func (s Severity) String() string {
	return string(s)
}

// UnmarshalJSON accepts any casing; unknown values are kept verbatim so that
// callers can decide how to treat them.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if parsed, err := NewSeverity(raw); err == nil {
		*s = parsed
		return nil
	}
	*s = Severity(raw)
	return nil
}
