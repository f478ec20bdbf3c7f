package riskscore

import "github.com/davidleathers/change-risk-gate/internal/domain/values"

// Policy and formula weights
const (
	// PolicySeverityWeight multiplies the summed severity of all violations
	PolicySeverityWeight = 5

	// AutoBlockWeight is added for every auto-block rule that fired
	AutoBlockWeight = 10

	// FormulaPenaltyScale scales the raw formula penalty
	FormulaPenaltyScale = 2.0

	// FormulaComplexityWeight is applied to the analyzer score as a fraction of 100
	FormulaComplexityWeight = 20.0

	// FormulaUnsafeWeight is applied per unsafe function or action
	FormulaUnsafeWeight = 3.0

	// FormulaConnectorWeight is applied per external connector
	FormulaConnectorWeight = 2.0

	// FormulaCriticalRiskWeight is applied per critical formula risk
	FormulaCriticalRiskWeight = 8.0

	// FormulaHighRiskWeight is applied per high formula risk
	FormulaHighRiskWeight = 5.0
)

// Diff size weights
const (
	// AddedLogWeight scales ln(1+added)
	AddedLogWeight = 4.0

	// LargeChangeThreshold and LargeChangePenalty apply when totalChanges exceeds it
	LargeChangeThreshold = 50
	LargeChangePenalty   = 10

	// MediumChangeThreshold and MediumChangePenalty apply when totalChanges exceeds it
	MediumChangeThreshold = 20
	MediumChangePenalty   = 5
)

// Impact weights
const (
	// BreakingChangeWeight is applied per breaking change
	BreakingChangeWeight = 8

	// AffectedComponentWeight is applied per affected component
	AffectedComponentWeight = 2

	// AffectedComponentCap bounds the affected component term
	AffectedComponentCap = 20
)

// Recommendation triggers
const (
	// RefactorComplexityThreshold is the formula score above which refactoring is suggested
	RefactorComplexityThreshold = 60

	// WideImpactThreshold is the affected component count above which broad testing is suggested
	WideImpactThreshold = 5
)

// riskFactorWeights maps impact risk factor severities to score points.
// Unknown severities weigh nothing.
var riskFactorWeights = map[values.Severity]int{
	values.SeverityLow:      2,
	values.SeverityMedium:   5,
	values.SeverityHigh:     10,
	values.SeverityCritical: 15,
}

func riskFactorWeight(s values.Severity) int {
	return riskFactorWeights[s]
}
