package risk

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/change-risk-gate/internal/domain/formula"
	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
	"github.com/davidleathers/change-risk-gate/internal/domain/values"
)

// Level is the bucketed outcome of a risk score
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Score bounds and level thresholds. Each threshold is inclusive upward.
const (
	MinScore = 0
	MaxScore = 100

	ThresholdMedium   = 30
	ThresholdHigh     = 60
	ThresholdCritical = 80
)

// DetermineLevel buckets a score
func DetermineLevel(score int) Level {
	switch {
	case score >= ThresholdCritical:
		return LevelCritical
	case score >= ThresholdHigh:
		return LevelHigh
	case score >= ThresholdMedium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// RequiresReview reports whether the level alone forces a human approval
func (l Level) RequiresReview() bool {
	return l == LevelHigh || l == LevelCritical
}

// Reviewer roles assigned to gate a change
const (
	ReviewerStandard     = "reviewer"
	ReviewerSenior       = "senior-reviewer"
	ReviewerSecurityTeam = "security-team"
)

// RiskFactor is a severity-tagged finding from impact analysis
type RiskFactor struct {
	Severity    values.Severity `json:"severity"`
	Description string          `json:"description,omitempty"`
}

// ImpactAnalysis is the structural impact computed by an external collaborator
type ImpactAnalysis struct {
	BreakingChanges    int          `json:"breakingChanges"`
	AffectedComponents int          `json:"affectedComponents"`
	RiskFactors        []RiskFactor `json:"riskFactors"`
}

// ScoreBreakdown lists every weighted term of the composite score
type ScoreBreakdown struct {
	PolicyScore            int `json:"policyScore"`
	ComplexityPenalty      int `json:"complexityPenalty"`
	FormulaPenalty         int `json:"formulaPenalty"`
	AutoBlockBonus         int `json:"autoBlockBonus"`
	BreakingChangeScore    int `json:"breakingChangeScore"`
	AffectedComponentScore int `json:"affectedComponentScore"`
	RiskFactorScore        int `json:"riskFactorScore"`
	Total                  int `json:"total"`
}

// EnhancedRiskAssessment is the composite decision input for the review workflow.
// It is recomputed per request and never persisted by this module.
type EnhancedRiskAssessment struct {
	ID               uuid.UUID               `json:"id"`
	ChangeID         string                  `json:"changeId"`
	Score            int                     `json:"score"`
	Level            Level                   `json:"level"`
	RequiresApproval bool                    `json:"requiresApproval"`
	AutoBlockRules   []string                `json:"autoBlockRules"`
	PolicyViolations []policy.RuleResult     `json:"policyViolations"`
	FormulaAnalysis  *formula.AnalysisResult `json:"formulaAnalysis,omitempty"`
	ImpactAnalysis   ImpactAnalysis          `json:"impactAnalysis"`
	ScoreBreakdown   ScoreBreakdown          `json:"scoreBreakdown"`
	Recommendations  []string                `json:"recommendations"`
	Reviewers        []string                `json:"reviewers"`
	Timestamp        time.Time               `json:"timestamp"`
}
