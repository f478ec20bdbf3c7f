package assessment

import (
	"context"
	"time"

	"github.com/davidleathers/change-risk-gate/internal/domain/change"
	"github.com/davidleathers/change-risk-gate/internal/domain/formula"
	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
	"github.com/davidleathers/change-risk-gate/internal/domain/risk"
)

// PolicyEvaluator matches a change against an organization's active policies
type PolicyEvaluator interface {
	EvaluatePolicies(ctx context.Context, c *change.Change, organizationID string) *policy.EvaluationResult
}

// FormulaAnalyzer inspects embedded formula or workflow source
type FormulaAnalyzer interface {
	Analyze(code string, dialect formula.Dialect) *formula.AnalysisResult
}

// RiskScorer fuses the stage outputs into an assessment
type RiskScorer interface {
	CalculateEnhancedRiskScore(c *change.Change, policyResult *policy.EvaluationResult, formulaAnalysis *formula.AnalysisResult, impact risk.ImpactAnalysis) *risk.EnhancedRiskAssessment
}

// Recorder receives assessment metrics
type Recorder interface {
	AssessmentCompleted(level string, score int)
	AssessmentRejected(reason string)
	ObserveStage(stage string, d time.Duration)
}
