package riskscore

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/change-risk-gate/internal/domain/change"
	"github.com/davidleathers/change-risk-gate/internal/domain/formula"
	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
	"github.com/davidleathers/change-risk-gate/internal/domain/risk"
	"github.com/davidleathers/change-risk-gate/internal/domain/values"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupScorer(t *testing.T) *Scorer {
	return NewScorer(zaptest.NewLogger(t), WithClock(func() time.Time { return fixedTime }))
}

func violation(ruleID, title string, severity int, autoBlock bool) policy.RuleResult {
	return policy.RuleResult{
		PolicyID:  "p-1",
		RuleID:    ruleID,
		Title:     title,
		Category:  policy.CategorySecurity,
		Severity:  severity,
		AutoBlock: autoBlock,
		Evidence:  []policy.Evidence{},
	}
}

func severityResult(severity int) *policy.EvaluationResult {
	if severity == 0 {
		return policy.EmptyEvaluationResult()
	}
	return policy.NewEvaluationResult([]policy.RuleResult{violation("r", "Rule", severity, false)})
}

func sampleFormula() *formula.AnalysisResult {
	return &formula.AnalysisResult{
		HasFormulas:        true,
		Platform:           formula.DialectExpression,
		ComplexityScore:    16,
		UnsafeFunctions:    []string{"HTTP", "Collect"},
		ExternalConnectors: []string{},
		FunctionCallCount:  2,
		NestingDepth:       1,
		Risks: []formula.Risk{
			{Type: formula.RiskUnsafeFunction, Severity: values.SeverityHigh, Description: "Direct HTTP request to an external endpoint", Subject: "HTTP"},
			{Type: formula.RiskUnsafeFunction, Severity: values.SeverityLow, Description: "Writes records to a local collection", Subject: "Collect"},
		},
	}
}

func TestCalculateEnhancedRiskScore_NoSignals(t *testing.T) {
	scorer := setupScorer(t)

	a := scorer.CalculateEnhancedRiskScore(&change.Change{ID: "chg-1"}, nil, nil, risk.ImpactAnalysis{})

	assert.Equal(t, "chg-1", a.ChangeID)
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, risk.LevelLow, a.Level)
	assert.False(t, a.RequiresApproval)
	assert.Equal(t, risk.ScoreBreakdown{}, a.ScoreBreakdown)
	assert.Equal(t, []string{}, a.Recommendations)
	assert.Equal(t, []string{}, a.Reviewers)
	assert.Equal(t, []string{}, a.AutoBlockRules)
	assert.Equal(t, []policy.RuleResult{}, a.PolicyViolations)
	assert.Nil(t, a.FormulaAnalysis)
	assert.Equal(t, fixedTime, a.Timestamp)
}

func TestCalculateEnhancedRiskScore_Breakdown(t *testing.T) {
	scorer := setupScorer(t)

	c := &change.Change{ID: "chg-2", DiffSummary: change.DiffSummary{Added: 3, Modified: 22, TotalChanges: 25}}
	policies := policy.NewEvaluationResult([]policy.RuleResult{
		violation("ext", "External endpoint added", 4, false),
	})
	impact := risk.ImpactAnalysis{
		AffectedComponents: 4,
		RiskFactors:        []risk.RiskFactor{{Severity: values.SeverityLow, Description: "label change"}},
	}

	a := scorer.CalculateEnhancedRiskScore(c, policies, sampleFormula(), impact)

	assert.Equal(t, risk.ScoreBreakdown{
		PolicyScore:            20,
		ComplexityPenalty:      11, // 4·ln(4) + 5
		FormulaPenalty:         28, // 2·(3.2 + 6 + 5)
		AutoBlockBonus:         0,
		BreakingChangeScore:    0,
		AffectedComponentScore: 8,
		RiskFactorScore:        2,
		Total:                  69,
	}, a.ScoreBreakdown)
	assert.Equal(t, 69, a.Score)
	assert.Equal(t, risk.LevelHigh, a.Level)
	assert.True(t, a.RequiresApproval)
	assert.Equal(t, []string{risk.ReviewerSenior}, a.Reviewers)
	assert.Equal(t, []string{
		recApprovedConnectors,
		"Direct HTTP request to an external endpoint",
		recSecurityReview,
		recRollbackPlan,
		recMonitoring,
	}, a.Recommendations)
}

func TestCalculateEnhancedRiskScore_ClampsAtMax(t *testing.T) {
	scorer := setupScorer(t)

	impact := risk.ImpactAnalysis{BreakingChanges: 20}
	a := scorer.CalculateEnhancedRiskScore(&change.Change{ID: "chg"}, severityResult(30), nil, impact)

	assert.Equal(t, 150+160, a.ScoreBreakdown.Total)
	assert.Equal(t, risk.MaxScore, a.Score)
	assert.Equal(t, risk.LevelCritical, a.Level)
}

func TestCalculateEnhancedRiskScore_FormulaIgnoredWithoutFormulas(t *testing.T) {
	scorer := setupScorer(t)

	fa := sampleFormula()
	fa.HasFormulas = false
	a := scorer.CalculateEnhancedRiskScore(&change.Change{}, nil, fa, risk.ImpactAnalysis{})

	assert.Equal(t, 0, a.ScoreBreakdown.FormulaPenalty)
	assert.Empty(t, a.Recommendations)
}

func TestComplexityPenalty(t *testing.T) {
	tests := []struct {
		name    string
		summary change.DiffSummary
		want    int
	}{
		{name: "empty", summary: change.DiffSummary{}, want: 0},
		{name: "negative added", summary: change.DiffSummary{Added: -4}, want: 0},
		{name: "one add", summary: change.DiffSummary{Added: 1, TotalChanges: 1}, want: 3},
		{name: "at medium threshold", summary: change.DiffSummary{TotalChanges: 20}, want: 0},
		{name: "above medium threshold", summary: change.DiffSummary{TotalChanges: 21}, want: 5},
		{name: "at large threshold", summary: change.DiffSummary{TotalChanges: 50}, want: 5},
		{name: "above large threshold", summary: change.DiffSummary{TotalChanges: 51}, want: 10},
		{name: "many adds", summary: change.DiffSummary{Added: 60, TotalChanges: 60}, want: 26},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, complexityPenalty(tt.summary))
		})
	}
}

func TestAffectedComponentScore_Capped(t *testing.T) {
	assert.Equal(t, 0, affectedComponentScore(0))
	assert.Equal(t, 18, affectedComponentScore(9))
	assert.Equal(t, 20, affectedComponentScore(10))
	assert.Equal(t, 20, affectedComponentScore(50))
}

func TestRiskFactorScore(t *testing.T) {
	factors := []risk.RiskFactor{
		{Severity: values.SeverityLow},
		{Severity: values.SeverityMedium},
		{Severity: values.SeverityHigh},
		{Severity: values.SeverityCritical},
		{Severity: values.Severity("unknown")},
	}
	assert.Equal(t, 32, riskFactorScore(factors))
}

func TestCalculateEnhancedRiskScore_Monotonic(t *testing.T) {
	scorer := setupScorer(t)
	c := &change.Change{DiffSummary: change.DiffSummary{Added: 2, TotalChanges: 5}}

	t.Run("severity score", func(t *testing.T) {
		prev := -1
		for sev := 0; sev <= 30; sev++ {
			a := scorer.CalculateEnhancedRiskScore(c, severityResult(sev), nil, risk.ImpactAnalysis{})
			assert.GreaterOrEqual(t, a.Score, prev)
			assert.True(t, a.Score >= risk.MinScore && a.Score <= risk.MaxScore)
			prev = a.Score
		}
	})

	t.Run("added", func(t *testing.T) {
		prev := -1
		for added := 0; added <= 200; added += 7 {
			changed := &change.Change{DiffSummary: change.DiffSummary{Added: added, TotalChanges: added}}
			a := scorer.CalculateEnhancedRiskScore(changed, nil, nil, risk.ImpactAnalysis{})
			assert.GreaterOrEqual(t, a.Score, prev)
			prev = a.Score
		}
	})

	t.Run("impact", func(t *testing.T) {
		prev := -1
		for n := 0; n <= 20; n++ {
			impact := risk.ImpactAnalysis{BreakingChanges: n, AffectedComponents: n}
			a := scorer.CalculateEnhancedRiskScore(c, nil, nil, impact)
			assert.GreaterOrEqual(t, a.Score, prev)
			prev = a.Score
		}
	})

	t.Run("formula complexity", func(t *testing.T) {
		prev := -1
		for cs := 0; cs <= 100; cs += 5 {
			fa := sampleFormula()
			fa.ComplexityScore = cs
			a := scorer.CalculateEnhancedRiskScore(c, nil, fa, risk.ImpactAnalysis{})
			assert.GreaterOrEqual(t, a.Score, prev)
			prev = a.Score
		}
	})
}

func TestCalculateEnhancedRiskScore_Reviewers(t *testing.T) {
	tests := []struct {
		name     string
		policies *policy.EvaluationResult
		level    risk.Level
		want     []string
	}{
		{
			name:     "critical without auto block",
			policies: severityResult(16),
			level:    risk.LevelCritical,
			want:     []string{risk.ReviewerSenior, risk.ReviewerSecurityTeam},
		},
		{
			name:     "auto block at low score",
			policies: policy.NewEvaluationResult([]policy.RuleResult{violation("block", "Blocked", 1, true)}),
			level:    risk.LevelLow,
			want:     []string{risk.ReviewerSenior, risk.ReviewerSecurityTeam},
		},
		{
			name:     "high",
			policies: severityResult(12),
			level:    risk.LevelHigh,
			want:     []string{risk.ReviewerSenior},
		},
		{
			name:     "medium",
			policies: severityResult(6),
			level:    risk.LevelMedium,
			want:     []string{risk.ReviewerStandard},
		},
		{
			name:     "low",
			policies: severityResult(1),
			level:    risk.LevelLow,
			want:     []string{},
		},
	}

	scorer := setupScorer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := scorer.CalculateEnhancedRiskScore(&change.Change{}, tt.policies, nil, risk.ImpactAnalysis{})

			assert.Equal(t, tt.level, a.Level)
			assert.Equal(t, tt.want, a.Reviewers)
			assert.Equal(t, tt.policies.AutoBlockDetected || tt.level.RequiresReview(), a.RequiresApproval)
		})
	}
}

func TestCalculateEnhancedRiskScore_AutoBlock(t *testing.T) {
	scorer := setupScorer(t)
	policies := policy.NewEvaluationResult([]policy.RuleResult{
		violation("no-secrets", "Hardcoded secret", 2, true),
	})

	a := scorer.CalculateEnhancedRiskScore(&change.Change{}, policies, nil, risk.ImpactAnalysis{})

	assert.Equal(t, 10, a.ScoreBreakdown.AutoBlockBonus)
	assert.Equal(t, 20, a.Score)
	assert.Equal(t, risk.LevelLow, a.Level)
	assert.True(t, a.RequiresApproval)
	assert.Equal(t, []string{"no-secrets"}, a.AutoBlockRules)
	assert.Equal(t, []string{
		`Resolve blocking rule "Hardcoded secret" (no-secrets) before this change can be approved`,
	}, a.Recommendations)
}

func TestCalculateEnhancedRiskScore_RecommendationsAreUnique(t *testing.T) {
	scorer := setupScorer(t)

	policies := policy.NewEvaluationResult([]policy.RuleResult{
		violation("ext-1", "External API", 3, true),
		violation("ext-1", "External API", 3, true),
		violation("pii-1", "PII exposure via external share", 5, false),
		violation("pii-2", "PII in logs", 5, false),
	})
	fa := sampleFormula()
	fa.ComplexityScore = 75
	fa.Risks = append(fa.Risks, fa.Risks[0], formula.Risk{
		Type:        formula.RiskExternalAPICall,
		Severity:    values.SeverityHigh,
		Description: "Direct HTTP request to an external endpoint",
	})
	impact := risk.ImpactAnalysis{BreakingChanges: 2, AffectedComponents: 9}

	a := scorer.CalculateEnhancedRiskScore(&change.Change{}, policies, fa, impact)

	seen := make(map[string]bool)
	for _, rec := range a.Recommendations {
		assert.False(t, seen[rec], "duplicate recommendation %q", rec)
		seen[rec] = true
	}
	require.Equal(t, []string{
		recApprovedConnectors,
		`Resolve blocking rule "External API" (ext-1) before this change can be approved`,
		recPIIReview,
		recRefactorFormulas,
		"Direct HTTP request to an external endpoint",
		"Review 2 breaking change(s) with the owners of dependent components",
		"Run regression tests across all 9 affected components",
		recSecurityReview,
		recRollbackPlan,
		recMonitoring,
	}, a.Recommendations)
}

func TestCalculateEnhancedRiskScore_DoesNotAliasInputs(t *testing.T) {
	scorer := setupScorer(t)
	policies := policy.NewEvaluationResult([]policy.RuleResult{violation("b", "Blocked", 1, true)})

	a := scorer.CalculateEnhancedRiskScore(&change.Change{}, policies, nil, risk.ImpactAnalysis{})
	a.AutoBlockRules[0] = "mutated"

	assert.Equal(t, []string{"b"}, policies.AutoBlockRules)
}

func TestNewScorer_Options(t *testing.T) {
	id := uuid.MustParse("6f1c1b0e-4a55-4d0c-9a51-0c6f7e2d4b11")
	scorer := NewScorer(nil,
		WithClock(func() time.Time { return fixedTime }),
		WithIDGenerator(func() uuid.UUID { return id }),
		WithClock(nil),
	)

	a := scorer.CalculateEnhancedRiskScore(nil, nil, nil, risk.ImpactAnalysis{})

	assert.Equal(t, id, a.ID)
	assert.Equal(t, fixedTime, a.Timestamp)
	assert.Equal(t, "", a.ChangeID)
}

func TestRecommendations_FormulaRisksAtHighOrAbove(t *testing.T) {
	scorer := setupScorer(t)

	fa := &formula.AnalysisResult{
		HasFormulas: true,
		Risks: []formula.Risk{
			{Type: formula.RiskUnsafeFunction, Severity: values.SeverityLow, Description: "low risk"},
			{Type: formula.RiskUnsafeFunction, Severity: values.SeverityMedium, Description: "medium risk"},
			{Type: formula.RiskUnsafeFunction, Severity: values.SeverityHigh, Description: "high risk"},
			{Type: formula.RiskUnsafeFunction, Severity: values.SeverityCritical, Description: "critical risk"},
		},
	}

	a := scorer.CalculateEnhancedRiskScore(&change.Change{}, nil, fa, risk.ImpactAnalysis{})

	assert.Contains(t, a.Recommendations, "high risk")
	assert.Contains(t, a.Recommendations, "critical risk")
	assert.NotContains(t, a.Recommendations, "medium risk")
	assert.NotContains(t, a.Recommendations, "low risk")
}
