package riskscore

import (
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/change-risk-gate/internal/domain/change"
	"github.com/davidleathers/change-risk-gate/internal/domain/formula"
	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
	"github.com/davidleathers/change-risk-gate/internal/domain/risk"
	"github.com/davidleathers/change-risk-gate/internal/domain/values"
)

// Scorer fuses policy, formula and impact signals into a single assessment
type Scorer struct {
	logger *zap.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

// Option configures a Scorer
type Option func(*Scorer)

// WithClock sets the clock used to stamp assessments
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the generator used for assessment ids
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *Scorer) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewScorer creates a new risk scorer
func NewScorer(logger *zap.Logger, opts ...Option) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scorer{
		logger: logger,
		now:    time.Now,
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CalculateEnhancedRiskScore computes the composite assessment. A nil policy
// result counts as no violations and a nil formula analysis as no formulas.
func (s *Scorer) CalculateEnhancedRiskScore(
	c *change.Change,
	policyResult *policy.EvaluationResult,
	formulaAnalysis *formula.AnalysisResult,
	impact risk.ImpactAnalysis,
) *risk.EnhancedRiskAssessment {
	if policyResult == nil {
		policyResult = policy.EmptyEvaluationResult()
	}

	var summary change.DiffSummary
	changeID := ""
	if c != nil {
		summary = c.DiffSummary
		changeID = c.ID
	}

	breakdown := risk.ScoreBreakdown{
		PolicyScore:            policyResult.SeverityScore * PolicySeverityWeight,
		ComplexityPenalty:      complexityPenalty(summary),
		FormulaPenalty:         formulaPenalty(formulaAnalysis),
		AutoBlockBonus:         len(policyResult.AutoBlockRules) * AutoBlockWeight,
		BreakingChangeScore:    impact.BreakingChanges * BreakingChangeWeight,
		AffectedComponentScore: affectedComponentScore(impact.AffectedComponents),
		RiskFactorScore:        riskFactorScore(impact.RiskFactors),
	}
	breakdown.Total = breakdown.PolicyScore +
		breakdown.ComplexityPenalty +
		breakdown.FormulaPenalty +
		breakdown.AutoBlockBonus +
		breakdown.BreakingChangeScore +
		breakdown.AffectedComponentScore +
		breakdown.RiskFactorScore

	score := clampScore(breakdown.Total)
	level := risk.DetermineLevel(score)

	autoBlockRules := append([]string{}, policyResult.AutoBlockRules...)
	violations := append([]policy.RuleResult{}, policyResult.Violations...)

	assessment := &risk.EnhancedRiskAssessment{
		ID:               s.newID(),
		ChangeID:         changeID,
		Score:            score,
		Level:            level,
		RequiresApproval: policyResult.AutoBlockDetected || level.RequiresReview(),
		AutoBlockRules:   autoBlockRules,
		PolicyViolations: violations,
		FormulaAnalysis:  formulaAnalysis,
		ImpactAnalysis:   impact,
		ScoreBreakdown:   breakdown,
		Recommendations:  buildRecommendations(policyResult, formulaAnalysis, impact, level),
		Reviewers:        assignReviewers(policyResult.AutoBlockDetected, level),
		Timestamp:        s.now(),
	}

	s.logger.Debug("risk score calculated",
		zap.String("change_id", changeID),
		zap.Int("score", score),
		zap.String("level", string(level)),
		zap.Int("raw_total", breakdown.Total),
		zap.Bool("requires_approval", assessment.RequiresApproval))

	return assessment
}

func complexityPenalty(summary change.DiffSummary) int {
	added := summary.Added
	if added < 0 {
		added = 0
	}
	penalty := AddedLogWeight * math.Log1p(float64(added))
	switch {
	case summary.TotalChanges > LargeChangeThreshold:
		penalty += LargeChangePenalty
	case summary.TotalChanges > MediumChangeThreshold:
		penalty += MediumChangePenalty
	}
	return int(math.Round(penalty))
}

func formulaPenalty(fa *formula.AnalysisResult) int {
	if fa == nil || !fa.HasFormulas {
		return 0
	}
	raw := FormulaComplexityWeight*float64(fa.ComplexityScore)/100 +
		FormulaUnsafeWeight*float64(len(fa.UnsafeFunctions)) +
		FormulaConnectorWeight*float64(len(fa.ExternalConnectors)) +
		FormulaCriticalRiskWeight*float64(fa.CountRisks(values.SeverityCritical)) +
		FormulaHighRiskWeight*float64(fa.CountRisks(values.SeverityHigh))
	return int(math.Round(FormulaPenaltyScale * raw))
}

func affectedComponentScore(affected int) int {
	score := affected * AffectedComponentWeight
	if score > AffectedComponentCap {
		return AffectedComponentCap
	}
	return score
}

func riskFactorScore(factors []risk.RiskFactor) int {
	total := 0
	for _, f := range factors {
		total += riskFactorWeight(f.Severity)
	}
	return total
}

func clampScore(total int) int {
	if total < risk.MinScore {
		return risk.MinScore
	}
	if total > risk.MaxScore {
		return risk.MaxScore
	}
	return total
}
