package riskscore

import (
	"fmt"
	"strings"

	"github.com/davidleathers/change-risk-gate/internal/domain/formula"
	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
	"github.com/davidleathers/change-risk-gate/internal/domain/risk"
	"github.com/davidleathers/change-risk-gate/internal/domain/values"
)

const (
	recApprovedConnectors = "Route external calls through an approved connector from the organization allow list"
	recPIIReview          = "Review PII handling and confirm the affected fields are encrypted and masked"
	recRefactorFormulas   = "Refactor complex formulas into smaller named components"
	recSecurityReview     = "Request a security review before deployment"
	recRollbackPlan       = "Prepare and verify a rollback plan"
	recMonitoring         = "Monitor the application actively after deployment"
)

// recommendationSet keeps first-occurrence order and drops exact duplicates
type recommendationSet struct {
	items []string
	seen  map[string]struct{}
}

func newRecommendationSet() *recommendationSet {
	return &recommendationSet{items: []string{}, seen: make(map[string]struct{})}
}

func (r *recommendationSet) add(rec string) {
	if rec == "" {
		return
	}
	if _, ok := r.seen[rec]; ok {
		return
	}
	r.seen[rec] = struct{}{}
	r.items = append(r.items, rec)
}

func buildRecommendations(
	policyResult *policy.EvaluationResult,
	fa *formula.AnalysisResult,
	impact risk.ImpactAnalysis,
	level risk.Level,
) []string {
	recs := newRecommendationSet()

	for _, v := range policyResult.Violations {
		title := strings.ToLower(v.Title)
		if strings.Contains(title, "external") {
			recs.add(recApprovedConnectors)
		}
		if strings.Contains(title, "pii") {
			recs.add(recPIIReview)
		}
		if v.AutoBlock {
			recs.add(fmt.Sprintf("Resolve blocking rule %q (%s) before this change can be approved", v.Title, v.RuleID))
		}
	}

	if fa != nil && fa.HasFormulas {
		if fa.ComplexityScore > RefactorComplexityThreshold {
			recs.add(recRefactorFormulas)
		}
		for _, r := range fa.Risks {
			if r.Severity.AtLeast(values.SeverityHigh) {
				recs.add(r.Description)
			}
		}
	}

	if impact.BreakingChanges > 0 {
		recs.add(fmt.Sprintf("Review %d breaking change(s) with the owners of dependent components", impact.BreakingChanges))
	}
	if impact.AffectedComponents > WideImpactThreshold {
		recs.add(fmt.Sprintf("Run regression tests across all %d affected components", impact.AffectedComponents))
	}

	if level == risk.LevelHigh || level == risk.LevelCritical {
		recs.add(recSecurityReview)
		recs.add(recRollbackPlan)
		recs.add(recMonitoring)
	}

	return recs.items
}
