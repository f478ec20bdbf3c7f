package riskscore

import "github.com/davidleathers/change-risk-gate/internal/domain/risk"

// assignReviewers picks the mandatory reviewer roles. Low risk changes are
// auto-approvable and get none.
func assignReviewers(autoBlock bool, level risk.Level) []string {
	switch {
	case autoBlock || level == risk.LevelCritical:
		return []string{risk.ReviewerSenior, risk.ReviewerSecurityTeam}
	case level == risk.LevelHigh:
		return []string{risk.ReviewerSenior}
	case level == risk.LevelMedium:
		return []string{risk.ReviewerStandard}
	default:
		return []string{}
	}
}
