package policy

// MaxEvidence caps the evidence items kept on a violation
const MaxEvidence = 5

// Evidence is one piece of supporting data for a violation
type Evidence map[string]interface{}

// RuleResult is one violation instance
type RuleResult struct {
	PolicyID   string     `json:"policyId"`
	PolicyName string     `json:"policyName"`
	RuleID     string     `json:"ruleId"`
	Title      string     `json:"title"`
	Category   Category   `json:"category"`
	Severity   int        `json:"severity"`
	AutoBlock  bool       `json:"autoBlock"`
	Evidence   []Evidence `json:"evidence"`
	Message    string     `json:"message"`
}

// EvaluationResult aggregates the violations found for a change
type EvaluationResult struct {
	Violations        []RuleResult `json:"violations"`
	AutoBlockDetected bool         `json:"autoBlockDetected"`
	AutoBlockRules    []string     `json:"autoBlockRules"`
	TotalViolations   int          `json:"totalViolations"`
	SeverityScore     int          `json:"severityScore"`
}

// EmptyEvaluationResult is the canonical result when nothing was evaluated
func EmptyEvaluationResult() *EvaluationResult {
	return &EvaluationResult{
		Violations:     []RuleResult{},
		AutoBlockRules: []string{},
	}
}

// NewEvaluationResult aggregates violations; the counters are always
// derived from the violation list.
func NewEvaluationResult(violations []RuleResult) *EvaluationResult {
	result := EmptyEvaluationResult()
	for _, v := range violations {
		result.Violations = append(result.Violations, v)
		result.SeverityScore += v.Severity
		if v.AutoBlock {
			result.AutoBlockRules = append(result.AutoBlockRules, v.RuleID)
		}
	}
	result.TotalViolations = len(result.Violations)
	result.AutoBlockDetected = len(result.AutoBlockRules) > 0
	return result
}
