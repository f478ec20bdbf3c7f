package assessment

import (
	"github.com/davidleathers/change-risk-gate/internal/domain/change"
	"github.com/davidleathers/change-risk-gate/internal/domain/formula"
	"github.com/davidleathers/change-risk-gate/internal/domain/risk"
)

// FormulaSource is embedded logic shipped with a change
type FormulaSource struct {
	Code    string          `json:"code"`
	Dialect formula.Dialect `json:"dialect" validate:"required,oneof=expression workflow_xml"`
}

// Request asks for the risk assessment of one change
type Request struct {
	Change         *change.Change      `json:"change" validate:"required"`
	OrganizationID string              `json:"organizationId" validate:"required"`
	Formula        *FormulaSource      `json:"formula,omitempty"`
	Impact         risk.ImpactAnalysis `json:"impactAnalysis"`
}

// BatchResult pairs an assessment with the error that prevented it
type BatchResult struct {
	Assessment *risk.EnhancedRiskAssessment
	Err        error
}

// Stage names reported to the metrics recorder
const (
	StagePolicy  = "policy"
	StageFormula = "formula"
	StageScore   = "score"
)

// DefaultBatchConcurrency bounds AssessBatch when no limit is configured
const DefaultBatchConcurrency = 8
