package formula

import (
	"strings"

	"github.com/davidleathers/change-risk-gate/internal/domain/values"
)

// Dialect identifies the embedded-logic language being analyzed
type Dialect string

const (
	// DialectExpression is the spreadsheet-style expression language used in canvas apps
	DialectExpression Dialect = "expression"
	// DialectWorkflowXML is the XML workflow/microflow definition language
	DialectWorkflowXML Dialect = "workflow_xml"
)

// ParseDialect maps a user-facing name onto a dialect
func ParseDialect(s string) (Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expression", "expressionlang", "expression_lang":
		return DialectExpression, true
	case "workflow_xml", "workflowxml", "workflow-xml", "xml":
		return DialectWorkflowXML, true
	}
	return "", false
}

// RiskType classifies a formula finding
type RiskType string

const (
	RiskUnsafeFunction      RiskType = "unsafe_function"
	RiskUnsafeAction        RiskType = "unsafe_action"
	RiskExternalConnector   RiskType = "external_connector"
	RiskStringConcatenation RiskType = "string_concatenation"
	RiskExternalAPICall     RiskType = "external_api_call"
)

// Risk is one finding of the analyzer
type Risk struct {
	Type        RiskType        `json:"type"`
	Severity    values.Severity `json:"severity"`
	Description string          `json:"description"`
	Subject     string          `json:"subject,omitempty"`
}

// AnalysisResult is the outcome of analyzing one formula or workflow source
type AnalysisResult struct {
	HasFormulas        bool     `json:"hasFormulas"`
	Platform           Dialect  `json:"platform,omitempty"`
	ComplexityScore    int      `json:"complexityScore"`
	UnsafeFunctions    []string `json:"unsafeFunctions"`
	NestingDepth       int      `json:"nestingDepth"`
	FunctionCallCount  int      `json:"functionCallCount"`
	ExternalConnectors []string `json:"externalConnectors"`
	Risks              []Risk   `json:"risks"`
}

// EmptyAnalysisResult is returned when there is nothing to analyze
func EmptyAnalysisResult() *AnalysisResult {
	return &AnalysisResult{
		UnsafeFunctions:    []string{},
		ExternalConnectors: []string{},
		Risks:              []Risk{},
	}
}

// CountRisks returns how many risks carry the given severity
func (r *AnalysisResult) CountRisks(severity values.Severity) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, risk := range r.Risks {
		if risk.Severity == severity {
			n++
		}
	}
	return n
}
