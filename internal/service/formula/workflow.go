package formula

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/davidleathers/change-risk-gate/internal/domain/formula"
	"github.com/davidleathers/change-risk-gate/internal/domain/values"
)

var (
	actionTypePattern = regexp.MustCompile(`(?i)<(?:action|activity)\b[^>]*?\btype\s*=\s*["']([^"']+)["']`)
	urlPattern        = regexp.MustCompile(`(?is)<url>\s*(.*?)\s*</url>`)
	openTagPattern    = regexp.MustCompile(`<[A-Za-z][^>]*>`)
)

func (a *Analyzer) analyzeWorkflow(code string) *formula.AnalysisResult {
	result := formula.EmptyAnalysisResult()
	result.HasFormulas = true
	result.Platform = formula.DialectWorkflowXML

	var actionTypes []string
	for _, m := range actionTypePattern.FindAllStringSubmatch(code, -1) {
		actionTypes = append(actionTypes, strings.TrimSpace(m[1]))
	}
	result.FunctionCallCount = len(actionTypes)

	present := make(map[string]bool, len(actionTypes))
	for _, t := range actionTypes {
		present[strings.ToLower(t)] = true
	}

	for _, name := range a.catalog.unsafeActions {
		if !present[strings.ToLower(name)] {
			continue
		}
		info := a.catalog.action(name)
		result.UnsafeFunctions = append(result.UnsafeFunctions, name)
		result.Risks = append(result.Risks, formula.Risk{
			Type:        formula.RiskUnsafeAction,
			Severity:    info.severity,
			Description: fmt.Sprintf("%s: %s", name, info.description),
			Subject:     name,
		})
	}

	if a.callsOut(present) {
		if url := extractURL(code); url != "" && !a.isInternalURL(url) {
			result.Risks = append(result.Risks, formula.Risk{
				Type:        formula.RiskExternalAPICall,
				Severity:    values.SeverityHigh,
				Description: fmt.Sprintf("External API call to %s", url),
				Subject:     url,
			})
		}
	}

	// Counts opening tags without ever decrementing on close, so this is a
	// structural size proxy rather than a true nesting depth.
	result.NestingDepth = countOpenTags(code)

	result.ComplexityScore = complexityScore(result.FunctionCallCount, result.NestingDepth, workflowTokenCap)
	return result
}

func (a *Analyzer) callsOut(present map[string]bool) bool {
	for _, name := range a.catalog.restActions {
		if present[strings.ToLower(name)] {
			return true
		}
	}
	return false
}

func (a *Analyzer) isInternalURL(url string) bool {
	lower := strings.ToLower(url)
	for _, marker := range a.catalog.internalURLMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func extractURL(code string) string {
	m := urlPattern.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func countOpenTags(code string) int {
	n := 0
	for _, tag := range openTagPattern.FindAllString(code, -1) {
		if !strings.HasSuffix(tag, "/>") {
			n++
		}
	}
	return n
}
