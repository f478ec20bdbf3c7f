package formula

import (
	"fmt"
	"regexp"

	"github.com/davidleathers/change-risk-gate/internal/domain/formula"
	"github.com/davidleathers/change-risk-gate/internal/domain/values"
)

var (
	identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	callSitePattern   = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*\(`)

	// quoted literal joined to an identifier, or an explicit Concatenate call
	concatenationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"[^"]*"\s*&\s*[A-Za-z_]`),
		regexp.MustCompile(`"[^"]*"\s*\+\s*[A-Za-z_]`),
		regexp.MustCompile(`\bConcatenate\s*\(`),
	}
)

func (a *Analyzer) analyzeExpression(code string) *formula.AnalysisResult {
	result := formula.EmptyAnalysisResult()
	result.HasFormulas = true
	result.Platform = formula.DialectExpression

	tokens := len(identifierPattern.FindAllStringIndex(code, -1))
	result.FunctionCallCount = len(callSitePattern.FindAllStringIndex(code, -1))
	result.NestingDepth = parenthesisDepth(code)

	for _, name := range a.catalog.unsafeFunctions {
		if !a.catalog.functionCalls[name].MatchString(code) {
			continue
		}
		info := a.catalog.function(name)
		result.UnsafeFunctions = append(result.UnsafeFunctions, name)
		result.Risks = append(result.Risks, formula.Risk{
			Type:        formula.RiskUnsafeFunction,
			Severity:    info.severity,
			Description: fmt.Sprintf("%s: %s", name, info.description),
			Subject:     name,
		})
	}

	for _, name := range a.catalog.connectors {
		if !a.catalog.connectorRefs[name].MatchString(code) {
			continue
		}
		result.ExternalConnectors = append(result.ExternalConnectors, name)
		result.Risks = append(result.Risks, formula.Risk{
			Type:        formula.RiskExternalConnector,
			Severity:    values.SeverityMedium,
			Description: fmt.Sprintf("Depends on external connector %s", name),
			Subject:     name,
		})
	}

	for _, p := range concatenationPatterns {
		if p.MatchString(code) {
			result.Risks = append(result.Risks, formula.Risk{
				Type:        formula.RiskStringConcatenation,
				Severity:    values.SeverityHigh,
				Description: "String concatenation with dynamic values may allow injection",
			})
			break
		}
	}

	result.ComplexityScore = complexityScore(result.FunctionCallCount, result.NestingDepth, tokens)
	return result
}

// parenthesisDepth returns the highest value reached by a running counter
// incremented on '(' and decremented on ')'
func parenthesisDepth(code string) int {
	depth, maxDepth := 0, 0
	for _, r := range code {
		switch r {
		case '(':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')':
			depth--
		}
	}
	return maxDepth
}
