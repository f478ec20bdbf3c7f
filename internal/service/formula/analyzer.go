package formula

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/davidleathers/change-risk-gate/internal/domain/formula"
)

// Complexity score weights
const (
	callWeight       = 3.0
	maxCallTerm      = 30.0
	depthAllowance   = 4
	depthWeight      = 8.0
	sizeWeight       = 5.0
	maxSizeTerm      = 20.0
	workflowTokenCap = 100
)

// Analyzer statically inspects formula and workflow sources. It is
// best-effort and text based: malformed input yields partial or zero-valued
// results, never an error.
type Analyzer struct {
	logger  *zap.Logger
	catalog *catalog
}

// NewAnalyzer creates an analyzer with the built-in catalogs
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		logger:  logger,
		catalog: newCatalog(),
	}
}

// Analyze inspects code written in the given dialect. Empty code is treated
// as absent and yields the empty result.
func (a *Analyzer) Analyze(code string, dialect formula.Dialect) *formula.AnalysisResult {
	if strings.TrimSpace(code) == "" {
		return formula.EmptyAnalysisResult()
	}

	var result *formula.AnalysisResult
	switch dialect {
	case formula.DialectExpression:
		result = a.analyzeExpression(code)
	case formula.DialectWorkflowXML:
		result = a.analyzeWorkflow(code)
	default:
		a.logger.Warn("unsupported formula dialect, skipping analysis",
			zap.String("dialect", string(dialect)),
			zap.Int("code_length", len(code)))
		return formula.EmptyAnalysisResult()
	}

	a.logger.Debug("formula analyzed",
		zap.String("dialect", string(dialect)),
		zap.Int("complexity_score", result.ComplexityScore),
		zap.Int("nesting_depth", result.NestingDepth),
		zap.Int("call_count", result.FunctionCallCount),
		zap.Strings("unsafe", result.UnsafeFunctions),
		zap.Int("risks", len(result.Risks)))

	return result
}

// complexityScore combines call volume, excess nesting and source size
func complexityScore(calls, depth, tokens int) int {
	callTerm := math.Min(maxCallTerm, callWeight*float64(calls))

	depthTerm := 0.0
	if depth > depthAllowance {
		depthTerm = depthWeight * float64(depth-depthAllowance)
	}

	sizeTerm := math.Min(maxSizeTerm, sizeWeight*math.Log(float64(tokens)+1))

	score := int(math.Round(callTerm + depthTerm + sizeTerm))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
