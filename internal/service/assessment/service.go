package assessment

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/davidleathers/change-risk-gate/internal/domain/errors"
	"github.com/davidleathers/change-risk-gate/internal/domain/formula"
	"github.com/davidleathers/change-risk-gate/internal/domain/risk"
	"github.com/davidleathers/change-risk-gate/internal/infrastructure/telemetry"
)

// Service runs the evaluate, analyze and score pipeline for changes
type Service struct {
	evaluator   PolicyEvaluator
	analyzer    FormulaAnalyzer
	scorer      RiskScorer
	logger      *zap.Logger
	recorder    Recorder
	tracer      trace.Tracer
	concurrency int

	validateOnce sync.Once
	validate     *validator.Validate
}

// Option configures a Service
type Option func(*Service)

// WithRecorder reports assessment metrics to r
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithTracer emits a span per assessment
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithBatchConcurrency bounds how many assessments AssessBatch runs at once
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a new assessment service
func NewService(evaluator PolicyEvaluator, analyzer FormulaAnalyzer, scorer RiskScorer, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		evaluator:   evaluator,
		analyzer:    analyzer,
		scorer:      scorer,
		logger:      logger,
		tracer:      noop.NewTracerProvider().Tracer("assessment"),
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess validates the request and produces its risk assessment. Only an
// invalid request is an error; stage failures degrade inside the stages.
func (s *Service) Assess(ctx context.Context, req Request) (*risk.EnhancedRiskAssessment, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.Assess")
	defer span.End()

	if err := s.validateRequest(req); err != nil {
		telemetry.RecordError(span, err)
		s.rejected("validation")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("change.id", req.Change.ID),
		attribute.String("organization.id", req.OrganizationID),
	)
	logger := telemetry.WithTrace(ctx, s.logger).With(
		zap.String("change_id", req.Change.ID),
		zap.String("organization_id", req.OrganizationID),
	)

	start := time.Now()
	policyResult := s.evaluator.EvaluatePolicies(ctx, req.Change, req.OrganizationID)
	s.observe(StagePolicy, start)

	var analysis *formula.AnalysisResult
	if req.Formula != nil {
		start = time.Now()
		analysis = s.analyzer.Analyze(req.Formula.Code, req.Formula.Dialect)
		s.observe(StageFormula, start)
	}

	start = time.Now()
	assessment := s.scorer.CalculateEnhancedRiskScore(req.Change, policyResult, analysis, req.Impact)
	s.observe(StageScore, start)

	span.SetAttributes(
		attribute.Int("risk.score", assessment.Score),
		attribute.String("risk.level", string(assessment.Level)),
		attribute.Bool("risk.requires_approval", assessment.RequiresApproval),
		attribute.Int("policy.violations", policyResult.TotalViolations),
	)
	if s.recorder != nil {
		s.recorder.AssessmentCompleted(string(assessment.Level), assessment.Score)
	}

	logger.Info("change assessed",
		zap.String("assessment_id", assessment.ID.String()),
		zap.Int("score", assessment.Score),
		zap.String("level", string(assessment.Level)),
		zap.Bool("requires_approval", assessment.RequiresApproval),
		zap.Int("violations", policyResult.TotalViolations),
		zap.Strings("auto_block_rules", assessment.AutoBlockRules))

	return assessment, nil
}

// AssessBatch assesses independent requests in parallel. Results follow the
// order of reqs; a failed request carries its error without affecting others.
// The returned error is non-nil only when ctx ends before every request ran.
func (s *Service) AssessBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	results := make([]BatchResult, len(reqs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range reqs {
		i := i
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				results[i] = BatchResult{Err: err}
				return err
			}
			assessment, err := s.Assess(gCtx, reqs[i])
			results[i] = BatchResult{Assessment: assessment, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, errors.NewInternalError("batch assessment interrupted").WithCause(err)
	}

	s.logger.Debug("batch assessed", zap.Int("requests", len(reqs)))
	return results, nil
}

func (s *Service) validateRequest(req Request) error {
	s.validateOnce.Do(func() {
		s.validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := s.validate.Struct(req); err != nil {
		return errors.NewValidationError("INVALID_ASSESSMENT_REQUEST", "change and organization id are required and the formula dialect must be known").
			WithCause(err)
	}
	return nil
}

func (s *Service) observe(stage string, start time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveStage(stage, time.Since(start))
	}
}

func (s *Service) rejected(reason string) {
	if s.recorder != nil {
		s.recorder.AssessmentRejected(reason)
	}
}
