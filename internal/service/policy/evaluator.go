package policy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/change-risk-gate/internal/domain/change"
	"github.com/davidleathers/change-risk-gate/internal/domain/errors"
	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
)

// Evaluator matches a change's diff against the active policies of an organization.
// It holds no per-evaluation state and is safe for concurrent use.
type Evaluator struct {
	provider ActivePolicyProvider
	logger   *zap.Logger
	observer Observer
}

// NewEvaluator creates a new policy rule evaluator. observer may be nil.
func NewEvaluator(provider ActivePolicyProvider, logger *zap.Logger, observer Observer) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		provider: provider,
		logger:   logger,
		observer: observer,
	}
}

// EvaluatePolicies evaluates every active rule against the change. It never
// fails: a failed policy fetch degrades to the empty result and a failing
// rule is logged and skipped.
func (e *Evaluator) EvaluatePolicies(ctx context.Context, c *change.Change, organizationID string) *policy.EvaluationResult {
	if c == nil {
		e.logger.Warn("no change supplied, skipping policy evaluation",
			zap.String("organization_id", organizationID))
		return policy.EmptyEvaluationResult()
	}

	startTime := time.Now()
	logger := e.logger.With(
		zap.String("change_id", c.ID),
		zap.String("organization_id", organizationID),
	)

	policies, err := e.fetchPolicies(ctx, organizationID)
	if err != nil {
		logger.Error("failed to fetch active policies",
			zap.Bool("retryable", errors.IsRetryable(err)),
			zap.Error(err))
		if e.observer != nil {
			e.observer.PolicyFetchFailed(organizationID)
		}
		return policy.EmptyEvaluationResult()
	}
	if len(policies) == 0 {
		logger.Debug("organization has no active policies")
		return policy.EmptyEvaluationResult()
	}

	var violations []policy.RuleResult
	rulesEvaluated := 0

	for _, p := range policies {
		if p == nil || !p.IsActive {
			continue
		}

		for _, rule := range e.normalizeRules(logger, p) {
			rulesEvaluated++

			violation, err := e.evaluateRule(c, p, rule)
			if err != nil {
				logger.Warn("skipping rule that failed to evaluate",
					zap.String("policy_id", p.ID),
					zap.String("rule_id", rule.ID),
					zap.Error(err))
				if e.observer != nil {
					e.observer.RuleFailed(p.ID)
				}
				continue
			}
			if violation == nil {
				continue
			}

			violations = append(violations, *violation)
			if e.observer != nil {
				e.observer.ViolationRecorded(string(violation.Category), violation.AutoBlock)
			}
		}
	}

	result := policy.NewEvaluationResult(violations)

	logger.Info("policy evaluation completed",
		zap.Int("policies", len(policies)),
		zap.Int("rules_evaluated", rulesEvaluated),
		zap.Int("violations", result.TotalViolations),
		zap.Int("severity_score", result.SeverityScore),
		zap.Bool("auto_block", result.AutoBlockDetected),
		zap.Duration("duration", time.Since(startTime)))

	return result
}

func (e *Evaluator) fetchPolicies(ctx context.Context, organizationID string) (policies []*policy.Policy, err error) {
	if e.provider == nil {
		return nil, errors.NewInternalError("no active policy provider configured")
	}
	defer func() {
		if r := recover(); r != nil {
			policies = nil
			err = errors.NewExternalError("policy provider", fmt.Sprintf("listing active policies panicked: %v", r))
		}
	}()
	return e.provider.ListActivePolicies(ctx, organizationID)
}

// normalizeRules decodes the policy's rule document into its ordered rule
// list, dropping rules that fail to decode.
func (e *Evaluator) normalizeRules(logger *zap.Logger, p *policy.Policy) []*policy.PolicyRule {
	if p.Rules.Encoding() == policy.EncodingUnknown {
		logger.Warn("unrecognized rule document, policy has no rules",
			zap.String("policy_id", p.ID))
		return nil
	}

	raw := p.Rules.RawRules()
	rules := make([]*policy.PolicyRule, 0, len(raw))
	for i, payload := range raw {
		rule, err := policy.DecodeRule(payload)
		if err != nil {
			logger.Warn("skipping malformed rule",
				zap.String("policy_id", p.ID),
				zap.Int("rule_index", i),
				zap.Error(err))
			if e.observer != nil {
				e.observer.RuleFailed(p.ID)
			}
			continue
		}
		rules = append(rules, rule)
	}

	return rules
}

// evaluateRule returns the violation produced by one rule, or nil
func (e *Evaluator) evaluateRule(c *change.Change, p *policy.Policy, rule *policy.PolicyRule) (violation *policy.RuleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			violation = nil
			err = errors.NewPolicyError(rule.ID, fmt.Sprintf("rule evaluation panicked: %v", r))
		}
	}()

	evidence, err := match(rule.Matcher, c)
	if err != nil {
		return nil, err
	}

	hit := len(evidence) > 0
	if hit == rule.Invert {
		// no hits on a normal rule, or hits suppressing an inverted one
		return nil, nil
	}

	if len(evidence) > policy.MaxEvidence {
		evidence = evidence[:policy.MaxEvidence]
	}

	message := rule.Message
	if message == "" {
		message = rule.Title
	}
	if len(evidence) > 0 {
		message = Interpolate(message, evidence[0])
	}

	if evidence == nil {
		evidence = []policy.Evidence{}
	}

	return &policy.RuleResult{
		PolicyID:   p.ID,
		PolicyName: p.Name,
		RuleID:     rule.ID,
		Title:      rule.Title,
		Category:   rule.Category,
		Severity:   rule.Severity,
		AutoBlock:  rule.AutoBlock,
		Evidence:   evidence,
		Message:    message,
	}, nil
}
