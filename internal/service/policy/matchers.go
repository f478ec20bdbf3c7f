package policy

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/davidleathers/change-risk-gate/internal/domain/change"
	"github.com/davidleathers/change-risk-gate/internal/domain/errors"
	"github.com/davidleathers/change-risk-gate/internal/domain/policy"
)

// match dispatches on the matcher variant and returns the evidence of every hit
func match(m policy.Matcher, c *change.Change) ([]policy.Evidence, error) {
	switch m := m.(type) {
	case *policy.JSONPathMatcher:
		return matchJSONPath(m, c.DiffSummary.Operations), nil
	case *policy.RegexMatcher:
		return matchRegex(m, c), nil
	case *policy.OperationMatcher:
		return matchOperation(m, c.DiffSummary.Operations), nil
	case *policy.CountMatcher:
		return matchCount(m, c.DiffSummary)
	}
	return nil, errors.NewInternalError(fmt.Sprintf("no evaluator for matcher %T", m))
}

func matchJSONPath(m *policy.JSONPathMatcher, ops []change.DiffOperation) []policy.Evidence {
	var hits []policy.Evidence
	for _, op := range ops {
		hit := m.MatchPath(op.Path)
		if !hit && m.HasValuePattern() {
			hit = m.MatchValue(serialize(op.Value))
		}
		if hit {
			hits = append(hits, policy.Evidence{
				"op":    op.Op,
				"path":  op.Path,
				"value": op.Value,
			})
		}
	}
	return hits
}

func matchRegex(m *policy.RegexMatcher, c *change.Change) []policy.Evidence {
	if m.Field == policy.FieldComponentName {
		name := c.ComponentName()
		if name == "" || !m.Match(name) {
			return nil
		}
		return []policy.Evidence{{
			"field":         string(policy.FieldComponentName),
			"componentName": name,
		}}
	}

	var hits []policy.Evidence
	for _, op := range c.DiffSummary.Operations {
		subject := op.Path
		if m.Field == policy.FieldValue {
			subject = stringify(op.Value)
		}
		if m.Match(subject) {
			hits = append(hits, policy.Evidence{
				"op":    op.Op,
				"path":  op.Path,
				"value": op.Value,
				"field": string(m.Field),
				"match": subject,
			})
		}
	}
	return hits
}

func matchOperation(m *policy.OperationMatcher, ops []change.DiffOperation) []policy.Evidence {
	var hits []policy.Evidence
	for _, op := range ops {
		if op.Op == m.Op {
			hits = append(hits, policy.Evidence{
				"op":   op.Op,
				"path": op.Path,
			})
		}
	}
	return hits
}

// matchCount reads the counter from the serialized summary, so any gjson
// path works as a field, e.g. "operations.#".
func matchCount(m *policy.CountMatcher, summary change.DiffSummary) ([]policy.Evidence, error) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, errors.Wrap(err, "serializing diff summary")
	}

	value := gjson.GetBytes(raw, m.Field)
	actual := 0.0
	if value.Type == gjson.Number {
		actual = value.Float()
	}

	if actual <= m.Threshold {
		return nil, nil
	}

	return []policy.Evidence{{
		"field":     m.Field,
		"value":     actual,
		"threshold": m.Threshold,
		"exceeded":  actual - m.Threshold,
	}}, nil
}

// serialize renders a value as JSON for value-pattern tests
func serialize(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// stringify renders strings verbatim and everything else as JSON
func stringify(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	return serialize(v)
}
