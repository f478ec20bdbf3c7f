package fixtures

import (
	"testing"

	"github.com/davidleathers/change-risk-gate/internal/domain/change"
)

// ChangeBuilder builds test Change values
type ChangeBuilder struct {
	t        *testing.T
	id       string
	ops      []change.DiffOperation
	before   map[string]interface{}
	after    map[string]interface{}
	override *change.DiffSummary
}

// NewChangeBuilder creates a builder for an empty change
func NewChangeBuilder(t *testing.T) *ChangeBuilder {
	t.Helper()
	return &ChangeBuilder{t: t, id: "chg-1"}
}

func (b *ChangeBuilder) WithID(id string) *ChangeBuilder {
	b.id = id
	return b
}

func (b *ChangeBuilder) Add(path string, value interface{}) *ChangeBuilder {
	b.ops = append(b.ops, change.DiffOperation{Op: change.OpAdd, Path: path, Value: value})
	return b
}

func (b *ChangeBuilder) Remove(path string) *ChangeBuilder {
	b.ops = append(b.ops, change.DiffOperation{Op: change.OpRemove, Path: path})
	return b
}

func (b *ChangeBuilder) Replace(path string, value interface{}) *ChangeBuilder {
	b.ops = append(b.ops, change.DiffOperation{Op: change.OpReplace, Path: path, Value: value})
	return b
}

// WithComponentName sets afterMetadata.componentName
func (b *ChangeBuilder) WithComponentName(name string) *ChangeBuilder {
	if b.after == nil {
		b.after = make(map[string]interface{})
	}
	b.after["componentName"] = name
	return b
}

// WithBeforeMetadata sets the metadata of the previous version
func (b *ChangeBuilder) WithBeforeMetadata(md map[string]interface{}) *ChangeBuilder {
	b.before = md
	return b
}

// WithSummary replaces the derived summary, keeping the recorded operations
func (b *ChangeBuilder) WithSummary(added, removed, modified, total int) *ChangeBuilder {
	b.override = &change.DiffSummary{Added: added, Removed: removed, Modified: modified, TotalChanges: total}
	return b
}

// Build returns the change
func (b *ChangeBuilder) Build() *change.Change {
	b.t.Helper()

	summary := change.NewDiffSummary(b.ops)
	if b.override != nil {
		ops := summary.Operations
		summary = *b.override
		summary.Operations = ops
	}

	return &change.Change{
		ID:             b.id,
		DiffSummary:    summary,
		BeforeMetadata: b.before,
		AfterMetadata:  b.after,
	}
}
