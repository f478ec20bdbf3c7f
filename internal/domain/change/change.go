package change

import (
	"fmt"
	"strings"
)

// OpCode identifies the kind of atomic edit in a diff
type OpCode string

const (
	OpAdd     OpCode = "add"
	OpRemove  OpCode = "remove"
	OpReplace OpCode = "replace"
)

// IsValid reports whether the op code is one of add, remove or replace
func (o OpCode) IsValid() bool {
	switch o {
	case OpAdd, OpRemove, OpReplace:
		return true
	}
	return false
}

// DiffOperation is one atomic edit applied to a structured application document.
// Operations are produced by the diff collaborator and never mutated afterwards.
type DiffOperation struct {
	Op    OpCode      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
}

// DiffSummary aggregates the operations of a change with their counters
type DiffSummary struct {
	Operations   []DiffOperation `json:"operations"`
	Added        int             `json:"added"`
	Removed      int             `json:"removed"`
	Modified     int             `json:"modified"`
	TotalChanges int             `json:"totalChanges"`
}

// Change is a proposed modification to a managed application
type Change struct {
	ID             string                 `json:"id"`
	DiffSummary    DiffSummary            `json:"diffSummary"`
	BeforeMetadata map[string]interface{} `json:"beforeMetadata,omitempty"`
	AfterMetadata  map[string]interface{} `json:"afterMetadata,omitempty"`
}

// ComponentName returns the name of the component after the change,
// read from afterMetadata.componentName and falling back to afterMetadata.name.
func (c *Change) ComponentName() string {
	if c == nil || c.AfterMetadata == nil {
		return ""
	}
	for _, key := range []string{"componentName", "name"} {
		if v, ok := c.AfterMetadata[key]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
			return fmt.Sprint(v)
		}
	}
	return ""
}

// NewDiffSummary builds a summary from operations and derives the counters
func NewDiffSummary(ops []DiffOperation) DiffSummary {
	summary := DiffSummary{Operations: ops}
	for _, op := range ops {
		switch OpCode(strings.ToLower(string(op.Op))) {
		case OpAdd:
			summary.Added++
		case OpRemove:
			summary.Removed++
		case OpReplace:
			summary.Modified++
		}
	}
	summary.TotalChanges = len(ops)
	return summary
}
