package policy

import (
	"bytes"
	"encoding/json"
)

// Policy is an organization-scoped, named set of rules evaluated against every change
type Policy struct {
	ID             string       `json:"id"`
	OrganizationID string       `json:"organizationId,omitempty"`
	Name           string       `json:"name"`
	IsActive       bool         `json:"isActive"`
	Rules          RuleDocument `json:"rules"`
}

// DocumentEncoding tells which of the accepted shapes a rule document used
type DocumentEncoding int

const (
	EncodingUnknown DocumentEncoding = iota
	EncodingList                     // [ {rule}, ... ]
	EncodingWrapped                  // { "rules": [ {rule}, ... ] }
	EncodingSingle                   // { rule }
)

func (e DocumentEncoding) String() string {
	switch e {
	case EncodingList:
		return "list"
	case EncodingWrapped:
		return "wrapped"
	case EncodingSingle:
		return "single"
	default:
		return "unknown"
	}
}

// RuleDocument is the stored rules payload of a policy. The encoding is
// resolved once when the document is built; RawRules always yields the
// canonical ordered list of rule payloads regardless of the encoding.
type RuleDocument struct {
	raw      json.RawMessage
	encoding DocumentEncoding
	rules    []json.RawMessage
}

// NewRuleDocument resolves the encoding of a raw rules payload.
// Unrecognized shapes produce a document with no rules.
func NewRuleDocument(raw []byte) RuleDocument {
	doc := RuleDocument{raw: append(json.RawMessage(nil), raw...)}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return doc
	}

	switch trimmed[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err == nil {
			doc.encoding = EncodingList
			doc.rules = list
		}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return doc
		}
		if nested, ok := fields["rules"]; ok {
			var list []json.RawMessage
			if err := json.Unmarshal(nested, &list); err == nil {
				doc.encoding = EncodingWrapped
				doc.rules = list
			}
			return doc
		}
		_, hasMatcher := fields["matcher"]
		_, hasID := fields["id"]
		if hasMatcher || hasID {
			doc.encoding = EncodingSingle
			doc.rules = []json.RawMessage{json.RawMessage(trimmed)}
		}
	}

	return doc
}

// NewRuleDocumentFromRules encodes rules as a list document
func NewRuleDocumentFromRules(rules ...json.RawMessage) RuleDocument {
	if rules == nil {
		rules = []json.RawMessage{}
	}
	raw, _ := json.Marshal(rules)
	return NewRuleDocument(raw)
}

// Encoding returns the resolved encoding
func (d RuleDocument) Encoding() DocumentEncoding {
	return d.encoding
}

// RawRules returns the ordered rule payloads
func (d RuleDocument) RawRules() []json.RawMessage {
	out := make([]json.RawMessage, len(d.rules))
	copy(out, d.rules)
	return out
}

// Len returns the number of rule payloads in the document
func (d RuleDocument) Len() int {
	return len(d.rules)
}

func (d RuleDocument) MarshalJSON() ([]byte, error) {
	if len(bytes.TrimSpace(d.raw)) == 0 {
		return []byte("null"), nil
	}
	return d.raw, nil
}

func (d *RuleDocument) UnmarshalJSON(data []byte) error {
	*d = NewRuleDocument(data)
	return nil
}
