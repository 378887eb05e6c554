// Package query implements the composable filter language: a recursive
// boolean expression decoded from JSON and compiled into a parameter-bound
// SQL predicate.
package query

import (
	"encoding/json"

	"github.com/biokgraph/biokg/internal/kgerr"
)

// Operator is a comparison operator on a single field.
type Operator string

const (
	OpEq   Operator = "eq"
	OpNe   Operator = "ne"
	OpGt   Operator = "gt"
	OpLt   Operator = "lt"
	OpGe   Operator = "ge"
	OpLe   Operator = "le"
	OpLike Operator = "like"
	OpIn   Operator = "in"
)

// Combinator joins the children of a group.
type Combinator string

const (
	CombAnd Combinator = "AND"
	CombOr  Combinator = "OR"
)

// operatorAliases maps every accepted wire spelling to its canonical
// operator. Both word forms ("eq") and symbol forms ("=") appear in real
// client traffic.
var operatorAliases = map[string]Operator{
	"eq": OpEq, "=": OpEq, "==": OpEq,
	"ne": OpNe, "!=": OpNe, "<>": OpNe,
	"gt": OpGt, ">": OpGt,
	"lt": OpLt, "<": OpLt,
	"ge": OpGe, ">=": OpGe,
	"le": OpLe, "<=": OpLe,
	"like": OpLike,
	"in":   OpIn,
}

// Leaf is a single "field OP value" condition.
type Leaf struct {
	Field string
	Op    Operator
	Value any
}

// Group combines child nodes with AND or OR.
type Group struct {
	Combinator Combinator
	Items      []Node
}

// Node is the closed tagged union over the two filter shapes. Exactly one
// of Leaf or Group is non-nil after a successful decode.
type Node struct {
	Leaf  *Leaf
	Group *Group
}

// wireNode mirrors the JSON wire format:
//
//	{"operator": "=", "field": "id", "value": "DOID:2022"}
//	{"operator": "and", "items": [ ...nodes... ]}
type wireNode struct {
	Operator string          `json:"operator"`
	Field    string          `json:"field"`
	Value    json.RawMessage `json:"value"`
	Items    []Node          `json:"items"`
}

// UnmarshalJSON decodes a filter node, dispatching on the operator: "and"
// and "or" produce groups, everything else a leaf.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return kgerr.Malformedf("decode filter node: %v", err)
	}

	switch w.Operator {
	case "and", "AND":
		return n.setGroup(CombAnd, w.Items)
	case "or", "OR":
		return n.setGroup(CombOr, w.Items)
	}

	op, ok := operatorAliases[w.Operator]
	if !ok {
		return kgerr.Malformedf("unrecognized operator %q", w.Operator)
	}
	if w.Field == "" {
		return kgerr.Malformedf("leaf with operator %q is missing a field", w.Operator)
	}
	if len(w.Value) == 0 {
		return kgerr.Malformedf("leaf on field %q is missing a value", w.Field)
	}

	var value any
	if err := json.Unmarshal(w.Value, &value); err != nil {
		return kgerr.Malformedf("decode value for field %q: %v", w.Field, err)
	}

	n.Leaf = &Leaf{Field: w.Field, Op: op, Value: value}
	n.Group = nil
	return nil
}

func (n *Node) setGroup(comb Combinator, items []Node) error {
	if len(items) == 0 {
		return kgerr.Malformedf("%s group has no items", comb)
	}
	n.Group = &Group{Combinator: comb, Items: items}
	n.Leaf = nil
	return nil
}

// Parse decodes a filter from its query-string JSON encoding. An empty
// string means "no filter" and yields a nil node.
func Parse(s string) (*Node, error) {
	if s == "" {
		return nil, nil
	}
	var n Node
	if err := json.Unmarshal([]byte(s), &n); err != nil {
		if kgerr.IsClientError(err) {
			return nil, err
		}
		return nil, kgerr.Malformedf("%v", err)
	}
	return &n, nil
}
