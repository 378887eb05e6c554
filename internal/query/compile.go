package query

import (
	"fmt"
	"strings"

	"github.com/biokgraph/biokg/internal/kgerr"
)

// DefaultMaxDepth bounds the filter tree so the compiled predicate stays a
// manageable size.
const DefaultMaxDepth = 16

// Predicate is a compiled WHERE condition. Text contains only column
// names, SQL keywords and ? placeholders; every caller-supplied value is
// carried in Args.
type Predicate struct {
	Text string
	Args []any
}

// AlwaysTrue is the predicate compiled from an absent filter.
func AlwaysTrue() *Predicate {
	return &Predicate{Text: "1=1"}
}

var sqlOperators = map[Operator]string{
	OpEq:   "=",
	OpNe:   "<>",
	OpGt:   ">",
	OpLt:   "<",
	OpGe:   ">=",
	OpLe:   "<=",
	OpLike: "LIKE",
	OpIn:   "IN",
}

// Compiler turns filter trees into predicates for one table, validating
// every referenced field against the table's column whitelist.
type Compiler struct {
	MaxDepth int
}

// NewCompiler returns a compiler with the given depth bound; maxDepth <= 0
// selects DefaultMaxDepth.
func NewCompiler(maxDepth int) *Compiler {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Compiler{MaxDepth: maxDepth}
}

// Compile validates and compiles the tree. A nil node compiles to the
// always-true predicate.
func (c *Compiler) Compile(n *Node, allowed map[string]struct{}) (*Predicate, error) {
	if n == nil {
		return AlwaysTrue(), nil
	}

	var sb strings.Builder
	var args []any
	if err := c.compileNode(n, allowed, &sb, &args, 1); err != nil {
		return nil, err
	}
	return &Predicate{Text: sb.String(), Args: args}, nil
}

func (c *Compiler) compileNode(n *Node, allowed map[string]struct{}, sb *strings.Builder, args *[]any, depth int) error {
	if depth > c.MaxDepth {
		return kgerr.Malformedf("filter tree deeper than %d levels", c.MaxDepth)
	}

	switch {
	case n.Leaf != nil:
		return c.compileLeaf(n.Leaf, allowed, sb, args)
	case n.Group != nil:
		return c.compileGroup(n.Group, allowed, sb, args, depth)
	default:
		return kgerr.Malformedf("empty filter node")
	}
}

func (c *Compiler) compileGroup(g *Group, allowed map[string]struct{}, sb *strings.Builder, args *[]any, depth int) error {
	if len(g.Items) == 0 {
		return kgerr.Malformedf("%s group has no items", g.Combinator)
	}

	for i := range g.Items {
		if i > 0 {
			fmt.Fprintf(sb, " %s ", g.Combinator)
		}
		sb.WriteString("(")
		if err := c.compileNode(&g.Items[i], allowed, sb, args, depth+1); err != nil {
			return err
		}
		sb.WriteString(")")
	}
	return nil
}

func (c *Compiler) compileLeaf(l *Leaf, allowed map[string]struct{}, sb *strings.Builder, args *[]any) error {
	if _, ok := allowed[l.Field]; !ok {
		return fmt.Errorf("%w: %q is not a queryable column", kgerr.ErrUnknownField, l.Field)
	}
	sqlOp, ok := sqlOperators[l.Op]
	if !ok {
		return fmt.Errorf("%w: %q", kgerr.ErrInvalidOperator, l.Op)
	}

	switch l.Op {
	case OpIn:
		values, ok := l.Value.([]any)
		if !ok {
			return fmt.Errorf("%w: in requires a list value on field %q", kgerr.ErrInvalidOperator, l.Field)
		}
		if len(values) == 0 {
			return fmt.Errorf("%w: in requires a non-empty list on field %q", kgerr.ErrInvalidOperator, l.Field)
		}
		for _, v := range values {
			if !isScalar(v) {
				return fmt.Errorf("%w: in list on field %q contains a non-scalar element", kgerr.ErrInvalidOperator, l.Field)
			}
		}
		fmt.Fprintf(sb, "%s IN (%s)", l.Field, placeholders(len(values)))
		*args = append(*args, values...)

	case OpLike:
		s, ok := l.Value.(string)
		if !ok {
			return fmt.Errorf("%w: like requires a string value on field %q", kgerr.ErrInvalidOperator, l.Field)
		}
		fmt.Fprintf(sb, "%s LIKE ?", l.Field)
		*args = append(*args, s)

	default:
		if !isScalar(l.Value) {
			return fmt.Errorf("%w: %s requires a scalar value on field %q", kgerr.ErrInvalidOperator, l.Op, l.Field)
		}
		fmt.Fprintf(sb, "%s %s ?", l.Field, sqlOp)
		*args = append(*args, l.Value)
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, float64, bool, int, int64:
		return true
	default:
		return false
	}
}

// placeholders returns "?, ?, ..." with n placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
