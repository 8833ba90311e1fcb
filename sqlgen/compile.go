package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// ErrNilPredicate is returned when a nil predicate reaches the compiler.
var ErrNilPredicate = errors.New("sqlgen: nil predicate")

// CompilerOptions configures predicate compilation.
type CompilerOptions struct {
	// ColumnMapping maps original column names to target names.
	// Columns not in the map use their original names.
	ColumnMapping map[string]string

	// ColumnExpressions maps column names to SQL expressions.
	// Takes precedence over ColumnMapping.
	// Use for computed columns or complex transformations.
	ColumnExpressions map[string]string
}

// Compiler translates predicate trees to DuckDB SQL fragments with
// positional bind arguments.
type Compiler struct {
	opts *CompilerOptions
}

// NewCompiler creates a new predicate compiler.
// If opts is nil, default options are used.
func NewCompiler(opts *CompilerOptions) *Compiler {
	if opts == nil {
		opts = &CompilerOptions{}
	}
	return &Compiler{opts: opts}
}

// Compile translates a single predicate with default options.
func Compile(p Predicate) (string, []any, error) {
	return NewCompiler(nil).Compile(p)
}

// CompileAll conjoins a filter sequence into one WHERE clause body with
// default options. Filters are applied in order and joined with AND.
func CompileAll(ps []Predicate) (string, []any, error) {
	return NewCompiler(nil).CompileAll(ps)
}

// Compile translates a predicate to a SQL fragment and its bind arguments.
// The fragment uses ? placeholders; values are never interpolated.
func (c *Compiler) Compile(p Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, ErrNilPredicate
	}
	var sb strings.Builder
	var args []any
	if err := c.compile(p, &sb, &args); err != nil {
		return "", nil, err
	}
	return sb.String(), args, nil
}

// CompileAll conjoins a filter sequence into one WHERE clause body.
// Filters keep their order and are joined with AND. An empty sequence
// compiles to an empty fragment and no arguments.
func (c *Compiler) CompileAll(ps []Predicate) (string, []any, error) {
	if len(ps) == 0 {
		return "", nil, nil
	}

	var parts []string
	var args []any
	for _, p := range ps {
		frag, a, err := c.Compile(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, frag)
		args = append(args, a...)
	}

	if len(parts) == 1 {
		return parts[0], args, nil
	}
	return "(" + strings.Join(parts, ") AND (") + ")", args, nil
}

func (c *Compiler) compile(p Predicate, sb *strings.Builder, args *[]any) error {
	switch n := p.(type) {
	case *Comparison:
		return c.compileComparison(n, sb, args)
	case *Membership:
		return c.compileMembership(n, sb, args)
	case *Range:
		return c.compileRange(n, sb, args)
	case *Nullness:
		return c.compileNullness(n, sb)
	case *Conjunction:
		return c.compileConjunction(n, sb, args)
	case *Negation:
		if n.Child == nil {
			return ErrNilPredicate
		}
		sb.WriteString("NOT (")
		if err := c.compile(n.Child, sb, args); err != nil {
			return err
		}
		sb.WriteString(")")
		return nil
	default:
		return fmt.Errorf("sqlgen: unsupported predicate type %T", p)
	}
}

func (c *Compiler) compileComparison(n *Comparison, sb *strings.Builder, args *[]any) error {
	sb.WriteString(c.columnSQL(n.Column))
	sb.WriteString(" ")
	sb.WriteString(string(n.Op))
	sb.WriteString(" ")
	c.bindValue(n.Value, sb, args)
	return nil
}

func (c *Compiler) compileMembership(n *Membership, sb *strings.Builder, args *[]any) error {
	// An empty list has fixed truth value: IN () matches nothing,
	// NOT IN () matches everything.
	if len(n.Values) == 0 {
		if n.Negate {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}
		return nil
	}

	sb.WriteString(c.columnSQL(n.Column))
	if n.Negate {
		sb.WriteString(" NOT IN (")
	} else {
		sb.WriteString(" IN (")
	}
	for i, v := range n.Values {
		if i > 0 {
			sb.WriteString(", ")
		}
		c.bindValue(v, sb, args)
	}
	sb.WriteString(")")
	return nil
}

func (c *Compiler) compileRange(n *Range, sb *strings.Builder, args *[]any) error {
	sb.WriteString(c.columnSQL(n.Column))
	sb.WriteString(" BETWEEN ")
	c.bindValue(n.Lower, sb, args)
	sb.WriteString(" AND ")
	c.bindValue(n.Upper, sb, args)
	return nil
}

func (c *Compiler) compileNullness(n *Nullness, sb *strings.Builder) error {
	sb.WriteString(c.columnSQL(n.Column))
	if n.Negate {
		sb.WriteString(" IS NOT NULL")
	} else {
		sb.WriteString(" IS NULL")
	}
	return nil
}

func (c *Compiler) compileConjunction(n *Conjunction, sb *strings.Builder, args *[]any) error {
	if len(n.Children) == 0 {
		// A conjunction of nothing holds vacuously; a disjunction does not.
		if n.Op == OpOr {
			sb.WriteString("FALSE")
		} else {
			sb.WriteString("TRUE")
		}
		return nil
	}
	if len(n.Children) == 1 {
		return c.compile(n.Children[0], sb, args)
	}

	sb.WriteString("(")
	for i, child := range n.Children {
		if i > 0 {
			sb.WriteString(" ")
			sb.WriteString(string(n.Op))
			sb.WriteString(" ")
		}
		if child == nil {
			return ErrNilPredicate
		}
		if err := c.compile(child, sb, args); err != nil {
			return err
		}
	}
	sb.WriteString(")")
	return nil
}

// columnSQL resolves a column reference through the configured mappings.
func (c *Compiler) columnSQL(name string) string {
	// Check for expression mapping first (takes precedence)
	if c.opts.ColumnExpressions != nil {
		if expr, ok := c.opts.ColumnExpressions[name]; ok {
			return expr
		}
	}

	// Check for name mapping
	if c.opts.ColumnMapping != nil {
		if mapped, ok := c.opts.ColumnMapping[name]; ok {
			name = mapped
		}
	}

	return QuoteIdentifier(name)
}

// bindValue appends a placeholder for the value and records the argument.
// Geometry values are routed through ST_GeomFromText so the driver sees a
// plain string argument.
func (c *Compiler) bindValue(v any, sb *strings.Builder, args *[]any) {
	if g, ok := v.(orb.Geometry); ok {
		sb.WriteString("ST_GeomFromText(?)")
		*args = append(*args, wkt.MarshalString(g))
		return
	}
	sb.WriteString("?")
	*args = append(*args, v)
}
