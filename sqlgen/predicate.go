package sqlgen

// CompareOp identifies a binary comparison operator.
type CompareOp string

const (
	OpEq    CompareOp = "="
	OpNe    CompareOp = "<>"
	OpLt    CompareOp = "<"
	OpGt    CompareOp = ">"
	OpLe    CompareOp = "<="
	OpGe    CompareOp = ">="
	OpLike  CompareOp = "LIKE"
	OpILike CompareOp = "ILIKE"
)

// LogicOp identifies a conjunction operator.
type LogicOp string

const (
	OpAnd LogicOp = "AND"
	OpOr  LogicOp = "OR"
)

// Predicate is the interface implemented by all predicate node types.
// Use type assertions or type switches to access specific node data.
type Predicate interface {
	// predicateMarker is a marker method to prevent external implementation.
	predicateMarker()
}

// Comparison is a binary comparison between a column and a constant value.
type Comparison struct {
	Op     CompareOp
	Column string
	Value  any
}

// Membership tests a column against a list of constant values (IN / NOT IN).
type Membership struct {
	Column string
	Values []any
	Negate bool
}

// Range tests a column against an inclusive lower and upper bound (BETWEEN).
type Range struct {
	Column string
	Lower  any
	Upper  any
}

// Nullness tests a column for NULL (IS NULL / IS NOT NULL).
type Nullness struct {
	Column string
	Negate bool
}

// Conjunction combines child predicates with AND or OR.
type Conjunction struct {
	Op       LogicOp
	Children []Predicate
}

// Negation inverts a child predicate.
type Negation struct {
	Child Predicate
}

func (*Comparison) predicateMarker()  {}
func (*Membership) predicateMarker()  {}
func (*Range) predicateMarker()       {}
func (*Nullness) predicateMarker()    {}
func (*Conjunction) predicateMarker() {}
func (*Negation) predicateMarker()    {}

// Eq builds column = value.
func Eq(column string, value any) Predicate {
	return &Comparison{Op: OpEq, Column: column, Value: value}
}

// Ne builds column <> value.
func Ne(column string, value any) Predicate {
	return &Comparison{Op: OpNe, Column: column, Value: value}
}

// Lt builds column < value.
func Lt(column string, value any) Predicate {
	return &Comparison{Op: OpLt, Column: column, Value: value}
}

// Gt builds column > value.
func Gt(column string, value any) Predicate {
	return &Comparison{Op: OpGt, Column: column, Value: value}
}

// Le builds column <= value.
func Le(column string, value any) Predicate {
	return &Comparison{Op: OpLe, Column: column, Value: value}
}

// Ge builds column >= value.
func Ge(column string, value any) Predicate {
	return &Comparison{Op: OpGe, Column: column, Value: value}
}

// Like builds column LIKE pattern. The pattern uses SQL wildcards
// (% for any run of characters, _ for a single character).
func Like(column, pattern string) Predicate {
	return &Comparison{Op: OpLike, Column: column, Value: pattern}
}

// ILike builds a case-insensitive LIKE.
func ILike(column, pattern string) Predicate {
	return &Comparison{Op: OpILike, Column: column, Value: pattern}
}

// In builds column IN (values...). An empty list matches no row.
func In(column string, values ...any) Predicate {
	return &Membership{Column: column, Values: values}
}

// NotIn builds column NOT IN (values...). An empty list matches every row.
func NotIn(column string, values ...any) Predicate {
	return &Membership{Column: column, Values: values, Negate: true}
}

// Between builds column BETWEEN lower AND upper (bounds inclusive).
func Between(column string, lower, upper any) Predicate {
	return &Range{Column: column, Lower: lower, Upper: upper}
}

// IsNull builds column IS NULL.
func IsNull(column string) Predicate {
	return &Nullness{Column: column}
}

// NotNull builds column IS NOT NULL.
func NotNull(column string) Predicate {
	return &Nullness{Column: column, Negate: true}
}

// And combines predicates so all must hold. Nil children are dropped;
// a single child is returned unwrapped.
func And(children ...Predicate) Predicate {
	return conjoin(OpAnd, children)
}

// Or combines predicates so at least one must hold. Nil children are
// dropped; a single child is returned unwrapped.
func Or(children ...Predicate) Predicate {
	return conjoin(OpOr, children)
}

// Not inverts a predicate.
func Not(child Predicate) Predicate {
	return &Negation{Child: child}
}

func conjoin(op LogicOp, children []Predicate) Predicate {
	kept := make([]Predicate, 0, len(children))
	for _, c := range children {
		if c != nil {
			kept = append(kept, c)
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return &Conjunction{Op: op, Children: kept}
}

// Columns returns the column names a predicate references, deduplicated,
// in first-appearance order. A nil predicate references no columns.
func Columns(p Predicate) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	walkColumns(p, add)
	return out
}

func walkColumns(p Predicate, add func(string)) {
	switch n := p.(type) {
	case *Comparison:
		add(n.Column)
	case *Membership:
		add(n.Column)
	case *Range:
		add(n.Column)
	case *Nullness:
		add(n.Column)
	case *Conjunction:
		for _, c := range n.Children {
			walkColumns(c, add)
		}
	case *Negation:
		walkColumns(n.Child, add)
	}
}
