package mef

import "fmt"

// Connective enumerates gate logic operators.
type Connective int

const (
	And Connective = iota
	Or
	AtLeast // k-out-of-n, a.k.a. vote
	Not
	Nand
	Nor
	Xor
	Null // unary pass-through
	Implies
	Iff
)

// String returns the lowercase operator name as used in reports.
func (c Connective) String() string {
	switch c {
	case And:
		return "and"
	case Or:
		return "or"
	case AtLeast:
		return "atleast"
	case Not:
		return "not"
	case Nand:
		return "nand"
	case Nor:
		return "nor"
	case Xor:
		return "xor"
	case Null:
		return "null"
	case Implies:
		return "implies"
	case Iff:
		return "iff"
	default:
		return "unknown"
	}
}

// Arg is one gate argument: a node reference with an optional negation.
type Arg struct {
	Node   Node
	Negate bool
}

// Gate is a logical connective over basic events, house events, and
// other gates. Gates form a DAG; sharing is allowed, cycles are not.
type Gate struct {
	name string
	conn Connective
	k    int // minimum number for AtLeast
	args []Arg
}

// NewGate creates an empty gate with the given connective.
func NewGate(name string, conn Connective) *Gate {
	return &Gate{name: name, conn: conn}
}

// NewVoteGate creates an ATLEAST gate with the given minimum number.
func NewVoteGate(name string, k int) *Gate {
	return &Gate{name: name, conn: AtLeast, k: k}
}

// SetMinNumber adjusts the vote number of an AtLeast gate. Only valid
// before the model is frozen.
func (g *Gate) SetMinNumber(k int) { g.k = k }

func (g *Gate) ID() string             { return g.name }
func (g *Gate) Connective() Connective { return g.conn }
func (g *Gate) MinNumber() int         { return g.k }
func (g *Gate) Args() []Arg            { return g.args }

// AddArg appends a positive argument.
func (g *Gate) AddArg(n Node) *Gate {
	g.args = append(g.args, Arg{Node: n})
	return g
}

// AddNegArg appends a negated argument.
func (g *Gate) AddNegArg(n Node) *Gate {
	g.args = append(g.args, Arg{Node: n, Negate: true})
	return g
}

// Validate checks argument counts for the connective.
func (g *Gate) Validate() error {
	n := len(g.args)
	switch g.conn {
	case Not, Null:
		if n != 1 {
			return fmt.Errorf("gate %q: %s expects exactly one argument, got %d", g.name, g.conn, n)
		}
	case Implies, Iff:
		if n != 2 {
			return fmt.Errorf("gate %q: %s expects exactly two arguments, got %d", g.name, g.conn, n)
		}
	case AtLeast:
		if g.k < 1 || g.k > n {
			return fmt.Errorf("gate %q: atleast min number %d is outside [1, %d]", g.name, g.k, n)
		}
		if n < 2 {
			return fmt.Errorf("gate %q: atleast expects at least two arguments, got %d", g.name, n)
		}
	default:
		if n < 1 {
			return fmt.Errorf("gate %q: %s expects at least one argument", g.name, g.conn)
		}
	}
	// A literal and its negation are distinct arguments; the
	// preprocessor collapses complementary pairs.
	type literal struct {
		id     string
		negate bool
	}
	seen := make(map[literal]bool, n)
	for _, arg := range g.args {
		if arg.Node == nil {
			return fmt.Errorf("gate %q has a nil argument", g.name)
		}
		lit := literal{id: arg.Node.ID(), negate: arg.Negate}
		if seen[lit] {
			return fmt.Errorf("gate %q has duplicate argument %q", g.name, arg.Node.ID())
		}
		seen[lit] = true
	}
	return nil
}
