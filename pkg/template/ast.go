package template

// Node is one element of a compiled template body. The set of
// implementations is closed: Literal, Variable, and Conditional. The
// validator and renderer switch exhaustively over these three kinds.
type Node interface {
	node()
}

// Literal is a run of text emitted verbatim.
type Literal struct {
	Text string
}

// Variable is a {name} or {name|default} reference. Default is nil when no
// fallback was given; a pointer to "" is a present-but-empty fallback.
type Variable struct {
	Name    string
	Default *string
}

// Conditional is a {?guard}...{/guard} section. Its body renders only when
// the guard binding is truthy.
type Conditional struct {
	Guard string
	Body  []Node
}

func (*Literal) node()     {}
func (*Variable) node()    {}
func (*Conditional) node() {}

// Template is the root of a compiled template: the ordered top-level node
// sequence. It is immutable once built and safe for concurrent renders.
type Template struct {
	Body []Node
}

// Compile scans and parses source in one step.
func Compile(source string) (*Template, error) {
	tokens, err := Scan(source)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}
