package template

// openConditional is one frame of the parser's nesting stack.
type openConditional struct {
	guard  string
	offset int
	body   []Node
}

// Parse builds the syntax tree from a scanned token sequence. Conditional
// nesting follows stack discipline: last opened, first closed. Any
// inconsistency aborts with a ParseError and no tree is produced.
//
// The stack is local to the call, so concurrent parses of different
// templates never interfere.
func Parse(tokens []Token) (*Template, error) {
	var root []Node
	var stack []openConditional

	appendNode := func(n Node) {
		if len(stack) > 0 {
			top := &stack[len(stack)-1]
			top.body = append(top.body, n)
			return
		}
		root = append(root, n)
	}

	for _, tok := range tokens {
		switch tok.Kind {
		case TokenText:
			appendNode(&Literal{Text: tok.Text})
		case TokenVar:
			appendNode(&Variable{Name: tok.Text, Default: tok.Default})
		case TokenCondOpen:
			stack = append(stack, openConditional{guard: tok.Text, offset: tok.Offset})
		case TokenCondClose:
			if len(stack) == 0 {
				return nil, &ParseError{Kind: ParseMismatchedClose, Found: tok.Text, Offset: tok.Offset}
			}
			top := stack[len(stack)-1]
			if top.guard != tok.Text {
				return nil, &ParseError{Kind: ParseMismatchedClose, Expected: top.guard, Found: tok.Text, Offset: tok.Offset}
			}
			stack = stack[:len(stack)-1]
			appendNode(&Conditional{Guard: top.guard, Body: top.body})
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return nil, &ParseError{Kind: ParseUnclosedConditional, Expected: top.guard, Offset: top.offset}
	}

	return &Template{Body: root}, nil
}
