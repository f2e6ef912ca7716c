package template

import "strings"

// MissingVariablePolicy decides what the renderer emits for a variable with
// no binding and no default.
type MissingVariablePolicy int

const (
	// KeepPlaceholder emits the literal {name} text unchanged, so a
	// partially-filled campaign message still shows where the gap is
	// instead of silently dropping content.
	KeepPlaceholder MissingVariablePolicy = iota
	// DropMissing emits nothing for the unresolved reference.
	DropMissing
)

// defaultFalsyValues are the guard values treated as "off". Comparison is
// case-insensitive on ASCII letters only; Unicode content is untouched.
var defaultFalsyValues = []string{"", "0", "false"}

// RenderOptions carry the render-time policy knobs. The zero value gives
// the fail-soft defaults used at send time.
type RenderOptions struct {
	MissingVariable MissingVariablePolicy
	// FalsyValues overrides the guard falsy set; nil keeps the default
	// {"", "0", "false"}.
	FalsyValues []string
}

// Render executes a compiled template against a variable binding with the
// default options. It never fails: missing variables degrade per policy and
// unsatisfied guards drop their whole section. Bindings are read only; many
// goroutines may render the same *Template concurrently.
func Render(t *Template, bindings map[string]string) string {
	return RenderWith(t, bindings, RenderOptions{})
}

// RenderWith is Render with explicit policy options.
func RenderWith(t *Template, bindings map[string]string, opts RenderOptions) string {
	falsy := opts.FalsyValues
	if falsy == nil {
		falsy = defaultFalsyValues
	}

	var sb strings.Builder
	renderNodes(&sb, t.Body, bindings, opts.MissingVariable, falsy)
	return sb.String()
}

func renderNodes(sb *strings.Builder, nodes []Node, bindings map[string]string, missing MissingVariablePolicy, falsy []string) {
	for _, n := range nodes {
		switch node := n.(type) {
		case *Literal:
			sb.WriteString(node.Text)
		case *Variable:
			// A bound empty string is still "present" and wins over the default.
			if value, ok := bindings[node.Name]; ok {
				sb.WriteString(value)
				continue
			}
			if node.Default != nil {
				sb.WriteString(*node.Default)
				continue
			}
			if missing == KeepPlaceholder {
				sb.WriteString("{")
				sb.WriteString(node.Name)
				sb.WriteString("}")
			}
		case *Conditional:
			// An unsatisfied guard skips the whole body: nested text,
			// variables, defaults, and conditionals never reach the output.
			if guardSatisfied(bindings, node.Guard, falsy) {
				renderNodes(sb, node.Body, bindings, missing, falsy)
			}
		}
	}
}

func guardSatisfied(bindings map[string]string, guard string, falsy []string) bool {
	value, ok := bindings[guard]
	if !ok {
		return false
	}
	for _, f := range falsy {
		if asciiEqualFold(value, f) {
			return false
		}
	}
	return true
}

// asciiEqualFold compares two strings byte-wise, folding A-Z to a-z.
// Unlike strings.EqualFold it never folds non-ASCII letters, so Devanagari
// guard values compare exact.
func asciiEqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
