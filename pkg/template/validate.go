package template

import (
	"fmt"
	"sort"
)

// ValidationReport classifies every distinct variable name in a template.
// The three slices are sets: sorted, deduplicated, order-independent, so
// validating the same source twice yields byte-identical reports.
type ValidationReport struct {
	IsValid               bool     `json:"is_valid"`
	RequiredVariables     []string `json:"required_variables"`
	VariablesWithDefaults []string `json:"variables_with_defaults"`
	ConditionalVariables  []string `json:"conditional_variables"`
	Errors                []string `json:"errors"`
}

// AllVariables returns the union of the three classification sets,
// deduplicated and sorted. It backs the stored template's variables column.
func (r ValidationReport) AllVariables() []string {
	seen := make(map[string]struct{})
	for _, set := range [][]string{r.RequiredVariables, r.VariablesWithDefaults, r.ConditionalVariables} {
		for _, name := range set {
			seen[name] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Validate walks the tree once and classifies every variable reference.
// Each Variable node is classified by its own default: no default means
// required, a default means defaulted; a variable inside a conditional body
// keeps that classification, since its requiredness is relative to its own
// guard being satisfied. Every Conditional guard lands in the conditional
// set.
//
// A name used both as a guard and as a plain required variable outside any
// conditional is inconsistent but still renderable (each occurrence is
// evaluated per its own node kind), so it is recorded as a warning rather
// than flipping IsValid. The tree is never mutated.
func Validate(t *Template) ValidationReport {
	v := &validator{
		required:  make(map[string]struct{}),
		defaulted: make(map[string]struct{}),
		guards:    make(map[string]struct{}),
		topPlain:  make(map[string]struct{}),
	}
	v.walk(t.Body, 0)

	report := ValidationReport{
		IsValid:               true,
		RequiredVariables:     sortedKeys(v.required),
		VariablesWithDefaults: sortedKeys(v.defaulted),
		ConditionalVariables:  sortedKeys(v.guards),
		Errors:                []string{},
	}

	for _, name := range sortedKeys(v.guards) {
		if _, ok := v.topPlain[name]; ok {
			report.Errors = append(report.Errors,
				fmt.Sprintf("variable %q is used both as a conditional guard and as a required variable", name))
		}
	}
	for _, name := range sortedKeys(v.required) {
		if _, ok := v.defaulted[name]; ok {
			report.Errors = append(report.Errors,
				fmt.Sprintf("variable %q is referenced both with and without a default", name))
		}
	}

	return report
}

type validator struct {
	required  map[string]struct{}
	defaulted map[string]struct{}
	guards    map[string]struct{}
	// topPlain tracks names referenced without a default outside any
	// conditional body, for the guard-consistency warning.
	topPlain map[string]struct{}
}

func (v *validator) walk(nodes []Node, depth int) {
	for _, n := range nodes {
		switch node := n.(type) {
		case *Literal:
			// nothing to classify
		case *Variable:
			if node.Default == nil {
				v.required[node.Name] = struct{}{}
				if depth == 0 {
					v.topPlain[node.Name] = struct{}{}
				}
			} else {
				v.defaulted[node.Name] = struct{}{}
			}
		case *Conditional:
			v.guards[node.Guard] = struct{}{}
			v.walk(node.Body, depth+1)
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
