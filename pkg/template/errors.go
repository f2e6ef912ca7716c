package template

import "fmt"

// LexErrorKind classifies scanner failures.
type LexErrorKind int

const (
	// LexUnterminatedMarker means a '{' had no closing '}' before end of input.
	LexUnterminatedMarker LexErrorKind = iota
	// LexEmptyReference means a marker had no name, e.g. "{}" or "{ }".
	LexEmptyReference
)

// LexError reports malformed template text found during scanning. Offset is
// the rune position of the opening '{' of the bad marker.
type LexError struct {
	Kind   LexErrorKind
	Offset int
}

func (e *LexError) Error() string {
	switch e.Kind {
	case LexUnterminatedMarker:
		return fmt.Sprintf("template: unterminated marker at offset %d", e.Offset)
	case LexEmptyReference:
		return fmt.Sprintf("template: empty reference at offset %d", e.Offset)
	default:
		return fmt.Sprintf("template: lex error at offset %d", e.Offset)
	}
}

// ParseErrorKind classifies structural failures.
type ParseErrorKind int

const (
	// ParseMismatchedClose means a {/name} did not match the innermost open
	// conditional, or there was no open conditional at all.
	ParseMismatchedClose ParseErrorKind = iota
	// ParseUnclosedConditional means input ended with a conditional still open.
	ParseUnclosedConditional
)

// ParseError reports inconsistent conditional nesting. Parsing aborts on the
// first structural error; no partial tree is ever returned.
type ParseError struct {
	Kind ParseErrorKind
	// Expected is the guard of the innermost open conditional, if any.
	Expected string
	// Found is the name carried by the offending close marker.
	Found  string
	Offset int
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ParseMismatchedClose:
		if e.Expected == "" {
			return fmt.Sprintf("template: close marker {/%s} at offset %d without a matching open", e.Found, e.Offset)
		}
		return fmt.Sprintf("template: close marker {/%s} at offset %d, expected {/%s}", e.Found, e.Offset, e.Expected)
	case ParseUnclosedConditional:
		return fmt.Sprintf("template: conditional {?%s} opened at offset %d is never closed", e.Expected, e.Offset)
	default:
		return fmt.Sprintf("template: parse error at offset %d", e.Offset)
	}
}
