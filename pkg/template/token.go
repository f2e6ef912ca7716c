package template

// TokenKind identifies the lexical category of a scanned token.
type TokenKind int

const (
	// TokenText is a contiguous run of literal characters copied verbatim
	// to output.
	TokenText TokenKind = iota
	// TokenVar is a {name} or {name|default} variable reference.
	TokenVar
	// TokenCondOpen is a {?name} marker opening a conditional section.
	TokenCondOpen
	// TokenCondClose is a {/name} marker closing a conditional section.
	TokenCondClose
)

func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "text"
	case TokenVar:
		return "variable"
	case TokenCondOpen:
		return "conditional-open"
	case TokenCondClose:
		return "conditional-close"
	default:
		return "unknown"
	}
}

// Token is one lexical unit of a template source string.
//
// Offset is the position of the token's first character, counted in Unicode
// scalar values from the start of the source. Editors use it to highlight
// the offending marker when scanning or parsing fails.
type Token struct {
	Kind TokenKind
	// Text holds the literal run for TokenText, or the variable/guard name
	// for the marker kinds.
	Text string
	// Default is the fallback literal for TokenVar when the reference
	// carried a |default suffix. Nil means no default was given; a pointer
	// to "" is a present-but-empty default.
	Default *string
	Offset  int
}
