package template

import "strings"

// Scan converts a raw template string into a flat token sequence. It walks
// the source left to right over Unicode scalar values; a '{' begins a marker
// whose body runs to the next '}'. Everything outside markers accumulates
// into TokenText runs.
func Scan(source string) ([]Token, error) {
	runes := []rune(source)
	var tokens []Token

	textStart := 0
	i := 0
	for i < len(runes) {
		if runes[i] != '{' {
			i++
			continue
		}

		if i > textStart {
			tokens = append(tokens, Token{Kind: TokenText, Text: string(runes[textStart:i]), Offset: textStart})
		}

		end := -1
		for j := i + 1; j < len(runes); j++ {
			if runes[j] == '}' {
				end = j
				break
			}
		}
		if end < 0 {
			return nil, &LexError{Kind: LexUnterminatedMarker, Offset: i}
		}

		tok, err := markerToken(string(runes[i+1:end]), i)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)

		i = end + 1
		textStart = i
	}

	if textStart < len(runes) {
		tokens = append(tokens, Token{Kind: TokenText, Text: string(runes[textStart:]), Offset: textStart})
	}

	return tokens, nil
}

// markerToken classifies one marker body. offset is the rune position of the
// opening '{'.
func markerToken(body string, offset int) (Token, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return Token{}, &LexError{Kind: LexEmptyReference, Offset: offset}
	}

	switch trimmed[0] {
	case '?':
		name := strings.TrimSpace(trimmed[1:])
		if name == "" {
			return Token{}, &LexError{Kind: LexEmptyReference, Offset: offset}
		}
		return Token{Kind: TokenCondOpen, Text: name, Offset: offset}, nil
	case '/':
		name := strings.TrimSpace(trimmed[1:])
		if name == "" {
			return Token{}, &LexError{Kind: LexEmptyReference, Offset: offset}
		}
		return Token{Kind: TokenCondClose, Text: name, Offset: offset}, nil
	}

	// Split on the first '|' only. The default is raw literal text: a second
	// '|' belongs to the default, and nothing inside it is interpreted.
	if idx := strings.IndexRune(body, '|'); idx >= 0 {
		name := strings.TrimSpace(body[:idx])
		if name == "" {
			return Token{}, &LexError{Kind: LexEmptyReference, Offset: offset}
		}
		def := body[idx+1:]
		return Token{Kind: TokenVar, Text: name, Default: &def, Offset: offset}, nil
	}

	return Token{Kind: TokenVar, Text: trimmed, Offset: offset}, nil
}
