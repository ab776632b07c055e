package source

import (
	"unicode"
	"unicode/utf8"
)

// Kind classifies a [Token].
type Kind int

const (
	// Word is a maximal run of identifier characters (letters, digits, '_').
	Word Kind = iota

	// Operator is one of the composite stream operators "<<" or ">>".
	Operator

	// Punct is any other single non-space character.
	Punct
)

// Token is a lexical unit of one line. Start and End are byte offsets with
// line[Start:End] == Text.
type Token struct {
	Text  string
	Kind  Kind
	Start int
	End   int
}

// Len returns the token length in runes.
func (t Token) Len() int {
	return utf8.RuneCountInString(t.Text)
}

// Tokenize splits line into words, "<<"/">>" operators and single punctuation
// characters. Whitespace separates tokens and is not returned.
func Tokenize(line string) []Token {
	var toks []Token
	i := 0
	for i < len(line) {
		r, size := utf8.DecodeRuneInString(line[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case IsIdentRune(r):
			j := i + size
			for j < len(line) {
				r2, s2 := utf8.DecodeRuneInString(line[j:])
				if !IsIdentRune(r2) {
					break
				}
				j += s2
			}
			toks = append(toks, Token{Text: line[i:j], Kind: Word, Start: i, End: j})
			i = j
		case (r == '<' || r == '>') && i+1 < len(line) && line[i+1] == line[i]:
			toks = append(toks, Token{Text: line[i : i+2], Kind: Operator, Start: i, End: i + 2})
			i += 2
		default:
			toks = append(toks, Token{Text: line[i : i+size], Kind: Punct, Start: i, End: i + size})
			i += size
		}
	}
	return toks
}

// IsIdentRune reports whether r may appear in a word token.
func IsIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
