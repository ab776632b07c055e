package lexicon

import "golang.org/x/text/width"

// Class groups confusable glyphs by the gate that decides whether the
// substitution is applied.
type Class int

const (
	// Angle glyphs are full-width or alternate angle brackets. Their
	// replacement depends on whether they sit in an #include directive or in
	// a stream expression.
	Angle Class = iota + 1

	// DigitToLetter substitutions apply inside words that are clearly
	// identifiers.
	DigitToLetter

	// LetterToDigit substitutions apply inside words that are clearly numbers.
	LetterToDigit

	// Delimiter glyphs are brackets mistaken for header delimiters; they are
	// only replaced in #include directives.
	Delimiter

	// Width covers full-width and typographic punctuation that always has a
	// single half-width meaning.
	Width
)

// Confusion describes the intended character for a recognised glyph.
type Confusion struct {
	Replacement string
	Class       Class
}

var confusables = map[rune]Confusion{
	'《': {"<", Angle},
	'〈': {"<", Angle},
	'＜': {"<", Angle},
	'》': {">", Angle},
	'〉': {">", Angle},
	'＞': {">", Angle},

	'1': {"i", DigitToLetter},
	'0': {"o", DigitToLetter},
	'5': {"s", DigitToLetter},

	'l': {"1", LetterToDigit},
	'O': {"0", LetterToDigit},
	'o': {"0", LetterToDigit},

	'[': {"<", Delimiter},
	'{': {"<", Delimiter},
	'(': {"<", Delimiter},
	']': {">", Delimiter},
	'}': {">", Delimiter},
	')': {">", Delimiter},

	'“': {`"`, Width},
	'”': {`"`, Width},
	'‘': {"'", Width},
	'’': {"'", Width},
	'。': {".", Width},
	'、': {",", Width},
	'　': {" ", Width},
}

// Confusable returns the confusion entry for r. Full-width ASCII variants
// (U+FF01..U+FF5E) not listed explicitly fold to their half-width form.
func Confusable(r rune) (Confusion, bool) {
	if c, ok := confusables[r]; ok {
		return c, true
	}
	if r >= 0xFF01 && r <= 0xFF5E {
		return Confusion{Replacement: width.Narrow.String(string(r)), Class: Width}, true
	}
	return Confusion{}, false
}

// IsOpenAngle reports whether r is an opening angle glyph.
func IsOpenAngle(r rune) bool {
	return r == '《' || r == '〈' || r == '＜'
}

// IsAngleGlyph reports whether r is any non-ASCII angle glyph.
func IsAngleGlyph(r rune) bool {
	c, ok := confusables[r]
	return ok && c.Class == Angle
}

// Direction is the data flow of a stream identifier.
type Direction int

const (
	// NoStream marks words that are not stream identifiers.
	NoStream Direction = iota
	// Output streams take "<<".
	Output
	// Input streams take ">>".
	Input
)

var streams = map[string]Direction{
	"cout": Output,
	"cerr": Output,
	"clog": Output,
	"endl": Output,
	"cin":  Input,
}

// StreamDirection classifies a stream identifier.
func StreamDirection(word string) Direction {
	return streams[word]
}
