// Package normalize turns raw transcript bytes of uncertain encoding into
// canonical text: UTF-8, no byte-order marks, '\n' line terminators.
package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const bom = "\uFEFF"

// Decode converts raw input to normalised text. Valid UTF-8 is used as is;
// anything else is decoded as ISO-8859-1, which maps every byte to a rune.
// Decode never fails and never drops input bytes.
func Decode(raw []byte) string {
	var text string
	if utf8.Valid(raw) {
		text = string(raw)
	} else {
		dec, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			text = strings.ToValidUTF8(string(raw), string(utf8.RuneError))
		} else {
			text = string(dec)
		}
	}
	return Text(text)
}

// Text removes byte-order marks and unifies line terminators of text that is
// already valid UTF-8.
func Text(text string) string {
	text = strings.ReplaceAll(text, bom, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
