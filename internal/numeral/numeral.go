// Package numeral rewrites regional digit glyphs to ASCII so numeric
// patterns can run on text written in any supported script.
package numeral

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// zeros lists the code point of digit zero for every numeral alphabet that
// is folded to ASCII. Each alphabet is ten contiguous code points.
var zeros = []rune{
	0x0660, // Arabic-Indic
	0x06F0, // Extended Arabic-Indic (Urdu, Sindhi, Kashmiri)
	0x0966, // Devanagari
	0x09E6, // Bengali, Assamese, Manipuri
	0x0A66, // Gurmukhi
	0x0AE6, // Gujarati
	0x0B66, // Oriya
	0x0BE6, // Tamil
	0x0C66, // Telugu
	0x0CE6, // Kannada
	0x0D66, // Malayalam
	0x1C50, // Ol Chiki (Santali)
	0xABF0, // Meetei Mayek
	0xFF10, // full-width
}

var toASCII = runes.Map(mapDigit)

// Normalize returns text with every supported regional digit replaced by
// its ASCII equivalent. All other characters are left unchanged.
func Normalize(text string) string {
	if text == "" {
		return text
	}
	out, _, err := transform.String(toASCII, text)
	if err != nil {
		// runes.Map never fails on valid input; keep the original on a
		// malformed byte sequence.
		return text
	}
	return out
}

// Digit reports the ASCII value of r when r is a digit in any supported
// alphabet, including ASCII itself.
func Digit(r rune) (int, bool) {
	if r >= '0' && r <= '9' {
		return int(r - '0'), true
	}
	for _, zero := range zeros {
		if r >= zero && r <= zero+9 {
			return int(r - zero), true
		}
	}
	return 0, false
}

func mapDigit(r rune) rune {
	if r < 0x0660 {
		return r
	}
	if d, ok := Digit(r); ok {
		return '0' + rune(d)
	}
	return r
}
