// Package extract pulls price, quantity and unit mentions out of free-text
// negotiation messages. Every function is total: values that cannot be read
// with confidence are reported as absent instead of guessed.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"mandi/internal/numeral"
	"mandi/internal/units"
)

const (
	maxPrice    = 1_000_000
	maxQuantity = 100_000
)

// Slots is everything one message says about the offer. Zero values mean
// the message did not mention that slot.
type Slots struct {
	Price    float64
	Quantity float64
	Unit     units.Unit
}

func (s Slots) HasPrice() bool    { return s.Price > 0 }
func (s Slots) HasQuantity() bool { return s.Quantity > 0 }
func (s Slots) HasUnit() bool     { return s.Unit != "" }

// number accepts plain digits and comma grouping in both the western
// (3,500 / 1,000,000) and the Indian (1,75,000) style.
const number = `(\d{1,3}(?:,\d{2,3})*,\d{3}\b(?:\.\d+)?|\d+(?:\.\d+)?)`

var (
	genericUnitWords = []string{"units", "unit"}
	quantityRe       = regexp.MustCompile(`(?i)` + number + `\s*(` + alternation(append(units.Words(), genericUnitWords...)) + `)`)
	quantityLabelRe  = regexp.MustCompile(`(?i)\bquantity\s*(?:is|of|:|=)?\s*` + number)
	barePriceRe      = regexp.MustCompile(`^₹?\s*` + number + `\s*[.!?]*$`)

	// Ordered: the first pattern with an in-range match wins.
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`₹\s*` + number),
		regexp.MustCompile(`(?i)\b(?:rs\.?|inr)\s*` + number),
		regexp.MustCompile(`(?i)` + number + `\s*(?:rupees|rupee|rs\b|inr\b|/-|रुपये|रुपए|रुपया|रुपयांना|টাকায়|টাকার|টাকা|రూపాయలు|ரூபாய்|રૂપિયા|روپے|ರೂಪಾಯಿ|രൂപ|ਰੁਪਏ|ଟଙ୍କା|taka)`),
		regexp.MustCompile(`(?i)\b(?:price|rate|daam|dam|kimat|keemat|bhav)\s*(?:is|of|:|=)?\s*₹?\s*` + number),
		regexp.MustCompile(`(?i)` + number + `\s*(?:/|per\b)`),
		regexp.MustCompile(`(?i)\boffer(?:ing)?\s*(?:is|of|:)?\s*₹?\s*` + number),
		regexp.MustCompile(`(?i)` + number + `\s*only\b`),
		regexp.MustCompile(`(?i)(?:\bat|@)\s*₹?\s*` + number),
	}
)

// Price returns the price a message offers or asks for.
//
// A number standing alone is a price. Otherwise quantity mentions are masked
// out and the currency, "price N", "N per", "offer N" and "N only" phrases are
// tried in order. Messages that merely contain several unlabelled numbers
// yield no price.
func Price(msg string) (float64, bool) {
	text := numeral.Normalize(msg)
	if m := barePriceRe.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		if v, ok := parseBounded(m[1], maxPrice); ok {
			return v, true
		}
	}

	masked := maskQuantities(text)
	for _, re := range pricePatterns {
		for _, m := range re.FindAllStringSubmatch(masked, -1) {
			if v, ok := parseBounded(m[1], maxPrice); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// Quantity returns a quantity written as a number followed by a unit word,
// or as "quantity N".
func Quantity(msg string) (float64, bool) {
	text := numeral.Normalize(msg)
	if q, _, ok := findQuantity(text); ok {
		return q, true
	}
	for _, m := range quantityLabelRe.FindAllStringSubmatch(text, -1) {
		if v, ok := parseBounded(m[1], maxQuantity); ok {
			return v, true
		}
	}
	return 0, false
}

// Unit returns the canonical unit of the quantity mention in msg. Generic
// "units" and unrecognised words are absent.
func Unit(msg string) (units.Unit, bool) {
	_, word, ok := findQuantity(numeral.Normalize(msg))
	if !ok {
		return "", false
	}
	return units.Canonical(word)
}

// FromMessage runs all three extractors.
func FromMessage(msg string) Slots {
	var s Slots
	if v, ok := Price(msg); ok {
		s.Price = v
	}
	if v, ok := Quantity(msg); ok {
		s.Quantity = v
	}
	if u, ok := Unit(msg); ok {
		s.Unit = u
	}
	return s
}

type span struct {
	start, end  int
	value, word string
}

func quantitySpans(text string) []span {
	matches := quantityRe.FindAllStringSubmatchIndex(text, -1)
	out := make([]span, 0, len(matches))
	for _, m := range matches {
		if !boundaryAfter(text, m[1]) {
			continue
		}
		out = append(out, span{
			start: m[0],
			end:   m[1],
			value: text[m[2]:m[3]],
			word:  text[m[4]:m[5]],
		})
	}
	return out
}

func findQuantity(text string) (float64, string, bool) {
	for _, s := range quantitySpans(text) {
		if v, ok := parseBounded(s.value, maxQuantity); ok {
			return v, s.word, true
		}
	}
	return 0, "", false
}

// maskQuantities blanks every quantity mention, including "quantity N", so
// its number can never be read as a price.
func maskQuantities(text string) string {
	var ranges [][2]int
	for _, s := range quantitySpans(text) {
		ranges = append(ranges, [2]int{s.start, s.end})
	}
	for _, m := range quantityLabelRe.FindAllStringIndex(text, -1) {
		ranges = append(ranges, [2]int{m[0], m[1]})
	}
	if len(ranges) == 0 {
		return text
	}
	masked := []byte(text)
	for _, r := range ranges {
		for i := r[0]; i < r[1]; i++ {
			masked[i] = ' '
		}
	}
	return string(masked)
}

// boundaryAfter reports whether a unit word ending at idx is a whole word,
// so "50 tonnage" or "5 kgx" is not read as a quantity.
func boundaryAfter(text string, idx int) bool {
	if idx >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[idx:])
	return !unicode.IsLetter(r) && !unicode.IsMark(r)
}

func parseBounded(raw string, upper float64) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if v <= 0 || v >= upper {
		return 0, false
	}
	return v, true
}

func alternation(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return strings.Join(quoted, "|")
}
