package units

import (
	"sort"
	"strings"
)

// Unit is one of the canonical measurement units used by listings.
type Unit string

const (
	KG      Unit = "kg"
	Quintal Unit = "Quintal"
	Ton     Unit = "Ton"
)

var kilograms = map[Unit]float64{
	KG:      1,
	Quintal: 100,
	Ton:     1000,
}

// synonyms maps a lower-cased unit word to its canonical unit.
var synonyms = map[string]Unit{
	"kg":         KG,
	"kgs":        KG,
	"kilo":       KG,
	"kilos":      KG,
	"kilogram":   KG,
	"kilograms":  KG,
	"किलो":       KG,
	"किलोग्राम":  KG,
	"কেজি":       KG,
	"కిలో":       KG,
	"கிலோ":       KG,
	"કિલો":       KG,
	"ಕೆಜಿ":       KG,
	"കിലോ":       KG,
	"ਕਿਲੋ":       KG,
	"کلو":        KG,
	"କିଲୋ":       KG,
	"qtl":        Quintal,
	"quintal":    Quintal,
	"quintals":   Quintal,
	"kwintal":    Quintal,
	"क्विंटल":    Quintal,
	"কুইন্টাল":   Quintal,
	"క్వింటాళ్ల": Quintal,
	"క్వింటాల్":  Quintal,
	"குவிண்டால்": Quintal,
	"ક્વિન્ટલ":   Quintal,
	"ಕ್ವಿಂಟಾಲ್":  Quintal,
	"ക്വിന്റൽ":   Quintal,
	"ਕੁਇੰਟਲ":     Quintal,
	"کوئنٹل":     Quintal,
	"କ୍ୱିଣ୍ଟାଲ":  Quintal,
	"ton":        Ton,
	"tons":       Ton,
	"tonne":      Ton,
	"tonnes":     Ton,
	"टन":         Ton,
	"টন":         Ton,
	"టన్":        Ton,
	"டன்":        Ton,
	"ટન":         Ton,
	"ಟನ್":        Ton,
	"ടൺ":         Ton,
	"ਟਨ":         Ton,
	"ٹن":         Ton,
	"ଟନ୍":        Ton,
}

// Canonical maps a free-form unit word to a canonical unit. Matching is
// case-insensitive and accepts the native-script words listings use.
func Canonical(word string) (Unit, bool) {
	key := strings.ToLower(strings.TrimSpace(word))
	if key == "" {
		return "", false
	}
	u, ok := synonyms[key]
	return u, ok
}

// Words returns every recognised unit word, longest first, so that callers
// building alternations match "kilograms" before "kilo".
func Words() []string {
	out := make([]string, 0, len(synonyms))
	for w := range synonyms {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// Convert expresses quantity, measured in from, in the unit to. When the
// units match or either is not recognised the quantity is returned as is.
func Convert(quantity float64, from, to string) float64 {
	fromUnit, okFrom := Canonical(from)
	toUnit, okTo := Canonical(to)
	if !okFrom || !okTo || fromUnit == toUnit {
		return quantity
	}
	return quantity * kilograms[fromUnit] / kilograms[toUnit]
}

// Total prices quantity (in from) at pricePerUnit per to.
func Total(quantity float64, from string, pricePerUnit float64, to string) float64 {
	return Convert(quantity, from, to) * pricePerUnit
}
