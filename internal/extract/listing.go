package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"mandi/internal/numeral"
	"mandi/internal/units"
)

// ErrIncompleteListing is returned when a listing description lacks a
// quantity or a price that can be read without guessing.
var ErrIncompleteListing = errors.New("listing description needs a quantity and a price")

const defaultProduceName = "Agricultural Produce"

// Bags is the unit recorded for listings sold by the sack. It has no
// weight conversion.
const Bags = "bags"

// ListingDraft is what a free-text listing description yields.
type ListingDraft struct {
	ProduceName  string
	Quantity     float64
	Unit         string
	PricePerUnit float64
	Description  string
}

var (
	bagsRe = regexp.MustCompile(`(?i)` + number + `\s*(bags|bag|sacks|sack|बोरियां|बोरी|বস্তা|సంచులు|மூட்டை|ಚೀಲ)`)

	listingPricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bfor\s*₹?\s*` + number),
		regexp.MustCompile(`(?i)` + number + `\s*rate\b`),
	}

	produce = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"Rice", regexp.MustCompile(`(?i)(rice|paddy|चावल|धान|ধান|চাল|బియ్యం|அரிசி|ચોખા|چاول|ಅಕ್ಕಿ|ଚାଉଳ|അരി|ਚੌਲ)`)},
		{"Wheat", regexp.MustCompile(`(?i)(wheat|गेहूं|गेहूँ|গম|గోధుమ|கோதுமை|ઘઉં|گندم|ಗೋಧಿ|ଗହମ|ਕਣਕ)`)},
		{"Onion", regexp.MustCompile(`(?i)(onion|प्याज|পেঁয়াজ|ఉల్లిపాయ|வெங்காயம்|ડુંગળી|پیاز|ಈರುಳ್ಳಿ|ପିଆଜ)`)},
		{"Potato", regexp.MustCompile(`(?i)(potato|आलू|আলু|బంగాళాదుంప|உருளைக்கிழங்கு|બટાકા|آلو|ಆಲೂಗಡ್ಡೆ|ଆଳୁ)`)},
		{"Tomato", regexp.MustCompile(`(?i)(tomato|टमाटर|টমেটো|టమోటా|தக்காளி|ટામેટા|ٹماٹر|ಟೊಮ್ಯಾಟೊ|ଟମାଟୋ)`)},
		{"Cotton", regexp.MustCompile(`(?i)(cotton|कपास|তুলা|పత్తి|பருத்தி|કપાસ|کپاس|ಹತ್ತಿ|କପା)`)},
		{"Soybean", regexp.MustCompile(`(?i)(soybean|soya|सोयाबीन|সয়াবিন|సోయాబీన్|சோயாபீன்|સોયાબીન|سویابین|ಸೋಯಾಬೀನ್|ସୋୟାବିନ)`)},
		{"Maize", regexp.MustCompile(`(?i)(maize|corn|मक्का|ভুট্টা|మొక్కజొన్న|சோளம்|મકાઈ|مکئی|ಜೋಳ|ମକା)`)},
		{"Sugarcane", regexp.MustCompile(`(?i)(sugarcane|गन्ना|আখ|చెరకు|கரும்பு|શેરડી|گنا|ಕಬ್ಬು|ଆଖୁ)`)},
		{"Turmeric", regexp.MustCompile(`(?i)(turmeric|हल्दी|হলুদ|పసుపు|மஞ்சள்|હળદર|ہلدی|ಅರಿಶಿನ|ହଳଦୀ)`)},
		{"Chilli", regexp.MustCompile(`(?i)(chilli|chili|mirchi|मिर्च|লঙ্কা|మిర్చి|மிளகாய்|મરચું|ಮೆಣಸಿನಕಾಯಿ)`)},
		{"Mustard", regexp.MustCompile(`(?i)(mustard|सरसों|সরিষা|ఆవాలు|கடுகு|રાઈ|ಸಾಸಿವೆ)`)},
	}
)

// Listing reads a seller's free-text listing such as
// "50 quintal rice for 3000 rupees". Quantity and price must both be
// present with explicit markers; the produce name falls back to a generic
// label and the unit to quintal.
func Listing(text string) (ListingDraft, error) {
	if len(strings.TrimSpace(text)) < 5 {
		return ListingDraft{}, ErrIncompleteListing
	}
	normalized := numeral.Normalize(text)

	draft := ListingDraft{ProduceName: defaultProduceName, Unit: string(units.Quintal)}
	for _, p := range produce {
		if p.re.MatchString(text) {
			draft.ProduceName = p.name
			break
		}
	}

	if q, word, ok := findQuantity(normalized); ok {
		draft.Quantity = q
		if u, known := units.Canonical(word); known {
			draft.Unit = string(u)
		}
	} else if m := bagsRe.FindStringSubmatch(normalized); m != nil {
		if v, ok := parseBounded(m[1], maxQuantity); ok {
			draft.Quantity = v
			draft.Unit = Bags
		}
	}

	if v, ok := Price(normalized); ok {
		draft.PricePerUnit = v
	} else {
		masked := maskQuantities(bagsRe.ReplaceAllStringFunc(normalized, blank))
		for _, re := range listingPricePatterns {
			if m := re.FindStringSubmatch(masked); m != nil {
				if v, ok := parseBounded(m[1], maxPrice); ok {
					draft.PricePerUnit = v
					break
				}
			}
		}
	}

	if draft.Quantity == 0 || draft.PricePerUnit == 0 {
		return ListingDraft{}, ErrIncompleteListing
	}
	draft.Description = fmt.Sprintf("%s %s of %s at ₹%s per %s",
		formatNumber(draft.Quantity), draft.Unit, draft.ProduceName, formatNumber(draft.PricePerUnit), draft.Unit)
	return draft, nil
}

func blank(s string) string { return strings.Repeat(" ", len(s)) }

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
