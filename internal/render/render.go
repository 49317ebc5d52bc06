// Package render fills response templates from the conversation context and
// the slots extracted from the current message.
package render

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"mandi/internal/extract"
	"mandi/internal/units"
)

// Slot names a template may reference as {name}.
const (
	SlotPrice             = "price"
	SlotOfferedPrice      = "offeredPrice"
	SlotListingPrice      = "listingPrice"
	SlotMarketPrice       = "marketPrice"
	SlotQuantity          = "quantity"
	SlotUnit              = "unit"
	SlotAgreedPrice       = "agreedPrice"
	SlotTotalAmount       = "totalAmount"
	SlotMentionedQuantity = "mentionedQuantity"
	SlotMentionedUnit     = "mentionedUnit"
	SlotEstimatedTotal    = "estimatedTotal"
	SlotCounterPrice      = "counterPrice"
	SlotProduceName       = "produceName"
)

var known = map[string]struct{}{
	SlotPrice: {}, SlotOfferedPrice: {}, SlotListingPrice: {}, SlotMarketPrice: {},
	SlotQuantity: {}, SlotUnit: {}, SlotAgreedPrice: {}, SlotTotalAmount: {},
	SlotMentionedQuantity: {}, SlotMentionedUnit: {}, SlotEstimatedTotal: {},
	SlotCounterPrice: {}, SlotProduceName: {},
}

const counterRatio = 0.9

// Context is the caller-owned state of one negotiation turn. Zero numbers
// and empty strings are absent.
type Context struct {
	ListingPrice      float64 `json:"listingPrice,omitempty"`
	MarketPrice       float64 `json:"marketPrice,omitempty"`
	Quantity          float64 `json:"quantity,omitempty"`
	Unit              string  `json:"unit,omitempty"`
	AgreedPrice       float64 `json:"agreedPrice,omitempty"`
	OfferedPrice      float64 `json:"offeredPrice,omitempty"`
	MentionedQuantity float64 `json:"mentionedQuantity,omitempty"`
	MentionedUnit     string  `json:"mentionedUnit,omitempty"`
	ProduceName       string  `json:"produceName,omitempty"`
}

var (
	placeholderRe = regexp.MustCompile(`\{([^{}]*)\}`)
	emptyParenRe  = regexp.MustCompile(`\(\s*/?\s*\)`)
	spacePunctRe  = regexp.MustCompile(`\s+([.,!?:;।؟۔])`)
	spaceRunRe    = regexp.MustCompile(`\s+`)
)

// perUnitRe finds "per {unit}" in the scripts the catalogs use; the word goes
// with the unit when the unit is absent.
var perUnitRe = regexp.MustCompile(`(?i)(?:\bper|प्रति|প্রতি|ప్రతి|પ્રતિ|ਪ੍ਰਤੀ)\s*(\{(?:unit|mentionedUnit)\})`)

// KnownSlot reports whether name is a slot Render can fill.
func KnownSlot(name string) bool {
	_, ok := known[name]
	return ok
}

// Placeholders lists the slot names referenced by tmpl in order.
func Placeholders(tmpl string) []string {
	matches := placeholderRe.FindAllStringSubmatch(tmpl, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// Values computes every slot that has a usable value for this turn.
// Numeric slots are present only when they print as a positive number, so a
// value too small to show never renders as "0".
func Values(ctx Context, slots extract.Slots) map[string]string {
	values := make(map[string]string, len(known))
	setNumber := func(name string, v float64) {
		if math.IsInf(v, 0) || math.IsNaN(v) || math.Round(v*100) <= 0 {
			return
		}
		values[name] = FormatNumber(v)
	}
	setText := func(name, v string) {
		if v = strings.TrimSpace(v); v != "" {
			values[name] = v
		}
	}

	mentionedQuantity := firstPositive(slots.Quantity, ctx.MentionedQuantity)
	mentionedUnit := string(slots.Unit)
	if mentionedUnit == "" {
		mentionedUnit = ctx.MentionedUnit
	}
	price := firstPositive(slots.Price, ctx.OfferedPrice)
	agreed := firstPositive(ctx.AgreedPrice, ctx.ListingPrice)

	setNumber(SlotListingPrice, ctx.ListingPrice)
	setNumber(SlotMarketPrice, ctx.MarketPrice)
	setNumber(SlotQuantity, ctx.Quantity)
	setText(SlotUnit, ctx.Unit)
	setText(SlotProduceName, ctx.ProduceName)
	setNumber(SlotPrice, price)
	setNumber(SlotOfferedPrice, firstPositive(ctx.OfferedPrice, slots.Price))
	setNumber(SlotAgreedPrice, agreed)
	setNumber(SlotMentionedQuantity, mentionedQuantity)
	if mentionedUnit != "" {
		setText(SlotMentionedUnit, mentionedUnit)
	} else {
		setText(SlotMentionedUnit, ctx.Unit)
	}

	if mentionedQuantity > 0 && ctx.ListingPrice > 0 {
		setNumber(SlotEstimatedTotal, math.Round(units.Total(mentionedQuantity, mentionedUnit, ctx.ListingPrice, ctx.Unit)))
	}

	quantity := ctx.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	setNumber(SlotTotalAmount, agreed*quantity)

	if base := firstPositive(ctx.ListingPrice, price); base > 0 {
		setNumber(SlotCounterPrice, math.Round(base*counterRatio))
	}
	return values
}

// Render substitutes every {slot} in tmpl in a single pass. Slots without a
// value, and unknown slot names, become empty, and a "per" left without its
// unit is dropped; the text is then tidied so no bare currency sign or empty
// bracket remains.
func Render(tmpl string, ctx Context, slots extract.Slots) string {
	values := Values(ctx, slots)
	tmpl = perUnitRe.ReplaceAllStringFunc(tmpl, func(phrase string) string {
		token := perUnitRe.FindStringSubmatch(phrase)[1]
		if values[token[1:len(token)-1]] == "" {
			return ""
		}
		return phrase
	})
	filled := placeholderRe.ReplaceAllStringFunc(tmpl, func(token string) string {
		return values[token[1:len(token)-1]]
	})
	return tidy(filled)
}

func tidy(text string) string {
	text = dropDanglingCurrency(text)
	text = emptyParenRe.ReplaceAllString(text, "")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = spacePunctRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// dropDanglingCurrency removes each ₹ that is not followed, after optional
// spaces, by a digit.
func dropDanglingCurrency(text string) string {
	if !strings.ContainsRune(text, '₹') {
		return text
	}
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	for i, r := range runes {
		if r == '₹' {
			j := i + 1
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
			if j == len(runes) || !unicode.IsDigit(runes[j]) {
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatNumber prints whole numbers without a fraction and everything else
// with at most two decimals.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
