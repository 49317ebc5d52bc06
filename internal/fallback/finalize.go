package fallback

import (
	"regexp"
	"strings"
	"unicode"
)

var finalizePatterns = []*regexp.Regexp{
	// explicit vocabulary
	regexp.MustCompile(`(?i)\b(finali[sz]e[ds]?|finalising|finalizing|confirm(ed)? (the )?(deal|order|terms)|close (the )?deal|seal (the |this )?deal|complete (the )?deal|deal (is )?(done|pakka|final|confirmed|closed))\b`),
	regexp.MustCompile(`(?i)\b(pakka kar\w*|sauda pakka|deal pakki|sahi hai|theek hai|thik hai)\b`),
	// affirmative combined with a closing word
	regexp.MustCompile(`(?i)\b(yes|yeah|han|haan|ok|okay|alright|thik|bas|sahi|perfect|good)\b[\s,!.]+(done|final|confirm(ed)?|pakka)\b`),
	regexp.MustCompile(`(?i)\b(agree|accept)(d|ed)?\b.*\b(terms|price|deal|offer)\b`),
	// action phrases
	regexp.MustCompile(`(?i)\b(let'?s do it|let'?s go ahead|let'?s (finalize|close|confirm|seal)|go ahead|make it happen|seal it|lock it|wrap it up|i'?ll take it|send (me )?the invoice)\b`),
	// strong generic affirmatives
	regexp.MustCompile(`(?i)\b(sounds (good|great|fair)|yep|yup|absolutely|perfect|works for me)\b`),
}

// Single-word confirmations, matched when they are the whole message.
var confirmationTokens = map[string]struct{}{
	"done": {}, "deal": {}, "final": {}, "confirm": {}, "confirmed": {}, "sold": {},
	"ok": {}, "okay": {}, "yes": {}, "yeah": {}, "agreed": {}, "accepted": {},
	"han": {}, "haan": {}, "pakka": {}, "theek": {}, "thik": {}, "bilkul": {}, "chalo": {},
}

// Native-script affirmatives, matched as whole words anywhere in a message.
var nativeAffirmatives = []string{
	"हाँ", "हां", "ठीक है", "पक्का", "सौदा पक्का", "मंजूर", "ठीक आहे", "होय", "चालेल",
	"হ্যাঁ", "ঠিক আছে", "পাকা", "রাজি",
	"అవును", "సరే", "ఒప్పుకుంటాను",
	"ஆம்", "சரி", "ஒப்புக்கொள்கிறேன்",
	"ಹೌದು", "ಸರಿ",
	"അതെ", "ശരി",
	"ਹਾਂ", "ਠੀਕ ਹੈ", "ਪੱਕਾ",
	"હા", "બરાબર", "પાકું",
	"ہاں", "ٹھیک ہے", "منظور",
	"ହଁ", "ଠିକ ଅଛି",
}

// Negation words that cancel an affirmative in the same clause.
var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "cannot": {}, "can't": {}, "cant": {},
	"don't": {}, "dont": {}, "won't": {}, "wont": {}, "isn't": {}, "doesn't": {},
	"nahi": {}, "nahin": {}, "nai": {}, "mat": {},
	"नहीं": {}, "नही": {}, "मत": {}, "नाही": {},
	"না": {}, "নয়": {}, "కాదు": {}, "వద్దు": {}, "இல்லை": {}, "வேண்டாம்": {},
	"ಇಲ್ಲ": {}, "ഇല്ല": {}, "ਨਹੀਂ": {}, "નથી": {}, "ના": {}, "نہیں": {}, "ନାହିଁ": {},
}

// ShouldFinalize reports whether msg reads as the sender closing the deal.
// It is independent of intent matching and runs on every message. A match
// inside a clause that also carries a negation ("I cannot accept this price")
// does not count.
func ShouldFinalize(msg string) bool {
	text := strings.ToLower(strings.TrimSpace(msg))
	text = strings.ReplaceAll(text, "’", "'")
	if text == "" {
		return false
	}

	words := splitWords(text)
	if len(words) == 1 {
		if _, ok := confirmationTokens[words[0]]; ok {
			return true
		}
	}

	for _, re := range finalizePatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if !negated(clauseAround(text, loc[0], loc[1])) {
				return true
			}
		}
	}

	for _, clause := range strings.FieldsFunc(text, isClauseBreak) {
		clauseWords := splitWords(clause)
		if hasNegator(clauseWords) {
			continue
		}
		joined := " " + strings.Join(clauseWords, " ") + " "
		for _, phrase := range nativeAffirmatives {
			if strings.Contains(joined, " "+phrase+" ") {
				return true
			}
		}
	}
	return false
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func isClauseBreak(r rune) bool {
	return strings.ContainsRune(",.;!?।|", r)
}

// clauseAround widens [start, end) to the punctuation-delimited clause
// containing it.
func clauseAround(text string, start, end int) string {
	from := strings.LastIndexFunc(text[:start], isClauseBreak) + 1
	to := len(text)
	if i := strings.IndexFunc(text[end:], isClauseBreak); i >= 0 {
		to = end + i
	}
	return text[from:to]
}

func negated(clause string) bool {
	return hasNegator(splitWords(clause))
}

func hasNegator(words []string) bool {
	for _, w := range words {
		if _, ok := negators[w]; ok {
			return true
		}
	}
	return false
}
