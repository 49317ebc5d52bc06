// Package locale enumerates the supported languages and resolves free-form
// language tags to one of them.
package locale

import (
	"sort"
	"strings"
)

// Code identifies a supported language.
type Code string

const (
	English   Code = "en"
	Hindi     Code = "hi"
	Bengali   Code = "bn"
	Telugu    Code = "te"
	Marathi   Code = "mr"
	Tamil     Code = "ta"
	Gujarati  Code = "gu"
	Urdu      Code = "ur"
	Kannada   Code = "kn"
	Odia      Code = "or"
	Malayalam Code = "ml"
	Punjabi   Code = "pa"
	Assamese  Code = "as"
	Maithili  Code = "mai"
	Sanskrit  Code = "sa"
	Konkani   Code = "kok"
	Manipuri  Code = "mni"
	Nepali    Code = "ne"
	Bodo      Code = "brx"
	Dogri     Code = "doi"
	Kashmiri  Code = "ks"
	Santali   Code = "sat"
	Sindhi    Code = "sd"
)

// Default is the language used when none is configured.
const Default = Hindi

// Language describes one supported language.
type Language struct {
	Code       Code
	Name       string
	NativeName string
	// SpeechTag is the BCP 47 tag browsers use for speech in this language.
	SpeechTag string
}

var languages = map[Code]Language{
	English:   {English, "English", "English", "en-IN"},
	Hindi:     {Hindi, "Hindi", "हिन्दी", "hi-IN"},
	Bengali:   {Bengali, "Bengali", "বাংলা", "bn-IN"},
	Telugu:    {Telugu, "Telugu", "తెలుగు", "te-IN"},
	Marathi:   {Marathi, "Marathi", "मराठी", "mr-IN"},
	Tamil:     {Tamil, "Tamil", "தமிழ்", "ta-IN"},
	Gujarati:  {Gujarati, "Gujarati", "ગુજરાતી", "gu-IN"},
	Urdu:      {Urdu, "Urdu", "اردو", "ur-IN"},
	Kannada:   {Kannada, "Kannada", "ಕನ್ನಡ", "kn-IN"},
	Odia:      {Odia, "Odia", "ଓଡ଼ିଆ", "or-IN"},
	Malayalam: {Malayalam, "Malayalam", "മലയാളം", "ml-IN"},
	Punjabi:   {Punjabi, "Punjabi", "ਪੰਜਾਬੀ", "pa-IN"},
	Assamese:  {Assamese, "Assamese", "অসমীয়া", "as-IN"},
	Maithili:  {Maithili, "Maithili", "मैथिली", "hi-IN"},
	Sanskrit:  {Sanskrit, "Sanskrit", "संस्कृतम्", "hi-IN"},
	Konkani:   {Konkani, "Konkani", "कोंकणी", "gom-IN"},
	Manipuri:  {Manipuri, "Manipuri", "মৈতৈলোন্", "mni-IN"},
	Nepali:    {Nepali, "Nepali", "नेपाली", "ne-NP"},
	Bodo:      {Bodo, "Bodo", "बड़ो", "hi-IN"},
	Dogri:     {Dogri, "Dogri", "डोगरी", "hi-IN"},
	Kashmiri:  {Kashmiri, "Kashmiri", "کٲشُر", "ks-IN"},
	Santali:   {Santali, "Santali", "ᱥᱟᱱᱛᱟᱲᱤ", "hi-IN"},
	Sindhi:    {Sindhi, "Sindhi", "سنڌي", "sd-IN"},
}

// Supported returns every supported language sorted by code.
func Supported() []Language {
	out := make([]Language, 0, len(languages))
	for _, l := range languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// IsSupported reports whether code names a supported language exactly.
func IsSupported(code Code) bool {
	_, ok := languages[code]
	return ok
}

// Resolve maps a free-form tag such as "HI", "hi-IN" or "bn_BD" to a
// supported code. Anything unrecognised resolves to English.
func Resolve(tag string) Code {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(normalized, "-_"); i >= 0 {
		normalized = normalized[:i]
	}
	code := Code(normalized)
	if IsSupported(code) {
		return code
	}
	return English
}

// Lookup returns the description of code, falling back to English.
func Lookup(code Code) Language {
	if l, ok := languages[code]; ok {
		return l
	}
	return languages[English]
}
