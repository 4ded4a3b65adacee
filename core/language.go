package core

// Language is a BCP-47 style tag from the supported catalog (e.g. "hi-IN"),
// or the LanguageAuto sentinel when the session is in auto-detect mode.
type Language string

const (
	// LanguageAuto selects per-turn language detection instead of a fixed tag.
	LanguageAuto Language = "auto"

	// LanguageUnknown is the zero value: no tag is known or detected.
	LanguageUnknown Language = ""

	// SynthesisFallback is substituted when a tag has no synthesis support.
	SynthesisFallback Language = "en-IN"
)

// languageCatalog maps display names to tags for all 22 supported languages.
var languageCatalog = map[string]Language{
	"English": "en-IN", "Hindi": "hi-IN", "Gujarati": "gu-IN",
	"Bengali": "bn-IN", "Tamil": "ta-IN", "Telugu": "te-IN",
	"Kannada": "kn-IN", "Malayalam": "ml-IN", "Marathi": "mr-IN",
	"Punjabi": "pa-IN", "Odia": "od-IN", "Assamese": "as-IN",
	"Maithili": "mai-IN", "Konkani": "kok-IN", "Dogri": "doi-IN",
	"Kashmiri": "ks-IN", "Manipuri": "mni-IN", "Nepali": "ne-IN",
	"Sanskrit": "sa-IN", "Santali": "sat-IN", "Sindhi": "sd-IN", "Urdu": "ur-IN",
}

// synthesisSupported is the subset of the catalog the speech synthesis model
// can voice. Tags outside this set fall back to SynthesisFallback.
var synthesisSupported = map[Language]bool{
	"en-IN": true, "hi-IN": true, "bn-IN": true, "gu-IN": true,
	"kn-IN": true, "ml-IN": true, "mr-IN": true, "od-IN": true,
	"pa-IN": true, "ta-IN": true, "te-IN": true,
}

// LanguageForName resolves a display name ("Tamil") to its tag.
func LanguageForName(name string) (Language, bool) {
	tag, ok := languageCatalog[name]
	return tag, ok
}

// DisplayName returns the catalog name for a tag, or "" when unknown.
func (l Language) DisplayName() string {
	for name, tag := range languageCatalog {
		if tag == l {
			return name
		}
	}
	return ""
}

// Valid reports whether the tag is in the catalog or is the auto sentinel.
func (l Language) Valid() bool {
	if l == LanguageAuto {
		return true
	}
	for _, tag := range languageCatalog {
		if tag == l {
			return true
		}
	}
	return false
}

// IsAuto reports whether the language is the auto-detect sentinel.
func (l Language) IsAuto() bool {
	return l == LanguageAuto
}

// SynthesisLanguage returns the tag to send to the synthesis service: the tag
// itself when voiced, SynthesisFallback otherwise (including auto/unknown).
func SynthesisLanguage(l Language) Language {
	if synthesisSupported[l] {
		return l
	}
	return SynthesisFallback
}
