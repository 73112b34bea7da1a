package lang

// Lang is a locale tag for prompt selection.
type Lang string

const (
	English Lang = "en"
	Arabic  Lang = "ar"
)

// Detect classifies text as Arabic when it contains at least one character
// from the Arabic Unicode block (U+0600..U+06FF), English otherwise. Empty
// input defaults to English.
func Detect(text string) Lang {
	for _, r := range text {
		if r >= 0x0600 && r <= 0x06FF {
			return Arabic
		}
	}
	return English
}
