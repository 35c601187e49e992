// Package lang names and detects natural languages.
package lang

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var englishNames = display.English.Tags()

// DisplayName returns the English name of a BCP 47 code, or the code itself
// when it cannot be parsed.
func DisplayName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := englishNames.Name(tag); name != "" {
		return name
	}
	return code
}

// Base returns the lower-cased primary language subtag of code, so that
// "en-US" and "en" compare equal.
func Base(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}

// Normalize returns the canonical form of code.
func Normalize(code string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

// Detection is the outcome of Detect.
type Detection struct {
	Code       string
	Name       string
	Confidence float64
	Reliable   bool
}

// Detect guesses the language of text. Code is empty when no language could
// be identified.
func Detect(text string) Detection {
	if strings.TrimSpace(text) == "" {
		return Detection{}
	}
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" {
		return Detection{}
	}
	return Detection{
		Code:       code,
		Name:       DisplayName(code),
		Confidence: info.Confidence,
		Reliable:   info.IsReliable(),
	}
}
