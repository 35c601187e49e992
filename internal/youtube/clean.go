package youtube

import (
	"regexp"
	"strings"
)

var (
	annotationPattern = regexp.MustCompile(`(?i)\s*\[(music|applause|laughter)\]\s*`)
	spaceBeforePunct  = regexp.MustCompile(`\s+([.,?!])`)
)

// CleanTranscript removes caption annotations such as [Music] and collapses
// whitespace.
func CleanTranscript(text string) string {
	if text == "" {
		return ""
	}
	cleaned := annotationPattern.ReplaceAllString(text, " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = spaceBeforePunct.ReplaceAllString(cleaned, "$1")
	return strings.TrimSpace(cleaned)
}
