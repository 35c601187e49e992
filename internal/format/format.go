// Package format turns generated text into a publishable Markdown blog post.
package format

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	generatorName = "YouTube to Blog Converter"
	dateLayout    = "2006-01-02"

	// DefaultFilename is used when a title yields no usable characters.
	DefaultFilename = "youtube_blog"

	summaryTarget = 150
	summaryLimit  = 200
)

// Formatter wraps generated content in front matter and an attribution
// footer. The zero value is ready to use.
type Formatter struct {
	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (f Formatter) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// Format returns the complete blog post for content generated from the video
// titled title at sourceURL.
func (f Formatter) Format(content, title, sourceURL string) string {
	date := f.now().Format(dateLayout)

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: \"Blog Post from YouTube Video\"\n")
	fmt.Fprintf(&b, "date: %s\n", date)
	fmt.Fprintf(&b, "source: %s\n", quote(sourceURL))
	fmt.Fprintf(&b, "original_title: %s\n", quote(title))
	fmt.Fprintf(&b, "generated_by: %s\n", quote(generatorName))
	b.WriteString("---\n\n")

	b.WriteString(strings.TrimSpace(content))
	b.WriteString("\n\n---\n\n")
	fmt.Fprintf(&b, "*This blog post was generated from the YouTube video: [%s](%s)*\n\n", title, sourceURL)
	fmt.Fprintf(&b, "*Generated on %s using AI-powered content conversion.*\n", date)
	return b.String()
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
	underscoreRun       = regexp.MustCompile(`_+`)
)

// SafeFilename derives a lower-case file name stem of at most maxLength
// bytes from title. A non-positive maxLength means 50.
func SafeFilename(title string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = 50
	}

	name := unsafeFilenameChars.ReplaceAllString(title, "")
	name = whitespaceRun.ReplaceAllString(name, "_")
	name = underscoreRun.ReplaceAllString(name, "_")
	if len(name) > maxLength {
		name = name[:maxLength]
	}
	name = strings.Trim(strings.ToLower(name), "_")

	if name == "" {
		return DefaultFilename
	}
	return name
}

// Summary returns roughly the first 150 characters of body text in post,
// skipping front matter, headings and rules, capped at 200 characters.
func Summary(post string) string {
	lines := strings.Split(strings.TrimSpace(post), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "---" {
		for i := 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "---" {
				lines = lines[i+1:]
				break
			}
		}
	}

	var parts []string
	length := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "---") {
			continue
		}
		parts = append(parts, line)
		length += len(line) + 1
		if length > summaryTarget {
			break
		}
	}

	summary := strings.Join(parts, " ")
	if utf8.RuneCountInString(summary) > summaryLimit {
		runes := []rune(summary)
		summary = string(runes[:summaryLimit-3]) + "..."
	}
	return summary
}

// LooksComplete reports whether post has a heading and enough body text to
// be a real article.
func LooksComplete(post string) bool {
	trimmed := strings.TrimSpace(post)
	if len(trimmed) < 500 {
		return false
	}
	for _, line := range strings.Split(trimmed, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			return true
		}
	}
	return false
}
