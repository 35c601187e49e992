package format

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatter_Format(t *testing.T) {
	t.Parallel()

	f := Formatter{Now: func() time.Time { return time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC) }}
	post := f.Format("\n# Great Post\n\nBody text.\n", `Say "hi"`, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")

	assert.True(t, strings.HasPrefix(post, "---\ntitle: \"Blog Post from YouTube Video\"\ndate: 2024-03-09\n"))
	assert.Contains(t, post, "source: \"https://www.youtube.com/watch?v=dQw4w9WgXcQ\"\n")
	assert.Contains(t, post, `original_title: "Say \"hi\""`)
	assert.Contains(t, post, "generated_by: \"YouTube to Blog Converter\"\n---\n\n# Great Post\n\nBody text.\n\n---\n")
	assert.Contains(t, post, `*This blog post was generated from the YouTube video: [Say "hi"](https://www.youtube.com/watch?v=dQw4w9WgXcQ)*`)
	assert.True(t, strings.HasSuffix(post, "*Generated on 2024-03-09 using AI-powered content conversion.*\n"))
}

func TestSafeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		max   int
		want  string
	}{
		{"simple", "Hello World", 0, "hello_world"},
		{"punctuation", "Go: Tips & Tricks!!", 0, "go_tips_tricks"},
		{"collapses separators", "a  -  b\t\tc", 0, "a_-_b_c"},
		{"truncates", "abcdefghij klm", 8, "abcdefgh"},
		{"trims trailing underscore", "abcdefg hij", 8, "abcdefg"},
		{"empty", "", 0, DefaultFilename},
		{"only symbols", "!!!???", 0, DefaultFilename},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SafeFilename(tc.title, tc.max))
		})
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	post := Formatter{}.Format("# Title\n\nFirst paragraph.\n\n## Section\n\nSecond paragraph.", "t", "u")
	assert.Equal(t, "First paragraph. Second paragraph.", strings.SplitN(Summary(post), " *This", 2)[0])

	long := strings.Repeat("word ", 100)
	s := Summary(long)
	assert.LessOrEqual(t, len([]rune(s)), 200)
	assert.True(t, strings.HasSuffix(s, "..."))

	assert.Empty(t, Summary("# Only a heading"))
}

func TestLooksComplete(t *testing.T) {
	t.Parallel()

	assert.False(t, LooksComplete("# Short"))
	assert.False(t, LooksComplete(strings.Repeat("no heading ", 100)))
	assert.True(t, LooksComplete("# Heading\n\n"+strings.Repeat("body text ", 100)))
}
