package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var youtubeHosts = map[string]bool{
	"youtube.com":          true,
	"www.youtube.com":      true,
	"m.youtube.com":        true,
	"music.youtube.com":    true,
	"youtube-nocookie.com": true,
	"youtu.be":             true,
	"www.youtu.be":         true,
}

// ParseVideoID extracts the 11-character video id from the supported URL
// forms: watch?v=, youtu.be/, embed/, v/ and shorts/.
func ParseVideoID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if !youtubeHosts[host] {
		return "", fmt.Errorf("%w: %s is not a YouTube host", ErrInvalidURL, host)
	}

	var id string
	path := strings.Trim(u.Path, "/")
	switch {
	case strings.HasSuffix(host, "youtu.be"):
		id = firstSegment(path)
	case path == "watch":
		id = u.Query().Get("v")
	case strings.HasPrefix(path, "embed/"):
		id = firstSegment(strings.TrimPrefix(path, "embed/"))
	case strings.HasPrefix(path, "v/"):
		id = firstSegment(strings.TrimPrefix(path, "v/"))
	case strings.HasPrefix(path, "shorts/"):
		id = firstSegment(strings.TrimPrefix(path, "shorts/"))
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: no video id in %q", ErrInvalidURL, raw)
	}
	return id, nil
}

// IsValidURL reports whether raw contains a video id.
func IsValidURL(raw string) bool {
	_, err := ParseVideoID(raw)
	return err == nil
}

// WatchURL returns the canonical watch URL of a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func firstSegment(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
