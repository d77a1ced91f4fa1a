package resolver

import (
	"net/url"
	"strings"
)

// IsURL reports whether the input looks like a link rather than a
// search query.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "www.")
}

// IsYouTubeURL reports whether a URL points at YouTube.
func IsYouTubeURL(s string) bool {
	return strings.Contains(s, "youtube.com") || strings.Contains(s, "youtu.be")
}

// ExtractVideoID pulls the video ID out of the common YouTube URL
// shapes. Returns "" for anything it does not recognize.
func ExtractVideoID(rawURL string) string {
	if !IsYouTubeURL(rawURL) {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	if strings.Contains(rawURL, "youtu.be") {
		return strings.TrimPrefix(parsed.Path, "/")
	}
	if id := parsed.Query().Get("v"); id != "" {
		return id
	}
	if strings.Contains(parsed.Path, "/embed/") {
		parts := strings.SplitN(parsed.Path, "/embed/", 2)
		if len(parts) == 2 {
			return parts[1]
		}
	}
	if strings.Contains(parsed.Path, "/shorts/") {
		parts := strings.SplitN(parsed.Path, "/shorts/", 2)
		if len(parts) == 2 {
			return parts[1]
		}
	}
	return ""
}
