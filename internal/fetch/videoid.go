package fetch

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"voxclip/internal/services"
)

var (
	bareIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	urlIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`youtube\.com/watch\?(?:.*&)?v=([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/v/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/shorts/([A-Za-z0-9_-]{11})`),
	}
)

// ExtractVideoID returns the 11-character source id carried by ref. Watch,
// embed, short-link, legacy /v/ and shorts URLs are recognised, as is a bare
// id.
func ExtractVideoID(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", services.Wrap(services.ErrValidation, "fetch", "extract video id", "video reference is empty", nil)
	}
	if bareIDPattern.MatchString(trimmed) {
		return trimmed, nil
	}
	for _, pattern := range urlIDPatterns {
		if match := pattern.FindStringSubmatch(trimmed); match != nil {
			if !idTerminated(trimmed, match) {
				continue
			}
			return match[1], nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "fetch", "extract video id", fmt.Sprintf("could not extract video id from %q", trimmed), nil)
}

// CanonicalURL returns the watch URL for videoID.
func CanonicalURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}

// idTerminated rejects matches where the id continues past 11 characters.
func idTerminated(ref string, match []string) bool {
	idx := strings.Index(ref, match[0])
	if idx < 0 {
		return false
	}
	end := idx + len(match[0])
	if end >= len(ref) {
		return true
	}
	next := ref[end]
	return !(next >= 'A' && next <= 'Z' || next >= 'a' && next <= 'z' || next >= '0' && next <= '9' || next == '_' || next == '-')
}
