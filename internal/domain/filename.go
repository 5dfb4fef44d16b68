package domain

import (
	"fmt"
	"strings"
	"time"
)

// SanitizeTitle keeps [A-Za-z0-9] and replaces every other character with '_'
func SanitizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, c := range title {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// BuildFilename returns {sanitizedTitle}_{unixMillis}.{ext}
func BuildFilename(title string, at time.Time, ext string) string {
	return fmt.Sprintf("%s_%d.%s", SanitizeTitle(title), at.UnixMilli(), ext)
}

// ContentTypeForMode is the fixed content type used by the direct path.
// Video is always labelled video/mp4 whatever the source container is.
func ContentTypeForMode(mode MediaMode) (contentType, ext string) {
	if mode == MediaImage {
		return "image/png", "png"
	}
	return "video/mp4", "mp4"
}
