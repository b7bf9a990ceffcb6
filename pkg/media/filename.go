package media

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// extensionByMimetype maps the media types the provider actually sends.
// Anything else keeps whatever extension the original name carried.
var extensionByMimetype = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/3gpp":      ".3gp",
	"audio/ogg":       ".ogg",
	"audio/mpeg":      ".mp3",
	"audio/mp4":       ".m4a",
	"application/pdf": ".pdf",
}

// SanitizeFilename folds a user-supplied filename into a storage-safe form:
// diacritics stripped, lowercased, and everything outside [a-z0-9._-]
// replaced with a hyphen. Object paths are built from the result, so it
// must never contain separators or control characters.
func SanitizeFilename(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "file"
	}
	return out
}

// ObjectName builds the storage object name for a media payload: a
// timestamp prefix for uniqueness, the sanitized original name, and an
// extension derived from the mimetype when the name has none.
func ObjectName(now time.Time, originalName, mimetype string) string {
	base := SanitizeFilename(originalName)

	if !strings.Contains(base, ".") {
		if ext, ok := extensionByMimetype[normalizeMimetype(mimetype)]; ok {
			base += ext
		}
	}

	return fmt.Sprintf("%d-%s", now.UnixMilli(), base)
}

// normalizeMimetype drops parameters like "; codecs=opus".
func normalizeMimetype(mimetype string) string {
	if i := strings.IndexByte(mimetype, ';'); i >= 0 {
		mimetype = mimetype[:i]
	}
	return strings.TrimSpace(strings.ToLower(mimetype))
}
