package gallery

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeID normalizes an identity id for storage and lookup (lowercase,
// no diacritics, dashes and underscores to spaces, trimmed). "Jan-Novák"
// and "jan novak" name the same identity.
func NormalizeID(id string) string {
	id = removeDiacritics(id)
	id = strings.ToLower(id)
	id = strings.ReplaceAll(id, "-", " ")
	id = strings.ReplaceAll(id, "_", " ")
	return strings.TrimSpace(id)
}
