// Package norm canonicalizes the identifiers used throughout the script
// runtime: class names, field/function/constant names, and the names a
// dynamic member access builds at runtime.
//
// Canonicalization case-folds ASCII letters, strips the common Latin
// diacritics, and treats '_' and ' ' as the same separator for comparison
// purposes (but not for display). '@' is passed through untouched, since the
// language uses it in class-wide identifiers.
package norm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacritics strips combining marks (category Mn) left behind by a
// decomposition into NFD form, which is how "á" becomes "a" + U+0301 and
// then loses the U+0301.
var diacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Name is a canonical identifier: the result of Canon applied to some
// source spelling. Two Names compare equal iff the spellings they came from
// denote the same class/field/function/constant.
type Name string

// Canon canonicalizes s: lower-cases ASCII letters, strips diacritics,
// folds '_' and ' ' to a single separator, and leaves '@' and digits as-is.
//
// Canon is idempotent: Canon(Canon(s)) == Canon(s) for all s, and the
// resulting equality is a valid equivalence relation (reflexive, symmetric,
// transitive) since it only ever maps characters, never reorders them.
func Canon(s string) Name {
	folded, _, err := transform.String(diacritics, s)
	if err != nil {
		// transform.String only fails on encoding errors from the Reader
		// variant; the String variant of our Chain never does, but fall
		// back to the original string rather than losing the identifier.
		folded = s
	}
	b := make([]rune, 0, len(folded))
	for _, r := range folded {
		switch {
		case r == '_' || r == ' ':
			b = append(b, '_')
		case r >= 'A' && r <= 'Z':
			b = append(b, r-'A'+'a')
		default:
			b = append(b, unicode.ToLower(r))
		}
	}
	return Name(string(b))
}

// Equal reports whether a and b denote the same identifier.
func Equal(a, b string) bool {
	return Canon(a) == Canon(b)
}

// Display returns s unchanged; it exists so call sites that build a
// canonical key alongside a display spelling read symmetrically, e.g.
//
//	key, shown := norm.Canon(src), norm.Display(src)
func Display(s string) string {
	return s
}

// HasPrefix reports whether the canonical form of s starts with the
// canonical form of prefix.
func HasPrefix(s, prefix string) bool {
	return strings.HasPrefix(string(Canon(s)), string(Canon(prefix)))
}
