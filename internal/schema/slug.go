package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ligatures spells out letters that NFD cannot split into base plus accent.
var ligatures = strings.NewReplacer(
	"ß", "ss", "ẞ", "SS",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O",
	"đ", "d", "Đ", "D",
	"ð", "d", "Ð", "D",
	"ł", "l", "Ł", "L",
	"þ", "th", "Þ", "TH",
)

// Slug folds a label into a lower-case ASCII key: accents are removed and
// every run of other characters collapses into a single underscore.
// "Razón Social" becomes "razon_social", "Cliente/Marca" becomes
// "cliente_marca" and "Straße" becomes "strasse".
func Slug(label string) string {
	// transform.Chain keeps state between calls, so build one per call.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	expanded := ligatures.Replace(label)
	folded, _, err := transform.String(folder, expanded)
	if err != nil {
		folded = expanded
	}
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// sameName compares a user-supplied name against a canonical one by exact
// match, case-insensitive match, or slug.
func sameName(input, canonical string) bool {
	input = strings.TrimSpace(input)
	if input == canonical || strings.EqualFold(input, canonical) {
		return true
	}
	slug := Slug(input)
	return slug != "" && slug == Slug(canonical)
}
