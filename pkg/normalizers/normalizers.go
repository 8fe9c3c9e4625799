// Package normalizers provides the string normalization used for company matching
package normalizers

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("trim", Trim)
	Register("lowercase", Lowercase)
	Register("fold_accents", FoldAccents)
	Register("strip_legal_suffix", StripLegalSuffix)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("alphanumeric", Alphanumeric)
	Register("clean", Clean)
	Register("match_name", MatchName)
	Register("canonical", CanonicalName)
	Register("naddress", NormalizeAddress)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value. Unknown names leave the value untouched.
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

var (
	// "pty ltd", "pty. ltd.", "ptyltd", "pty limited", "proprietary limited"
	legalSuffixRe = regexp.MustCompile(`\b(?:pty\s*\.?\s*(?:ltd|limited)|proprietary\s+limited)\b\.?`)
	spaceRe       = regexp.MustCompile(`\s+`)
	accentFolder  = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// FromNullable normalizes a nullable column; nil yields "".
func FromNullable(s *string, fn Normalizer) string {
	if s == nil {
		return ""
	}
	return fn(*s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// FoldAccents strips combining marks so "Café" compares equal to "Cafe".
func FoldAccents(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return folded
}

// StripLegalSuffix removes legal-entity markers such as "Pty Ltd". Expects lower-cased input.
func StripLegalSuffix(s string) string {
	return legalSuffixRe.ReplaceAllString(s, " ")
}

// CollapseWhitespace squeezes runs of whitespace into one space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Alphanumeric keeps only ASCII letters and digits
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Clean trims, lower-cases and removes legal-entity suffix tokens.
// Applied until stable, so Clean(Clean(x)) == Clean(x).
func Clean(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return fixpoint(s, func(v string) string {
		return CollapseWhitespace(StripLegalSuffix(v))
	})
}

// MatchName is the token form used for similarity scoring:
// Clean with punctuation turned into token separators.
func MatchName(s string) string {
	s = FoldAccents(Clean(s))
	return fixpoint(s, func(v string) string {
		var b strings.Builder
		for _, r := range v {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			} else {
				b.WriteRune(' ')
			}
		}
		return CollapseWhitespace(StripLegalSuffix(b.String()))
	})
}

// CanonicalName is the blocking form of a name: Clean, accent folding and
// only [a-z0-9] kept. "Acme Pty Ltd" -> "acme", "ACME CORP" -> "acmecorp".
func CanonicalName(s string) string {
	s = FoldAccents(Clean(s))
	return fixpoint(s, func(v string) string {
		return Alphanumeric(StripLegalSuffix(v))
	})
}

// fixpoint applies fn until the value stops changing. fn must never grow
// its input for this to terminate.
func fixpoint(s string, fn Normalizer) string {
	for {
		next := fn(s)
		if next == s {
			return s
		}
		s = next
	}
}

// NormalizeAddress normalizes an address string using Australian street abbreviations
func NormalizeAddress(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	replacements := []struct{ full, abbr string }{
		{" street", " st"},
		{" avenue", " ave"},
		{" boulevard", " blvd"},
		{" drive", " dr"},
		{" road", " rd"},
		{" lane", " ln"},
		{" court", " ct"},
		{" crescent", " cres"},
		{" highway", " hwy"},
		{" parade", " pde"},
		{" terrace", " tce"},
		{" place", " pl"},
		{" level", " lvl"},
		{" suite", " ste"},
	}

	for _, r := range replacements {
		s = strings.ReplaceAll(s, r.full, r.abbr)
	}

	return CollapseWhitespace(s)
}
