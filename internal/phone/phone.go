// Package phone reduces phone numbers to the canonical +380XXXXXXXXX form
// that is used as the equality key for deduplication and CRM matching.
package phone

import "strings"

const (
	countryCode = "380"
	trunkPrefix = "0"
)

// Clean strips every non-digit character from the input.
func Clean(raw string) string {
	var builder strings.Builder
	builder.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// Normalize canonicalizes an arbitrary phone string to "+380...".
// The national trunk prefix "0" is replaced with the country code, and the
// country code is prepended when missing. Malformed input still produces a
// canonical string; rejection is deliberately not done here.
// Normalize is idempotent: a canonical phone passes through unchanged.
func Normalize(raw string) string {
	digits := Clean(raw)
	if strings.HasPrefix(digits, trunkPrefix) {
		digits = "38" + digits
	}
	if !strings.HasPrefix(digits, countryCode) {
		digits = countryCode + strings.TrimPrefix(digits, countryCode)
	}
	return "+" + digits
}

// Equal reports whether two phone strings refer to the same number after
// canonicalization.
func Equal(a, b string) bool {
	return Clean(Normalize(a)) == Clean(Normalize(b))
}
