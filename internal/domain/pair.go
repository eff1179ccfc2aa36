package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Pair is a traded instrument in BASE/QUOTE form, e.g. BTC/USDT.
type Pair string

const pairSeparator = "/"

var assetRe = regexp.MustCompile(`^[A-Z0-9]{1,20}$`)

// ParsePair normalizes s to upper case and validates it.
func ParsePair(s string) (Pair, error) {
	p := Pair(strings.ToUpper(strings.TrimSpace(s)))
	if !ValidatePair(string(p)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPair, s)
	}
	return p, nil
}

// ValidatePair reports whether p is non-empty, carries exactly one separator
// and has two distinct alphanumeric assets.
func ValidatePair(p string) bool {
	if strings.Count(p, pairSeparator) != 1 {
		return false
	}
	base, quote, _ := strings.Cut(p, pairSeparator)
	return assetRe.MatchString(base) && assetRe.MatchString(quote) && base != quote
}

// SplitPair returns the base and quote assets of p.
func SplitPair(p string) (base, quote string, ok bool) {
	if !ValidatePair(p) {
		return "", "", false
	}
	base, quote, _ = strings.Cut(p, pairSeparator)
	return base, quote, true
}

func (p Pair) Base() string {
	b, _, _ := SplitPair(string(p))
	return b
}

func (p Pair) Quote() string {
	_, q, _ := SplitPair(string(p))
	return q
}

func (p Pair) String() string { return string(p) }
