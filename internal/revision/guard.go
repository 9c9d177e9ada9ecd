package revision

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

var (
	markupPattern = regexp.MustCompile(`\[[^\]]+\]`)
	urlPattern    = regexp.MustCompile(`https?://[^\s]*[^\s.,;:!?)\]]`)
)

// Guard rejects patches that damage structure the language model must not
// touch. The zero value is ready to use with the default length bounds.
type Guard struct {
	// MinRatio and MaxRatio bound len(after)/len(before). Zero selects the
	// defaults 0.7 and 1.3.
	MinRatio float64
	MaxRatio float64
}

// Check returns an error wrapping [ErrGuardRejected] when after changes the
// set of bracketed markup or URLs found in before, or when its length leaves
// the allowed ratio of the length of before.
func (g Guard) Check(before, after string) error {
	if !sameSet(markupPattern.FindAllString(before, -1), markupPattern.FindAllString(after, -1)) {
		return fmt.Errorf("%w: bracketed markup changed", ErrGuardRejected)
	}
	if !sameSet(urlPattern.FindAllString(before, -1), urlPattern.FindAllString(after, -1)) {
		return fmt.Errorf("%w: urls changed", ErrGuardRejected)
	}

	lo, hi := g.MinRatio, g.MaxRatio
	if lo == 0 {
		lo = 0.7
	}
	if hi == 0 {
		hi = 1.3
	}
	n := utf8.RuneCountInString(before)
	if n == 0 {
		return nil
	}
	ratio := float64(utf8.RuneCountInString(after)) / float64(n)
	if ratio < lo || ratio > hi {
		return fmt.Errorf("%w: length ratio %.2f outside [%.2f, %.2f]", ErrGuardRejected, ratio, lo, hi)
	}
	return nil
}

func sameSet(a, b []string) bool {
	sa := make(map[string]struct{}, len(a))
	for _, s := range a {
		sa[s] = struct{}{}
	}
	sb := make(map[string]struct{}, len(b))
	for _, s := range b {
		sb[s] = struct{}{}
	}
	if len(sa) != len(sb) {
		return false
	}
	for s := range sa {
		if _, ok := sb[s]; !ok {
			return false
		}
	}
	return true
}
