package revision

import (
	"regexp"
	"strings"
)

// PatchStrategy names the step of [Apply] that produced a change.
type PatchStrategy string

const (
	PatchExact           PatchStrategy = "exact"
	PatchWordBoundary    PatchStrategy = "word_boundary"
	PatchCaseInsensitive PatchStrategy = "case_insensitive"
	PatchWhitespace      PatchStrategy = "whitespace_normalized"
)

// Apply replaces at most one occurrence of errText in text with fix. The
// strategies are tried in order and the first that finds errText wins:
//
//  1. exact substring, first occurrence
//  2. whole-word regular expression match
//  3. case-insensitive match; fix is inserted verbatim, so the casing of the
//     matched span is discarded
//  4. whitespace-normalized containment; the trimmed errText is then
//     replaced literally with the trimmed fix
//
// Apply succeeds only when the result differs from text. A no-op replacement
// (errText == fix) or an errText that no strategy locates returns text
// unchanged together with [ErrPatchFailed]. Empty errText or fix always fail.
func Apply(text, errText, fix string) (string, PatchStrategy, error) {
	if errText == "" || fix == "" {
		return text, "", ErrPatchFailed
	}
	for _, step := range patchSteps {
		out, ok := step.apply(text, errText, fix)
		if !ok {
			continue
		}
		if out == text {
			return text, "", ErrPatchFailed
		}
		return out, step.name, nil
	}
	return text, "", ErrPatchFailed
}

type patchStep struct {
	name  PatchStrategy
	apply func(text, errText, fix string) (string, bool)
}

var patchSteps = []patchStep{
	{PatchExact, exactReplace},
	{PatchWordBoundary, wordBoundaryReplace},
	{PatchCaseInsensitive, caseInsensitiveReplace},
	{PatchWhitespace, whitespaceReplace},
}

func exactReplace(text, errText, fix string) (string, bool) {
	if !strings.Contains(text, errText) {
		return "", false
	}
	return strings.Replace(text, errText, fix, 1), true
}

// wordBoundaryReplace replaces the first whole-word occurrence of errText.
// Inside [Apply] it never wins: any whole-word hit is also a literal hit for
// the exact step before it, and \b only knows ASCII word characters. It is
// kept second so the step order stays exact, word, case, whitespace.
func wordBoundaryReplace(text, errText, fix string) (string, bool) {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(errText) + `\b`)
	if err != nil {
		return "", false
	}
	return spliceFirst(re, text, fix)
}

func caseInsensitiveReplace(text, errText, fix string) (string, bool) {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(errText))
	if err != nil {
		return "", false
	}
	return spliceFirst(re, text, fix)
}

func whitespaceReplace(text, errText, fix string) (string, bool) {
	if !strings.Contains(collapseSpace(text), collapseSpace(errText)) {
		return "", false
	}
	return strings.Replace(text, strings.TrimSpace(errText), strings.TrimSpace(fix), 1), true
}

// spliceFirst replaces the first match of re in text with the literal fix.
func spliceFirst(re *regexp.Regexp, text, fix string) (string, bool) {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return text[:loc[0]] + fix + text[loc[1]:], true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
