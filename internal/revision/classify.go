package revision

import (
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/revisa/internal/diff"
)

// Rule names the heuristic that produced a [Classification].
type Rule string

const (
	RuleAppendedPeriod Rule = "appended_period"
	RuleAppendedComma  Rule = "appended_comma"
	RuleFirstLetter    Rule = "first_letter_case"
	RuleSingleSpan     Rule = "single_span"

	// RuleMultiSpan is the coarse fallback for edits touching several word
	// ranges: only the first range is reported and the category is
	// [CategoryOther].
	RuleMultiSpan Rule = "multi_span"

	// RuleSubtle covers changes invisible to a word alignment, such as
	// whitespace-only edits.
	RuleSubtle Rule = "subtle"
)

// Classification is an error/correction pair inferred from two versions of a
// text.
type Classification struct {
	Error      string
	Correction string
	Category   string
	Rule       Rule
}

// Classify infers what changed between original and revised. The checks run
// in order and the first that applies wins:
//
//   - revised is original plus "." or ","
//   - only the case of the first character differs
//   - a word alignment; a single differing range is reported as a
//     replacement, addition or removal, several ranges fall back to the
//     first one with category [CategoryOther]
//   - no differing word range at all
func Classify(original, revised string) Classification {
	switch p, _ := diff.AppendedPunctuation(original, revised); p {
	case ".":
		return Classification{Error: MarkerMissingPeriod, Correction: ".", Category: CategoryPunctuation, Rule: RuleAppendedPeriod}
	case ",":
		return Classification{Error: MarkerMissingComma, Correction: ",", Category: CategoryPunctuation, Rule: RuleAppendedComma}
	}

	if o, r, ok := firstLetterCase(original, revised); ok {
		return Classification{Error: o, Correction: r, Category: CategoryCapitalization, Rule: RuleFirstLetter}
	}

	ow, rw := strings.Fields(original), strings.Fields(revised)
	var spans []diff.Opcode
	for _, op := range diff.Opcodes(ow, rw) {
		if op.Tag != diff.Equal {
			spans = append(spans, op)
		}
	}
	if len(spans) == 0 {
		return Classification{Error: MarkerSubtle, Correction: MarkerTextChanged, Category: CategoryOther, Rule: RuleSubtle}
	}

	op := spans[0]
	old := strings.Join(ow[op.I1:op.I2], " ")
	neu := strings.Join(rw[op.J1:op.J2], " ")
	c := Classification{Error: old, Correction: neu, Rule: RuleSingleSpan}
	switch op.Tag {
	case diff.Replace:
		c.Category = CategorySpelling
	case diff.Insert:
		c.Error, c.Category = MarkerMissing, CategoryAddition
	case diff.Delete:
		c.Correction, c.Category = MarkerRemoved, CategoryRemoval
	}
	if len(spans) > 1 {
		c.Category, c.Rule = CategoryOther, RuleMultiSpan
	}
	return c
}

// firstLetterCase reports whether original and revised are equal apart from
// the case of their first character, and returns that character pair.
func firstLetterCase(original, revised string) (string, string, bool) {
	if original == revised || strings.ToLower(original) != strings.ToLower(revised) {
		return "", "", false
	}
	o, on := utf8.DecodeRuneInString(original)
	r, rn := utf8.DecodeRuneInString(revised)
	if o == r || original[on:] != revised[rn:] {
		return "", "", false
	}
	return string(o), string(r), true
}
