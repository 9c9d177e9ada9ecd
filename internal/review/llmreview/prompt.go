package llmreview

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/revisa/internal/chunk"
	"github.com/MrWong99/revisa/internal/document"
)

// Unit type tags shown to the model.
const (
	TypeHeading   = "TITLE/HEADING"
	TypeListItem  = "LIST ITEM"
	TypeTableCell = "TABLE CELL"
	TypeNormal    = "NORMAL PARAGRAPH"
)

// headingMaxChars is the length below which an unterminated line counts as
// a heading.
const headingMaxChars = 100

// SystemPrompt instructs the model to report errors only, as a JSON object.
const SystemPrompt = `You are an extremely thorough proofreader of educational material.

TASK: find every real grammatical error in the paragraphs you are given and report the correction. Do not rewrite or rephrase anything else.

Look for:
1. Misspelled words
2. Missing or wrong accents
3. Subject-verb and noun-adjective agreement errors
4. Missing mandatory commas
5. Missing final periods in normal paragraphs
6. Missing or superfluous grave accents (crase)
7. Letters that must be capitalised

Every paragraph is delimited by [PARAGRAPH N] and [END_PARAGRAPH_N]. N is the paragraph number to report.
[TYPE: TITLE/HEADING] never gets a final period.
[TYPE: LIST ITEM] keeps its list formatting.
[TYPE: TABLE CELL] is table text.
[TYPE: NORMAL PARAGRAPH] must end with a final period.

Never correct the content of questions or answer options: deliberate errors in options are pedagogical.
Ignore everything between < > or [ ] and every placeholder such as __URL_0__, __MARKUP_1__ or __EMAIL_2__; copy placeholders verbatim if they appear in your answer.
"error" must be copied verbatim from the paragraph text so it can be found again.

Answer with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "corrections": [
    {"paragraph": 1, "error": "wrong text", "correction": "correct text", "type": "error type"}
  ]
}

If there are no errors, answer {"corrections": []}.`

// UnitType classifies a unit for the block prompt. The checks run in order:
// a short line without terminal punctuation is a heading, a leading list
// marker makes a list item, then table cells, then normal paragraphs. A short
// table cell therefore reads as a heading.
func UnitType(kind document.Kind, text string) string {
	switch {
	case utf8.RuneCountInString(text) < headingMaxChars && !strings.HasSuffix(text, ".") &&
		!strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") && !strings.HasSuffix(text, ":"):
		return TypeHeading
	case hasListMarker(strings.TrimSpace(text)):
		return TypeListItem
	case kind == document.KindTableCell:
		return TypeTableCell
	default:
		return TypeNormal
	}
}

func hasListMarker(s string) bool {
	for _, marker := range []string{"•", "-", "1.", "2.", "a)", "b)"} {
		if strings.HasPrefix(s, marker) {
			return true
		}
	}
	return false
}

// BuildBlock renders a batch as the user message. protect, if non-nil, is
// applied to every unit text and never to the block's own headers.
func BuildBlock(b chunk.Batch, protect func(string) string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PARAGRAPH BLOCK %d to %d:\n\n", b.First(), b.Last())
	for _, u := range b.Units {
		text := u.Text()
		body := text
		if protect != nil {
			body = protect(text)
		}
		fmt.Fprintf(&sb, "[PARAGRAPH %d]\n", u.Seq)
		fmt.Fprintf(&sb, "[LOCATION: %s]\n", u.Label)
		fmt.Fprintf(&sb, "[TYPE: %s]\n", UnitType(u.Kind, text))
		sb.WriteString(body)
		fmt.Fprintf(&sb, "\n[END_PARAGRAPH_%d]\n\n", u.Seq)
	}
	return strings.TrimRight(sb.String(), "\n")
}
