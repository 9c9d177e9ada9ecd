package revision

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// minHintScore is the Jaro-Winkler similarity a span needs to be offered as
// a hint for a failed patch.
const minHintScore = 0.75

// NearestCandidate returns the word span of text most similar to errText,
// its Jaro-Winkler score and its Levenshtein distance. Spans have the same
// word count as errText. ok is false when text is empty or no span reaches
// the minimum score.
//
// It is used to explain patch failures: the span is usually what the model
// meant but misquoted.
func NearestCandidate(text, errText string) (span string, score float64, distance int, ok bool) {
	words := strings.Fields(text)
	want := strings.Fields(errText)
	if len(words) == 0 || len(want) == 0 {
		return "", 0, 0, false
	}
	size := len(want)
	if size > len(words) {
		size = len(words)
	}
	target := strings.ToLower(strings.Join(want, " "))

	best := -1.0
	for i := 0; i+size <= len(words); i++ {
		cand := strings.Join(words[i:i+size], " ")
		s := matchr.JaroWinkler(strings.ToLower(cand), target, false)
		if s > best {
			best, span = s, cand
		}
	}
	if best < minHintScore {
		return "", best, 0, false
	}
	return span, best, matchr.Levenshtein(strings.ToLower(span), target), true
}
