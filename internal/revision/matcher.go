package revision

import (
	"strings"

	"github.com/MrWong99/revisa/internal/document"
)

// Strategy names how a suggestion was resolved to a unit.
type Strategy int

const (
	// Unresolved means no unit of the batch matched.
	Unresolved Strategy = iota

	// ByLocation means the advisory paragraph number matched a unit.
	ByLocation

	// ByContent means the first unit containing the error text was chosen.
	ByContent
)

func (s Strategy) String() string {
	switch s {
	case ByLocation:
		return "by_location"
	case ByContent:
		return "by_content"
	default:
		return "unresolved"
	}
}

// Match is the outcome of [Resolve]. Unit is nil when Strategy is
// [Unresolved].
type Match struct {
	Strategy Strategy
	Unit     *document.Unit
}

// Resolve returns the unit of batch that s refers to. The location hint wins
// over content: a unit whose sequence number equals s.Paragraph is chosen
// even when an earlier unit also contains the error text. Otherwise the first
// unit, in batch order, whose live text contains s.Error verbatim is chosen.
// Duplicate error texts across units therefore resolve to the first one.
func Resolve(s Suggestion, batch []*document.Unit) Match {
	if strings.TrimSpace(s.Error) == "" {
		return Match{Strategy: Unresolved}
	}
	if u := byLocation(s.Paragraph, batch); u != nil {
		return Match{Strategy: ByLocation, Unit: u}
	}
	if u := byContent(s.Error, batch); u != nil {
		return Match{Strategy: ByContent, Unit: u}
	}
	return Match{Strategy: Unresolved}
}

func byLocation(hint int, batch []*document.Unit) *document.Unit {
	if hint <= 0 {
		return nil
	}
	for _, u := range batch {
		if u.Seq == hint {
			return u
		}
	}
	return nil
}

func byContent(errText string, batch []*document.Unit) *document.Unit {
	for _, u := range batch {
		if strings.Contains(u.Text(), errText) {
			return u
		}
	}
	return nil
}
