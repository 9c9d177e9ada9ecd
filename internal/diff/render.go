package diff

import (
	"strings"
)

// Kind is the visual role of a rendered span.
type Kind int

const (
	// Plain is unchanged text.
	Plain Kind = iota

	// Removed is text present only in the original (red, struck through).
	Removed

	// Added is text present only in the revision (green, underlined).
	Added

	// Appended is trailing punctuation added to an otherwise unchanged
	// text (green, bold).
	Appended
)

func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Removed:
		return "removed"
	case Added:
		return "added"
	case Appended:
		return "appended"
	default:
		return "unknown"
	}
}

// Span is one styled piece of rendered output.
type Span struct {
	Text string
	Kind Kind
}

// CharRatioThreshold is the minimum similarity at which a replaced word range
// is rendered character by character instead of as a whole struck-through
// old range followed by the underlined new range.
const CharRatioThreshold = 0.5

// Render returns the styled spans that show how original became revised.
// The first matching rule wins:
//
//   - revised is original plus a trailing "." or ",": the original as plain
//     text followed by the punctuation as an [Appended] span.
//   - revised differs from original only in letter case: the first changed
//     character as an [Added] span between the plain prefix and suffix.
//   - otherwise a word alignment over whitespace-separated tokens, with
//     replaced ranges refined to character level when they are similar.
func Render(original, revised string) []Span {
	if original == revised {
		return compact([]Span{{Text: revised, Kind: Plain}})
	}
	if p, ok := AppendedPunctuation(original, revised); ok {
		return compact([]Span{{Text: original, Kind: Plain}, {Text: p, Kind: Appended}})
	}
	if i, ok := FirstCaseChange(original, revised); ok {
		r := []rune(revised)
		return compact([]Span{
			{Text: string(r[:i]), Kind: Plain},
			{Text: string(r[i]), Kind: Added},
			{Text: string(r[i+1:]), Kind: Plain},
		})
	}
	return compact(renderWords(strings.Fields(original), strings.Fields(revised)))
}

// AppendedPunctuation reports whether revised is original with a single "."
// or "," appended, and returns the punctuation.
func AppendedPunctuation(original, revised string) (string, bool) {
	for _, p := range []string{".", ","} {
		if revised == original+p {
			return p, true
		}
	}
	return "", false
}

// FirstCaseChange reports whether original and revised differ only in letter
// case and returns the rune index of the first differing character.
func FirstCaseChange(original, revised string) (int, bool) {
	if original == revised || strings.ToLower(original) != strings.ToLower(revised) {
		return 0, false
	}
	o, r := []rune(original), []rune(revised)
	if len(o) != len(r) {
		return 0, false
	}
	for i := range o {
		if o[i] != r[i] {
			return i, true
		}
	}
	return 0, false
}

func renderWords(orig, rev []string) []Span {
	ops := Opcodes(orig, rev)
	var (
		out       []Span
		afterEdit bool
	)
	for n, op := range ops {
		more := n < len(ops)-1
		if op.Tag == Equal {
			text := strings.Join(orig[op.I1:op.I2], " ")
			if afterEdit {
				text = " " + text
			}
			if more {
				text += " "
			}
			out = append(out, Span{Text: text, Kind: Plain})
			afterEdit = false
			continue
		}

		if afterEdit {
			out = append(out, Span{Text: " ", Kind: Plain})
		}
		old := strings.Join(orig[op.I1:op.I2], " ")
		neu := strings.Join(rev[op.J1:op.J2], " ")
		switch op.Tag {
		case Delete:
			out = append(out, Span{Text: old, Kind: Removed})
		case Insert:
			out = append(out, Span{Text: neu, Kind: Added})
		case Replace:
			out = append(out, renderReplace(old, neu)...)
		}
		afterEdit = true
	}
	return out
}

// renderReplace renders one replaced word range. Similar ranges are aligned
// rune by rune; dissimilar ones become a whole removed/added pair.
func renderReplace(old, neu string) []Span {
	a, b := []rune(old), []rune(neu)
	if Ratio(a, b) < CharRatioThreshold {
		return []Span{{Text: old, Kind: Removed}, {Text: neu, Kind: Added}}
	}
	var out []Span
	for _, op := range Opcodes(a, b) {
		switch op.Tag {
		case Equal:
			out = append(out, Span{Text: string(a[op.I1:op.I2]), Kind: Plain})
		case Delete:
			out = append(out, Span{Text: string(a[op.I1:op.I2]), Kind: Removed})
		case Insert:
			out = append(out, Span{Text: string(b[op.J1:op.J2]), Kind: Added})
		case Replace:
			out = append(out,
				Span{Text: string(a[op.I1:op.I2]), Kind: Removed},
				Span{Text: string(b[op.J1:op.J2]), Kind: Added},
			)
		}
	}
	return out
}

// compact drops empty spans and merges neighbours of the same kind.
func compact(spans []Span) []Span {
	out := spans[:0:0]
	for _, s := range spans {
		if s.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Kind == s.Kind {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}

// Revised reassembles the revised side of spans: every span except the
// removed ones.
func Revised(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		if s.Kind != Removed {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}
