package report

import (
	"github.com/MrWong99/revisa/internal/diff"
	"github.com/MrWong99/revisa/pkg/docx"
)

// Colors of the markup convention.
const (
	ColorRemoved = "FF0000"
	ColorAdded   = "008000"
	ColorMarker  = "808080"
	ColorType    = "00008B"
)

var (
	removedStyle = docx.RunStyle{Strike: true, Color: ColorRemoved}
	addedStyle   = docx.RunStyle{Underline: true, Color: ColorAdded}
)

// Runs converts rendered diff spans to styled document runs: removed text is
// red and struck through, added text green and underlined, appended
// punctuation green and bold.
func Runs(spans []diff.Span) []docx.Run {
	out := make([]docx.Run, 0, len(spans))
	for _, s := range spans {
		var st docx.RunStyle
		switch s.Kind {
		case diff.Removed:
			st = removedStyle
		case diff.Added:
			st = addedStyle
		case diff.Appended:
			st = docx.RunStyle{Bold: true, Color: ColorAdded}
		}
		out = append(out, docx.Run{Text: s.Text, Style: st})
	}
	return out
}
