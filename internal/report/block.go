package report

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/revisa/internal/revision"
	"github.com/MrWong99/revisa/pkg/docx"
)

// Texts of the report block.
const (
	Title           = "COMPLETE REVISION REPORT"
	DictionaryTitle = "DICTIONARY OF ALL CORRECTIONS"
	TrailerTitle    = "REVISED DOCUMENT WITH MARKUP:"
)

var separator = strings.Repeat("=", 80)

// Prepend inserts the report block for records before all existing content
// of doc: title, statistics, legend, separator, dictionary title, one group
// per page and a trailing separator. Only applied records are listed. It
// returns the number of paragraphs inserted.
func Prepend(doc *docx.Document, records []revision.Record) int {
	var applied []revision.Record
	for _, r := range records {
		if r.Applied {
			applied = append(applied, r)
		}
	}

	cursor := 0
	next := func() *docx.Paragraph {
		p := doc.InsertParagraph(cursor)
		cursor++
		return p
	}

	next().AddRun(Title, docx.RunStyle{Bold: true, Size: 16})

	var stats strings.Builder
	fmt.Fprintf(&stats, "Total corrections: %d\n\nBy type:", len(applied))
	for _, c := range ByCategory(applied) {
		fmt.Fprintf(&stats, "\n• %s: %d", capitalize(c.Category), c.Count)
	}
	next().AddRun(stats.String(), docx.RunStyle{})

	legend := next()
	legend.AddRun("Legend: ", docx.RunStyle{})
	legend.AddRun("removed text", removedStyle)
	legend.AddRun(" | ", docx.RunStyle{})
	legend.AddRun("added text", addedStyle)

	next().AddRun(separator, docx.RunStyle{})
	next().AddRun(DictionaryTitle, docx.RunStyle{Bold: true, Size: 14})

	for _, g := range ByPage(applied) {
		next().AddRun(fmt.Sprintf("PAGE %d:", g.Page+1), docx.RunStyle{Bold: true, Underline: true})
		for _, r := range g.Records {
			entry(next(), r)
		}
	}

	trailer := next()
	trailer.AddRun(separator+"\n"+TrailerTitle, docx.RunStyle{})
	return cursor
}

// entry renders one dictionary line.
func entry(p *docx.Paragraph, r revision.Record) {
	p.AddRun(r.Location+": ", docx.RunStyle{Bold: true})

	label := r.Category
	if r.Subcategory != "" {
		label += ": " + r.Subcategory
	}
	p.AddRun("["+label+"] ", docx.RunStyle{Color: ColorType})

	if revision.IsMarker(r.Error) {
		p.AddRun(r.Error, docx.RunStyle{Color: ColorMarker})
	} else {
		p.AddRun(quote(r.Error), removedStyle)
	}
	p.AddRun(" → ", docx.RunStyle{})
	p.AddRun(quote(r.Correction), addedStyle)
}

func quote(s string) string { return `"` + s + `"` }

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
