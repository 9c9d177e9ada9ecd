package document

import (
	"errors"
	"fmt"

	"github.com/MrWong99/revisa/pkg/docx"
)

// ErrStructuralMismatch is returned when the original and working documents
// do not have the same paragraph, table, row, cell or cell-paragraph counts.
// Enumeration never attempts a partial alignment.
var ErrStructuralMismatch = errors.New("document: structural mismatch")

// Enumerate walks original and working in lockstep and returns one [Unit]
// per paragraph whose original text is not blank.
//
// Traversal order is every top-level paragraph in body order, then every
// table, each table's rows, each row's cells and each cell's paragraphs.
// Sequence numbers start at 1 and are shared by both kinds of unit.
func Enumerate(original, working *docx.Document) ([]*Unit, error) {
	var (
		units []*Unit
		seq   int
	)
	add := func(kind Kind, label func(int) string, orig, live *docx.Paragraph) {
		text := orig.Text()
		if blank(text) {
			return
		}
		seq++
		units = append(units, &Unit{
			Seq:      seq,
			Kind:     kind,
			Label:    label(seq),
			Original: text,
			Node:     live,
		})
	}

	origParas, liveParas := original.Paragraphs(), working.Paragraphs()
	if len(origParas) != len(liveParas) {
		return nil, mismatch("paragraphs", len(origParas), len(liveParas))
	}
	paragraphLabel := func(n int) string { return fmt.Sprintf("Paragraph %d", n) }
	for i := range origParas {
		add(KindParagraph, paragraphLabel, origParas[i], liveParas[i])
	}

	origTables, liveTables := original.Tables(), working.Tables()
	if len(origTables) != len(liveTables) {
		return nil, mismatch("tables", len(origTables), len(liveTables))
	}
	for t := range origTables {
		origRows, liveRows := origTables[t].Rows(), liveTables[t].Rows()
		if len(origRows) != len(liveRows) {
			return nil, mismatch(fmt.Sprintf("rows in table %d", t+1), len(origRows), len(liveRows))
		}
		for r := range origRows {
			origCells, liveCells := origRows[r].Cells(), liveRows[r].Cells()
			if len(origCells) != len(liveCells) {
				return nil, mismatch(fmt.Sprintf("cells in table %d row %d", t+1, r+1), len(origCells), len(liveCells))
			}
			for c := range origCells {
				op, lp := origCells[c].Paragraphs(), liveCells[c].Paragraphs()
				if len(op) != len(lp) {
					return nil, mismatch(fmt.Sprintf("paragraphs in table %d cell (%d,%d)", t+1, r+1, c+1), len(op), len(lp))
				}
				label := fmt.Sprintf("Table %d, Cell (%d,%d)", t+1, r+1, c+1)
				for i := range op {
					add(KindTableCell, func(int) string { return label }, op[i], lp[i])
				}
			}
		}
	}
	return units, nil
}

// EnumeratePair enumerates the same original against two working documents
// and returns the unit lists aligned by index. Both working documents must
// match the original structurally.
func EnumeratePair(original, a, b *docx.Document) (ua, ub []*Unit, err error) {
	if ua, err = Enumerate(original, a); err != nil {
		return nil, nil, err
	}
	if ub, err = Enumerate(original, b); err != nil {
		return nil, nil, err
	}
	return ua, ub, nil
}

func mismatch(what string, orig, live int) error {
	return fmt.Errorf("%w: %s: original has %d, working copy has %d", ErrStructuralMismatch, what, orig, live)
}
