package docx

import "github.com/beevik/etree"

// Table is a top-level w:tbl element.
type Table struct {
	el *etree.Element
	w  string
}

// Row is a w:tr element.
type Row struct {
	el *etree.Element
	w  string
}

// Cell is a w:tc element.
type Cell struct {
	el *etree.Element
	w  string
}

// Rows returns the table rows in order.
func (t *Table) Rows() []*Row {
	var out []*Row
	for _, c := range childrenNamed(t.el, t.w, "tr") {
		out = append(out, &Row{el: c, w: t.w})
	}
	return out
}

// Cells returns the row's cells in order. Horizontally merged cells appear
// once, as a single w:tc.
func (r *Row) Cells() []*Cell {
	var out []*Cell
	for _, c := range childrenNamed(r.el, r.w, "tc") {
		out = append(out, &Cell{el: c, w: r.w})
	}
	return out
}

// Paragraphs returns the paragraphs directly inside the cell. Paragraphs of
// nested tables are not included.
func (c *Cell) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, e := range childrenNamed(c.el, c.w, "p") {
		out = append(out, &Paragraph{el: e, w: c.w})
	}
	return out
}

func childrenNamed(e *etree.Element, space, local string) []*etree.Element {
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if c.Tag == local && c.Space == space {
			out = append(out, c)
		}
	}
	return out
}
