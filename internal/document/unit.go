// Package document turns a .docx body into the ordered list of addressable
// text units that every later stage works on.
//
// A [Unit] pairs the immutable text of a paragraph in the original document
// with the live, mutable paragraph of a working copy. Units are numbered
// once, in body traversal order, and the numbering never changes for the
// lifetime of a run.
package document

import (
	"strings"
)

// Kind distinguishes top-level paragraphs from paragraphs inside table cells.
type Kind string

const (
	// KindParagraph is a top-level body paragraph.
	KindParagraph Kind = "normal_paragraph"

	// KindTableCell is a paragraph inside a table cell.
	KindTableCell Kind = "table_cell_paragraph"
)

// Node is the live backing paragraph of a unit. *docx.Paragraph satisfies it.
type Node interface {
	Text() string
	SetText(text string)
}

// Unit is one addressable span of text.
type Unit struct {
	// Seq is the 1-based sequence number. Numbering is dense across the
	// whole document and shared between paragraphs and table cells.
	Seq int

	Kind Kind

	// Label is a human-readable location such as "Paragraph 7" or
	// "Table 2, Cell (1,3)".
	Label string

	// Original is the text snapshot taken at load time. It never changes.
	Original string

	// Node is the mutable paragraph in the working document.
	Node Node
}

// Text returns the unit's live text.
func (u *Unit) Text() string { return u.Node.Text() }

// SetText replaces the unit's live text.
func (u *Unit) SetText(text string) { u.Node.SetText(text) }

// Page returns the coarse page estimate Seq/3. It is a heuristic used to
// group report entries, not a real page number.
func (u *Unit) Page() int { return PageOf(u.Seq) }

// Changed reports whether the live text differs from the original snapshot.
func (u *Unit) Changed() bool { return u.Text() != u.Original }

// PageOf returns the page estimate for a sequence number.
func PageOf(seq int) int { return seq / 3 }

// blank reports whether text has no content after trimming whitespace.
func blank(text string) bool { return strings.TrimSpace(text) == "" }
