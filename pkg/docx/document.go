// Package docx reads and writes Office Open XML word-processing documents
// (.docx) at the granularity Revisa needs: body paragraphs, tables, and the
// styled text runs inside them.
//
// A [Document] keeps every part of the original zip archive byte-for-byte and
// only re-serialises word/document.xml, so styles, numbering, headers, media
// and relationships survive a round trip untouched. Paragraph text is edited
// in place on the XML tree, which keeps paragraph properties (w:pPr) and the
// run properties (w:rPr) of the first text run.
//
// Documents are not safe for concurrent use. Each processing run opens its
// own Document and owns it exclusively.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
)

const (
	// documentPart is the archive path of the main document body.
	documentPart = "word/document.xml"

	// NamespaceW is the WordprocessingML main namespace.
	NamespaceW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// ErrNotDocx is returned when the input is a valid zip archive that does not
// contain a WordprocessingML main document part.
var ErrNotDocx = errors.New("docx: not a word-processing document")

// part is one entry of the source archive.
type part struct {
	header zip.FileHeader
	data   []byte
}

// Document is an opened .docx package.
type Document struct {
	parts []part
	tree  *etree.Document
	body  *etree.Element

	// w is the namespace prefix bound to [NamespaceW] in document.xml,
	// almost always "w".
	w string
}

// Open reads the .docx file at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docx: read %q: %w", path, err)
	}
	doc, err := Read(data)
	if err != nil {
		return nil, fmt.Errorf("docx: open %q: %w", path, err)
	}
	return doc, nil
}

// Read parses a .docx package held in memory. The slice is not retained.
func Read(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("docx: unzip: %w", err)
	}

	parts := make([]part, 0, len(zr.File))
	for _, f := range zr.File {
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("docx: read part %q: %w", f.Name, err)
		}
		parts = append(parts, part{header: f.FileHeader, data: content})
	}
	return readParts(parts)
}

// readParts builds a Document from archive entries and parses the main part.
func readParts(parts []part) (*Document, error) {
	d := &Document{parts: parts}
	var main []byte
	for _, p := range parts {
		if p.header.Name == documentPart {
			main = p.data
		}
	}
	if main == nil {
		return nil, ErrNotDocx
	}

	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(main); err != nil {
		return nil, fmt.Errorf("docx: parse %s: %w", documentPart, err)
	}
	root := tree.Root()
	if root == nil || root.Tag != "document" {
		return nil, ErrNotDocx
	}
	d.tree = tree
	d.w = root.Space
	for _, c := range root.ChildElements() {
		if c.Tag == "body" && c.Space == d.w {
			d.body = c
			break
		}
	}
	if d.body == nil {
		return nil, fmt.Errorf("%w: missing w:body", ErrNotDocx)
	}
	return d, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Paragraphs returns the top-level body paragraphs in document order.
// Paragraphs nested in tables are reached through [Document.Tables].
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, c := range d.body.ChildElements() {
		if d.is(c, "p") {
			out = append(out, &Paragraph{el: c, w: d.w})
		}
	}
	return out
}

// Tables returns the top-level body tables in document order.
func (d *Document) Tables() []*Table {
	var out []*Table
	for _, c := range d.body.ChildElements() {
		if d.is(c, "tbl") {
			out = append(out, &Table{el: c, w: d.w})
		}
	}
	return out
}

// InsertParagraph creates an empty paragraph at body position index, counted
// over body child elements. An index past the last content element inserts
// the paragraph before the trailing section properties, so the document
// layout stays valid.
func (d *Document) InsertParagraph(index int) *Paragraph {
	p := etree.NewElement(d.w + ":p")
	children := d.body.ChildElements()

	if index < 0 {
		index = 0
	}
	var anchor *etree.Element
	if index < len(children) {
		anchor = children[index]
	}
	if anchor == nil {
		// Keep w:sectPr as the last body child.
		if last := lastElement(children); last != nil && d.is(last, "sectPr") {
			anchor = last
		}
	}
	if anchor != nil {
		d.body.InsertChildAt(anchor.Index(), p)
	} else {
		d.body.AddChild(p)
	}
	return &Paragraph{el: p, w: d.w}
}

// AppendParagraph adds a paragraph holding text at the end of the body.
func (d *Document) AppendParagraph(text string) *Paragraph {
	p := d.InsertParagraph(len(d.body.ChildElements()))
	if text != "" {
		p.SetText(text)
	}
	return p
}

// AppendTable adds a table at the end of the body with one paragraph per
// cell. Rows may have differing lengths.
func (d *Document) AppendTable(rows [][]string) *Table {
	tbl := etree.NewElement(d.w + ":tbl")
	for _, row := range rows {
		tr := tbl.CreateElement(d.w + ":tr")
		for _, text := range row {
			tc := tr.CreateElement(d.w + ":tc")
			p := &Paragraph{el: tc.CreateElement(d.w + ":p"), w: d.w}
			if text != "" {
				p.SetText(text)
			}
		}
	}
	children := d.body.ChildElements()
	if last := lastElement(children); last != nil && d.is(last, "sectPr") {
		d.body.InsertChildAt(last.Index(), tbl)
	} else {
		d.body.AddChild(tbl)
	}
	return &Table{el: tbl, w: d.w}
}

// Bytes serialises the package. Every part except word/document.xml is
// written back unchanged and in its original archive order.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the package to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	main, err := d.tree.WriteToBytes()
	if err != nil {
		return 0, fmt.Errorf("docx: serialise %s: %w", documentPart, err)
	}

	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, p := range d.parts {
		hdr := p.header
		hdr.CRC32 = 0
		hdr.CompressedSize64 = 0
		hdr.UncompressedSize64 = 0
		fw, err := zw.CreateHeader(&hdr)
		if err != nil {
			return cw.n, fmt.Errorf("docx: write header %q: %w", hdr.Name, err)
		}
		data := p.data
		if hdr.Name == documentPart {
			data = main
		}
		if _, err := fw.Write(data); err != nil {
			return cw.n, fmt.Errorf("docx: write part %q: %w", hdr.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("docx: close archive: %w", err)
	}
	return cw.n, nil
}

// Save writes the package to path, replacing any existing file.
func (d *Document) Save(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("docx: save %q: %w", path, err)
	}
	return nil
}

// is reports whether e is the WordprocessingML element with the given local name.
func (d *Document) is(e *etree.Element, local string) bool {
	return e.Tag == local && e.Space == d.w
}

func lastElement(els []*etree.Element) *etree.Element {
	if len(els) == 0 {
		return nil
	}
	return els[len(els)-1]
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
