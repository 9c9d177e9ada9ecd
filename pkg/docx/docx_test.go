package docx_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/MrWong99/revisa/pkg/docx"
)

// buildArchive zips the given parts in order.
func buildArchive(t *testing.T, parts [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p[0])
		if err != nil {
			t.Fatalf("create %s: %v", p[0], err)
		}
		if _, err := io.WriteString(w, p[1]); err != nil {
			t.Fatalf("write %s: %v", p[0], err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

const formattedBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:pPr><w:jc w:val="center"/></w:pPr>` +
	`<w:r><w:rPr><w:rFonts w:ascii="Arial"/><w:sz w:val="28"/></w:rPr><w:t>Hello </w:t></w:r>` +
	`<w:r><w:rPr><w:b/></w:rPr><w:t>wor</w:t></w:r>` +
	`<w:hyperlink><w:r><w:t>ld</w:t></w:r></w:hyperlink>` +
	`<w:del><w:r><w:delText>gone</w:delText></w:r></w:del></w:p>` +
	`<w:p/>` +
	`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>a1</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>b1</w:t><w:tab/><w:t>x</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
	`<w:sectPr/></w:body></w:document>`

func openFormatted(t *testing.T) (*docx.Document, []byte) {
	t.Helper()
	data := buildArchive(t, [][2]string{
		{"[Content_Types].xml", "<Types/>"},
		{"word/document.xml", formattedBody},
		{"word/styles.xml", "<w:styles>keep me</w:styles>"},
	})
	doc, err := docx.Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return doc, data
}

func TestRead_TextAcrossRuns(t *testing.T) {
	t.Parallel()
	doc, _ := openFormatted(t)

	paras := doc.Paragraphs()
	if len(paras) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(paras))
	}
	if got := paras[0].Text(); got != "Hello world" {
		t.Errorf("paragraph 0 text=%q, want %q", got, "Hello world")
	}
	if got := paras[1].Text(); got != "" {
		t.Errorf("paragraph 1 text=%q, want empty", got)
	}

	tables := doc.Tables()
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}
	rows := tables[0].Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	cells := rows[0].Cells()
	if len(cells) != 2 {
		t.Fatalf("got %d cells, want 2", len(cells))
	}
	if got := cells[1].Paragraphs()[0].Text(); got != "b1\tx" {
		t.Errorf("cell text=%q, want %q", got, "b1\tx")
	}
}

func TestRead_NotDocx(t *testing.T) {
	t.Parallel()
	data := buildArchive(t, [][2]string{{"foo.txt", "bar"}})
	if _, err := docx.Read(data); !errors.Is(err, docx.ErrNotDocx) {
		t.Fatalf("err=%v, want ErrNotDocx", err)
	}
	if _, err := docx.Read([]byte("not a zip")); err == nil {
		t.Fatal("expected error for non-zip input")
	}
}

func TestSetText_KeepsFirstRunFormatting(t *testing.T) {
	t.Parallel()
	doc, _ := openFormatted(t)
	p := doc.Paragraphs()[0]

	p.SetText("Hello, world.")
	if got := p.Text(); got != "Hello, world." {
		t.Fatalf("text=%q, want %q", got, "Hello, world.")
	}
	runs := p.Runs()
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].Style.Font != "Arial" || runs[0].Style.Size != 14 {
		t.Errorf("style=%+v, want Arial 14pt inherited from first run", runs[0].Style)
	}
}

func TestSetText_EmptyParagraph(t *testing.T) {
	t.Parallel()
	doc, _ := openFormatted(t)
	p := doc.Paragraphs()[1]
	p.SetText("new\tline\nnext")
	if got := p.Text(); got != "new\tline\nnext" {
		t.Errorf("text=%q, want %q", got, "new\tline\nnext")
	}
}

const fieldBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:r><w:fldChar w:fldCharType="begin"/></w:r>` +
	`<w:r><w:instrText xml:space="preserve"> HYPERLINK "http://x" </w:instrText></w:r>` +
	`<w:r><w:fldChar w:fldCharType="separate"/></w:r>` +
	`<w:r><w:rPr><w:color w:val="0563C1"/></w:rPr><w:t>Veja</w:t></w:r>` +
	`<w:r><w:fldChar w:fldCharType="end"/></w:r>` +
	`<w:r><w:t xml:space="preserve"> o site</w:t></w:r></w:p>` +
	`</w:body></w:document>`

func TestSetText_FieldLedParagraph(t *testing.T) {
	t.Parallel()
	doc, err := docx.Read(buildArchive(t, [][2]string{
		{"[Content_Types].xml", "<Types/>"},
		{"word/document.xml", fieldBody},
	}))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	p := doc.Paragraphs()[0]
	if got := p.Text(); got != "Veja o site" {
		t.Fatalf("text=%q, want %q", got, "Veja o site")
	}
	p.SetText(p.Text() + ".")

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	xml := string(readPart(t, out, "word/document.xml"))
	sep := strings.Index(xml, `w:fldCharType="separate"`)
	text := strings.Index(xml, "Veja o site.")
	end := strings.Index(xml, `w:fldCharType="end"`)
	if sep < 0 || text < 0 || end < 0 || !(sep < text && text < end) {
		t.Errorf("patched text is not in the field result:\n%s", xml)
	}
	if !strings.Contains(xml, `HYPERLINK "http://x"`) {
		t.Errorf("field instruction lost:\n%s", xml)
	}
	if strings.Count(xml, "<w:t") != 1 {
		t.Errorf("want exactly one text element:\n%s", xml)
	}

	again, err := docx.Read(out)
	if err != nil {
		t.Fatalf("Read after write: %v", err)
	}
	rp := again.Paragraphs()[0]
	if got := rp.Text(); got != "Veja o site." {
		t.Errorf("text after round trip=%q, want %q", got, "Veja o site.")
	}
	if runs := rp.Runs(); len(runs) != 1 || runs[0].Style.Color != "0563C1" {
		t.Errorf("runs=%+v, want one run keeping the field result's color", runs)
	}
}

func readPart(t *testing.T, archive []byte, name string) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("reopen zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return b
	}
	t.Fatalf("part %s not found", name)
	return nil
}

func TestRewrite_StyledRuns(t *testing.T) {
	t.Parallel()
	doc, _ := openFormatted(t)
	p := doc.Paragraphs()[0]

	p.Rewrite([]docx.Run{
		{Text: "Hello "},
		{Text: "wrld", Style: docx.RunStyle{Strike: true, Color: "FF0000"}},
		{Text: "world", Style: docx.RunStyle{Underline: true, Color: "008000"}},
	})

	if got := p.Text(); got != "Hello wrldworld" {
		t.Fatalf("text=%q", got)
	}
	runs := p.Runs()
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if !runs[1].Style.Strike || runs[1].Style.Color != "FF0000" {
		t.Errorf("run 1 style=%+v, want red strike", runs[1].Style)
	}
	if !runs[2].Style.Underline || runs[2].Style.Color != "008000" {
		t.Errorf("run 2 style=%+v, want green underline", runs[2].Style)
	}
	for i, r := range runs {
		if r.Style.Font != "Arial" {
			t.Errorf("run %d font=%q, want inherited Arial", i, r.Style.Font)
		}
	}
}

func TestRoundTrip_PreservesOtherParts(t *testing.T) {
	t.Parallel()
	doc, _ := openFormatted(t)
	doc.Paragraphs()[0].SetText("Changed")

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("reopen zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Name != "word/styles.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open styles: %v", err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		if string(b) != "<w:styles>keep me</w:styles>" {
			t.Errorf("styles part changed: %q", b)
		}
	}
	if got := strings.Join(names, ","); got != "[Content_Types].xml,word/document.xml,word/styles.xml" {
		t.Errorf("part order=%s", got)
	}

	again, err := docx.Read(out)
	if err != nil {
		t.Fatalf("Read after write: %v", err)
	}
	if got := again.Paragraphs()[0].Text(); got != "Changed" {
		t.Errorf("text after round trip=%q, want %q", got, "Changed")
	}
}

func TestInsertParagraph_OrderAndSectPr(t *testing.T) {
	t.Parallel()
	doc := docx.New()
	doc.AppendParagraph("body one")
	doc.AppendParagraph("body two")

	for i, text := range []string{"first", "second", "third"} {
		doc.InsertParagraph(i).SetText(text)
	}
	doc.InsertParagraph(1000).SetText("last")

	var got []string
	for _, p := range doc.Paragraphs() {
		got = append(got, p.Text())
	}
	want := "first,second,third,body one,body two,last"
	if strings.Join(got, ",") != want {
		t.Errorf("order=%s, want %s", strings.Join(got, ","), want)
	}

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	zr, _ := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, _ := f.Open()
		b, _ := io.ReadAll(rc)
		rc.Close()
		xml := string(b)
		if !strings.HasSuffix(strings.TrimSpace(xml), "<w:sectPr/></w:body></w:document>") {
			t.Errorf("sectPr is not the last body child:\n%s", xml)
		}
	}
}

func TestAppendTable(t *testing.T) {
	t.Parallel()
	doc := docx.New()
	doc.AppendTable([][]string{{"a", "b"}, {"c"}})

	tables := doc.Tables()
	if len(tables) != 1 {
		t.Fatalf("got %d tables", len(tables))
	}
	rows := tables[0].Rows()
	if len(rows) != 2 || len(rows[0].Cells()) != 2 || len(rows[1].Cells()) != 1 {
		t.Fatalf("unexpected table shape")
	}
	if got := rows[1].Cells()[0].Paragraphs()[0].Text(); got != "c" {
		t.Errorf("cell text=%q, want %q", got, "c")
	}
}
