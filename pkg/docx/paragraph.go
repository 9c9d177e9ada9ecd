package docx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// RunStyle describes character formatting for a run. Zero-valued fields leave
// the inherited formatting untouched.
type RunStyle struct {
	Bold      bool
	Italic    bool
	Underline bool
	Strike    bool

	// Color is an RRGGBB hex value such as "FF0000".
	Color string

	// Font is the typeface applied to ASCII, high-ANSI and complex scripts.
	Font string

	// Size is the font size in points.
	Size float64
}

// Run is a piece of text together with its character formatting.
type Run struct {
	Text  string
	Style RunStyle
}

// Paragraph is a w:p element, either in the document body or inside a
// table cell.
type Paragraph struct {
	el *etree.Element
	w  string
}

// Text returns the paragraph's plain text: the concatenation of every text
// run, with tabs and line breaks rendered as '\t' and '\n'. Deleted tracked
// changes are not included.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.textRuns() {
		p.writeRunText(&sb, r)
	}
	return sb.String()
}

// SetText replaces the paragraph's text. The new text goes into the first
// run that holds text, which keeps its run properties; the remaining text
// runs are emptied and dropped. Paragraph properties and field codes are
// never touched.
func (p *Paragraph) SetText(text string) {
	runs := p.textRuns()
	var first *etree.Element
	for _, r := range runs {
		if p.hasText(r) {
			first = r
			break
		}
	}
	if first == nil {
		first = p.el.CreateElement(p.w + ":r")
	}
	p.clearRunText(first)
	p.appendText(first, text)
	for _, r := range runs {
		if r != first {
			p.dropRun(r)
		}
	}
}

// AddRun appends a new run holding text with the given style.
func (p *Paragraph) AddRun(text string, style RunStyle) {
	r := p.el.CreateElement(p.w + ":r")
	p.applyStyle(r, nil, style)
	p.appendText(r, text)
}

// Rewrite replaces all text runs with runs. Each new run starts from the run
// properties of the paragraph's original first text run, so the font and size
// of the surrounding text carry over, and then applies its own style on top.
func (p *Paragraph) Rewrite(runs []Run) {
	var base *etree.Element
	existing := p.textRuns()
	if len(existing) > 0 {
		if rPr := p.child(existing[0], "rPr"); rPr != nil {
			base = rPr.Copy()
		}
	}
	for _, r := range existing {
		p.dropRun(r)
	}
	for _, run := range runs {
		r := p.el.CreateElement(p.w + ":r")
		p.applyStyle(r, base, run.Style)
		p.appendText(r, run.Text)
	}
}

// Runs returns the paragraph's text runs with the subset of formatting that
// [RunStyle] models. Runs without text are skipped.
func (p *Paragraph) Runs() []Run {
	var out []Run
	for _, r := range p.textRuns() {
		var sb strings.Builder
		p.writeRunText(&sb, r)
		if sb.Len() == 0 {
			continue
		}
		out = append(out, Run{Text: sb.String(), Style: p.readStyle(p.child(r, "rPr"))})
	}
	return out
}

// textRuns collects w:r elements in document order, descending into
// hyperlinks, insertions, smart tags and content controls but skipping
// deletions and property blocks. Field-code runs (w:fldChar and the
// instruction runs between "begin" and "separate") are skipped; the runs of
// a field's result are kept.
func (p *Paragraph) textRuns() []*etree.Element {
	var out []*etree.Element
	// One entry per open complex field: true while in its instruction part.
	var fields []bool
	inInstruction := func() bool {
		for _, instr := range fields {
			if instr {
				return true
			}
		}
		return false
	}
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if c.Space != p.w {
				continue
			}
			switch c.Tag {
			case "r":
				if fc := p.child(c, "fldChar"); fc != nil {
					switch fc.SelectAttrValue(p.w+":fldCharType", "") {
					case "begin":
						fields = append(fields, true)
					case "separate":
						if n := len(fields); n > 0 {
							fields[n-1] = false
						}
					case "end":
						if n := len(fields); n > 0 {
							fields = fields[:n-1]
						}
					}
					continue
				}
				if inInstruction() {
					continue
				}
				out = append(out, c)
			case "pPr", "del", "moveFrom":
			default:
				walk(c)
			}
		}
	}
	walk(p.el)
	return out
}

func (p *Paragraph) writeRunText(sb *strings.Builder, r *etree.Element) {
	for _, c := range r.ChildElements() {
		if c.Space != p.w {
			continue
		}
		switch c.Tag {
		case "t":
			sb.WriteString(c.Text())
		case "tab":
			sb.WriteByte('\t')
		case "br", "cr":
			sb.WriteByte('\n')
		case "noBreakHyphen":
			sb.WriteByte('-')
		}
	}
}

func (p *Paragraph) hasText(r *etree.Element) bool {
	for _, c := range r.ChildElements() {
		if c.Space == p.w && isTextElement(c.Tag) {
			return true
		}
	}
	return false
}

func isTextElement(tag string) bool {
	switch tag {
	case "t", "tab", "br", "cr", "noBreakHyphen":
		return true
	}
	return false
}

func (p *Paragraph) clearRunText(r *etree.Element) {
	for _, c := range r.ChildElements() {
		if c.Space == p.w && isTextElement(c.Tag) {
			r.RemoveChild(c)
		}
	}
}

// dropRun removes the text of r, and r itself when nothing but run
// properties remain (drawings, fields and the like are kept).
func (p *Paragraph) dropRun(r *etree.Element) {
	p.clearRunText(r)
	for _, c := range r.ChildElements() {
		if !(c.Space == p.w && c.Tag == "rPr") {
			return
		}
	}
	if parent := r.Parent(); parent != nil {
		parent.RemoveChild(r)
	}
}

// appendText writes text into r as w:t, w:tab and w:br elements.
func (p *Paragraph) appendText(r *etree.Element, text string) {
	var seg strings.Builder
	flush := func() {
		if seg.Len() == 0 {
			return
		}
		t := r.CreateElement(p.w + ":t")
		t.CreateAttr("xml:space", "preserve")
		t.SetText(seg.String())
		seg.Reset()
	}
	for _, ch := range text {
		switch ch {
		case '\t':
			flush()
			r.CreateElement(p.w + ":tab")
		case '\n':
			flush()
			r.CreateElement(p.w + ":br")
		default:
			seg.WriteRune(ch)
		}
	}
	flush()
}

func (p *Paragraph) child(e *etree.Element, local string) *etree.Element {
	for _, c := range e.ChildElements() {
		if c.Tag == local && c.Space == p.w {
			return c
		}
	}
	return nil
}

// rPrOrder is the schema order of w:rPr children (CT_RPr). Word rejects run
// properties that appear out of order.
var rPrOrder = map[string]int{
	"rStyle": 0, "rFonts": 1, "b": 2, "bCs": 3, "i": 4, "iCs": 5, "caps": 6,
	"smallCaps": 7, "strike": 8, "dstrike": 9, "outline": 10, "shadow": 11,
	"emboss": 12, "imprint": 13, "noProof": 14, "snapToGrid": 15, "vanish": 16,
	"webHidden": 17, "color": 18, "spacing": 19, "w": 20, "kern": 21,
	"position": 22, "sz": 23, "szCs": 24, "highlight": 25, "u": 26,
	"effect": 27, "bdr": 28, "shd": 29, "fitText": 30, "vertAlign": 31,
	"rtl": 32, "cs": 33, "em": 34, "lang": 35, "eastAsianLayout": 36,
	"specVanish": 37, "oMath": 38,
}

// applyStyle gives r a w:rPr built from base (may be nil) and style.
func (p *Paragraph) applyStyle(r *etree.Element, base *etree.Element, style RunStyle) {
	var rPr *etree.Element
	if base != nil {
		rPr = base.Copy()
	} else {
		rPr = etree.NewElement(p.w + ":rPr")
	}

	if style.Font != "" {
		p.setProp(rPr, "rFonts", "ascii", style.Font, "hAnsi", style.Font, "cs", style.Font)
	}
	if style.Bold {
		p.setProp(rPr, "b")
	}
	if style.Italic {
		p.setProp(rPr, "i")
	}
	if style.Strike {
		p.setProp(rPr, "strike")
	}
	if style.Color != "" {
		p.setProp(rPr, "color", "val", style.Color)
	}
	if style.Size > 0 {
		half := strconv.Itoa(int(style.Size * 2))
		p.setProp(rPr, "sz", "val", half)
		p.setProp(rPr, "szCs", "val", half)
	}
	if style.Underline {
		p.setProp(rPr, "u", "val", "single")
	}

	if len(rPr.ChildElements()) == 0 {
		return
	}
	r.InsertChildAt(0, rPr)
}

// setProp replaces (or inserts, in schema order) the rPr child local with
// the given w:-prefixed attribute pairs.
func (p *Paragraph) setProp(rPr *etree.Element, local string, attrs ...string) {
	if old := p.child(rPr, local); old != nil {
		rPr.RemoveChild(old)
	}
	el := etree.NewElement(p.w + ":" + local)
	for i := 0; i+1 < len(attrs); i += 2 {
		el.CreateAttr(p.w+":"+attrs[i], attrs[i+1])
	}

	rank, known := rPrOrder[local]
	for _, c := range rPr.ChildElements() {
		cr, ok := rPrOrder[c.Tag]
		if known && (!ok || cr > rank) {
			rPr.InsertChildAt(c.Index(), el)
			return
		}
	}
	rPr.AddChild(el)
}

// readStyle extracts the [RunStyle] subset from a w:rPr element.
func (p *Paragraph) readStyle(rPr *etree.Element) RunStyle {
	var s RunStyle
	if rPr == nil {
		return s
	}
	val := func(e *etree.Element) string {
		return e.SelectAttrValue(p.w+":val", "")
	}
	on := func(e *etree.Element) bool {
		switch val(e) {
		case "0", "false", "off", "none":
			return false
		}
		return true
	}
	for _, c := range rPr.ChildElements() {
		if c.Space != p.w {
			continue
		}
		switch c.Tag {
		case "b":
			s.Bold = on(c)
		case "i":
			s.Italic = on(c)
		case "strike":
			s.Strike = on(c)
		case "u":
			s.Underline = on(c)
		case "color":
			s.Color = val(c)
		case "rFonts":
			s.Font = c.SelectAttrValue(p.w+":ascii", "")
		case "sz":
			if n, err := strconv.Atoi(val(c)); err == nil {
				s.Size = float64(n) / 2
			}
		}
	}
	return s
}
