package llmreview

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// A URL never ends in sentence punctuation or a closing bracket.
	urlPattern    = regexp.MustCompile(`https?://[^\s]*[^\s.,;:!?)\]]`)
	markupPattern = regexp.MustCompile(`\[[^\]]+\]`)
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// protector swaps URLs, bracketed markup and e-mail addresses for numbered
// placeholders so the model cannot rewrite them. One protector covers one
// batch; the counter is shared by all kinds, so every placeholder is unique
// within the batch. Identical values share a placeholder.
type protector struct {
	next      int
	byValue   map[string]string
	originals map[string]string
}

func newProtector() *protector {
	return &protector{
		byValue:   make(map[string]string),
		originals: make(map[string]string),
	}
}

// protect returns text with URLs replaced first, then markup, then e-mails.
func (p *protector) protect(text string) string {
	text = urlPattern.ReplaceAllStringFunc(text, func(m string) string { return p.placeholder("URL", m) })
	text = markupPattern.ReplaceAllStringFunc(text, func(m string) string { return p.placeholder("MARKUP", m) })
	text = emailPattern.ReplaceAllStringFunc(text, func(m string) string { return p.placeholder("EMAIL", m) })
	return text
}

// placeholder registers value under a new placeholder. A value that already
// contains placeholders (a URL inside markup) is stored fully restored, so a
// single restore pass always recovers the original text.
func (p *protector) placeholder(kind, value string) string {
	value = p.restore(value)
	if ph, ok := p.byValue[value]; ok {
		return ph
	}
	ph := fmt.Sprintf("__%s_%d__", kind, p.next)
	p.next++
	p.byValue[value] = ph
	p.originals[ph] = value
	return ph
}

// restore puts the original values back into s.
func (p *protector) restore(s string) string {
	if len(p.originals) == 0 || !strings.Contains(s, "__") {
		return s
	}
	pairs := make([]string, 0, 2*len(p.originals))
	for ph, v := range p.originals {
		pairs = append(pairs, ph, v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// len returns the number of distinct protected values.
func (p *protector) len() int { return len(p.originals) }
