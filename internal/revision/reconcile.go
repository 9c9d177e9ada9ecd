package revision

import (
	"github.com/MrWong99/revisa/internal/document"
)

// Reconcile returns one auto-detected record for every unit whose live text
// differs from its original but that no applied record in records refers to.
// The live text is treated as the truth about what changed; the returned
// records are in unit order and are meant to be appended to records.
func Reconcile(units []*document.Unit, records []Record) []Record {
	covered := make(map[int]bool, len(records))
	for _, r := range records {
		if r.Applied {
			covered[r.Seq] = true
		}
	}

	var out []Record
	for _, u := range units {
		live := u.Text()
		if live == u.Original || covered[u.Seq] {
			continue
		}
		c := Classify(u.Original, live)
		out = append(out, Record{
			Seq:         u.Seq,
			Location:    u.Label,
			Page:        u.Page(),
			Error:       c.Error,
			Correction:  c.Correction,
			Category:    CategoryAutoDetected,
			Subcategory: c.Category,
			Source:      SourceAutoDetected,
			Original:    u.Original,
			Corrected:   live,
			Applied:     true,
			Strategy:    string(c.Rule),
		})
	}
	return out
}

// Compare returns the record describing how u changed, for comparing two
// documents. The second return value is false when u is unchanged.
func Compare(u *document.Unit) (Record, bool) {
	live := u.Text()
	if live == u.Original {
		return Record{}, false
	}
	c := Classify(u.Original, live)
	return Record{
		Seq:        u.Seq,
		Location:   u.Label,
		Page:       u.Page(),
		Error:      c.Error,
		Correction: c.Correction,
		Category:   c.Category,
		Source:     SourceComparison,
		Original:   u.Original,
		Corrected:  live,
		Applied:    true,
		Strategy:   string(c.Rule),
	}, true
}
