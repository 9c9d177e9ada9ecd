package chunk_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/revisa/internal/chunk"
	"github.com/MrWong99/revisa/internal/document"
)

type textNode struct{ s string }

func (n *textNode) Text() string     { return n.s }
func (n *textNode) SetText(s string) { n.s = s }

func units(lengths ...int) []*document.Unit {
	out := make([]*document.Unit, len(lengths))
	for i, l := range lengths {
		text := strings.Repeat("a", l)
		out[i] = &document.Unit{Seq: i + 1, Original: text, Node: &textNode{s: text}}
	}
	return out
}

func sizes(batches []chunk.Batch) []int {
	out := make([]int, len(batches))
	for i, b := range batches {
		out[i] = len(b.Units)
	}
	return out
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSplit_UnitCapBinds(t *testing.T) {
	t.Parallel()

	lengths := make([]int, 120)
	for i := range lengths {
		lengths[i] = 200
	}
	batches := chunk.New(10000).Split(units(lengths...))
	if got, want := sizes(batches), []int{50, 50, 20}; !equal(got, want) {
		t.Fatalf("batch sizes=%v, want %v", got, want)
	}
	for i, b := range batches {
		if b.Index != i {
			t.Errorf("batch %d: Index=%d", i, b.Index)
		}
	}
	if batches[1].First() != 51 || batches[1].Last() != 100 {
		t.Errorf("batch 1 covers %d..%d, want 51..100", batches[1].First(), batches[1].Last())
	}
}

func TestSplit_CharBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		max     int
		lengths []int
		want    []int
	}{
		{"exact fit", 100, []int{50, 50, 1}, []int{2, 1}},
		{"oversize unit alone", 100, []int{10, 500, 10}, []int{1, 1, 1}},
		{"oversize first", 100, []int{500, 10, 10}, []int{1, 2}},
		{"empty input", 100, nil, []int{}},
		{"default budget", 0, []int{9000, 1000, 1}, []int{2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := sizes(chunk.New(tt.max).Split(units(tt.lengths...)))
			if !equal(got, tt.want) {
				t.Errorf("batch sizes=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplit_CoversEveryUnitOnceInOrder(t *testing.T) {
	t.Parallel()

	in := units(30, 70, 5, 90, 10, 10, 10, 400, 1, 2, 3)
	batches := chunk.New(100, chunk.WithMaxUnits(3)).Split(in)

	seq := 0
	for _, b := range batches {
		if len(b.Units) > 3 {
			t.Errorf("batch %d has %d units, cap is 3", b.Index, len(b.Units))
		}
		if len(b.Units) > 1 && b.Chars() > 100 {
			t.Errorf("batch %d holds %d chars over budget", b.Index, b.Chars())
		}
		for _, u := range b.Units {
			seq++
			if u.Seq != seq {
				t.Fatalf("unit order broken: got seq %d, want %d", u.Seq, seq)
			}
		}
	}
	if seq != len(in) {
		t.Fatalf("covered %d units, want %d", seq, len(in))
	}
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("é", 60)
	in := []*document.Unit{
		{Seq: 1, Node: &textNode{s: text}},
		{Seq: 2, Node: &textNode{s: text}},
	}
	if got := sizes(chunk.New(120).Split(in)); !equal(got, []int{2}) {
		t.Errorf("batch sizes=%v, want [2]", got)
	}
}
