package revision

import (
	"slices"
	"testing"
)

func TestWordBoundaryReplace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, text, err, fix string
		want                 string
		ok                   bool
	}{
		{"skips word prefix", "tehran and teh cat", "teh", "the", "tehran and the cat", true},
		{"only inside a word", "tehran", "teh", "the", "", false},
		{"metacharacters are literal", "custo 5.0 total", "5.0", "5,0", "custo 5,0 total", true},
		{"dot is not a wildcard", "custo 5x0 total", "5.0", "5,0", "", false},
		{"first whole word only", "teh teh", "teh", "the", "the teh", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := wordBoundaryReplace(tt.text, tt.err, tt.fix)
			if ok != tt.ok {
				t.Fatalf("ok=%v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("got=%q, want %q", got, tt.want)
			}
		})
	}
}

func TestPatchSteps_Order(t *testing.T) {
	t.Parallel()

	var got []PatchStrategy
	for _, s := range patchSteps {
		got = append(got, s.name)
	}
	want := []PatchStrategy{PatchExact, PatchWordBoundary, PatchCaseInsensitive, PatchWhitespace}
	if !slices.Equal(got, want) {
		t.Errorf("got=%q, want %q", got, want)
	}
}
