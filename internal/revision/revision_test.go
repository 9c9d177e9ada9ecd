package revision_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/revisa/internal/document"
	"github.com/MrWong99/revisa/internal/revision"
)

type textNode struct{ s string }

func (n *textNode) Text() string     { return n.s }
func (n *textNode) SetText(s string) { n.s = s }

func unit(seq int, text string) *document.Unit {
	return &document.Unit{
		Seq:      seq,
		Kind:     document.KindParagraph,
		Label:    "Paragraph " + string(rune('0'+seq)),
		Original: text,
		Node:     &textNode{s: text},
	}
}

// panicNode panics on SetText.
type panicNode struct{ textNode }

func (n *panicNode) SetText(string) { panic("boom") }

// ── Matcher ──────────────────────────────────────────────────────────────────

func TestResolve_LocationBeatsContent(t *testing.T) {
	t.Parallel()

	batch := []*document.Unit{unit(4, "the teh cat"), unit(5, "teh dog")}
	m := revision.Resolve(revision.Suggestion{Paragraph: 5, Error: "teh", Correction: "the"}, batch)
	if m.Strategy != revision.ByLocation || m.Unit.Seq != 5 {
		t.Fatalf("got %v seq=%v, want by_location seq 5", m.Strategy, m.Unit)
	}
}

func TestResolve_Fallbacks(t *testing.T) {
	t.Parallel()

	batch := []*document.Unit{unit(1, "alpha beta"), unit(2, "gamma beta"), unit(3, "delta")}
	tests := []struct {
		name     string
		s        revision.Suggestion
		strategy revision.Strategy
		seq      int
	}{
		{"hint outside batch falls back to content", revision.Suggestion{Paragraph: 9, Error: "delta"}, revision.ByContent, 3},
		{"no hint, first occurrence wins", revision.Suggestion{Error: "beta"}, revision.ByContent, 1},
		{"negative hint ignored", revision.Suggestion{Paragraph: -2, Error: "gamma"}, revision.ByContent, 2},
		{"nothing matches", revision.Suggestion{Paragraph: 7, Error: "omega"}, revision.Unresolved, 0},
		{"empty error", revision.Suggestion{Paragraph: 1, Error: " "}, revision.Unresolved, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := revision.Resolve(tt.s, batch)
			if m.Strategy != tt.strategy {
				t.Fatalf("strategy=%v, want %v", m.Strategy, tt.strategy)
			}
			if tt.seq == 0 {
				if m.Unit != nil {
					t.Errorf("unit=%+v, want nil", m.Unit)
				}
				return
			}
			if m.Unit.Seq != tt.seq {
				t.Errorf("seq=%d, want %d", m.Unit.Seq, tt.seq)
			}
		})
	}
}

// ── Patcher ──────────────────────────────────────────────────────────────────

func TestApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		err      string
		fix      string
		want     string
		strategy revision.PatchStrategy
	}{
		{"exact first occurrence", "teh cat and teh dog", "teh", "the", "the cat and teh dog", revision.PatchExact},
		{"case insensitive discards casing", "Recieve it", "recieve", "receive", "receive it", revision.PatchCaseInsensitive},
		{"case insensitive with metachars", "Costs $5 (Approx.)", "(approx.)", "(approximately)", "Costs $5 (approximately)", revision.PatchCaseInsensitive},
		{"whitespace normalized", "a  b c", " b c ", " B C ", "a  B C", revision.PatchWhitespace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, strategy, err := revision.Apply(tt.text, tt.err, tt.fix)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got != tt.want {
				t.Errorf("got=%q, want %q", got, tt.want)
			}
			if strategy != tt.strategy {
				t.Errorf("strategy=%q, want %q", strategy, tt.strategy)
			}
		})
	}
}

func TestApply_FailureLeavesTextUntouched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, text, err, fix string
	}{
		{"not found", "hello world", "planet", "globe"},
		{"no-op replacement", "hello world", "world", "world"},
		{"case-insensitive no-op", "Hello world", "hello", "Hello"},
		{"collapsed match but literal absent", "a  b", "a b", "a-b"},
		{"empty error", "hello", "", "x"},
		{"empty correction", "hello", "hello", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, _, err := revision.Apply(tt.text, tt.err, tt.fix)
			if !errors.Is(err, revision.ErrPatchFailed) {
				t.Fatalf("err=%v, want ErrPatchFailed", err)
			}
			if got != tt.text {
				t.Errorf("text changed on failure: %q -> %q", tt.text, got)
			}
		})
	}
}

// ── Applier ──────────────────────────────────────────────────────────────────

func TestAttempt_Applied(t *testing.T) {
	t.Parallel()

	u := unit(2, "I recieve mail")
	rec, m, err := revision.Applier{}.Attempt(
		revision.Suggestion{Paragraph: 2, Error: "recieve", Correction: "receive", Type: "spelling"},
		[]*document.Unit{unit(1, "x"), u},
	)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if m.Strategy != revision.ByLocation {
		t.Errorf("strategy=%v", m.Strategy)
	}
	if !rec.Applied || rec.Seq != 2 || rec.Category != "spelling" || rec.Source != revision.SourceModel {
		t.Errorf("record=%+v", rec)
	}
	if rec.Original != "I recieve mail" || rec.Corrected != "I receive mail" {
		t.Errorf("snapshots=%q -> %q", rec.Original, rec.Corrected)
	}
	if u.Text() != "I receive mail" {
		t.Errorf("unit text=%q", u.Text())
	}
	if rec.Strategy != string(revision.PatchExact) {
		t.Errorf("patch strategy=%q", rec.Strategy)
	}
}

func TestAttempt_FailureKeepsUnitAndHints(t *testing.T) {
	t.Parallel()

	u := unit(1, "the quick brown fox")
	rec, _, err := revision.Applier{}.Attempt(
		revision.Suggestion{Paragraph: 1, Error: "quikc brown", Correction: "quick brown"},
		[]*document.Unit{u},
	)
	if !errors.Is(err, revision.ErrPatchFailed) {
		t.Fatalf("err=%v, want ErrPatchFailed", err)
	}
	if rec.Applied || rec.Reason != "not_found" {
		t.Errorf("record=%+v, want unapplied not_found", rec)
	}
	if rec.Hint != "quick brown" {
		t.Errorf("hint=%q, want %q", rec.Hint, "quick brown")
	}
	if rec.Category != revision.CategoryOther {
		t.Errorf("category=%q, want %q for untyped suggestion", rec.Category, revision.CategoryOther)
	}
	if u.Text() != "the quick brown fox" {
		t.Errorf("unit mutated: %q", u.Text())
	}
}

func TestAttempt_Unresolved(t *testing.T) {
	t.Parallel()

	_, m, err := revision.Applier{}.Attempt(revision.Suggestion{Error: "zzz", Correction: "z"}, []*document.Unit{unit(1, "abc")})
	if !errors.Is(err, revision.ErrUnresolved) || m.Strategy != revision.Unresolved {
		t.Fatalf("err=%v strategy=%v", err, m.Strategy)
	}
}

func TestAttempt_GuardRejects(t *testing.T) {
	t.Parallel()

	u := unit(1, "See [Figure 1] for details.")
	rec, _, err := revision.Applier{Guard: &revision.Guard{}}.Attempt(
		revision.Suggestion{Paragraph: 1, Error: "[Figure 1]", Correction: "Figure 1"},
		[]*document.Unit{u},
	)
	if !errors.Is(err, revision.ErrGuardRejected) {
		t.Fatalf("err=%v, want ErrGuardRejected", err)
	}
	if rec.Applied || rec.Reason != "guard" {
		t.Errorf("record=%+v", rec)
	}
	if u.Text() != "See [Figure 1] for details." {
		t.Errorf("unit mutated: %q", u.Text())
	}
}

func TestAttempt_RecoversPanic(t *testing.T) {
	t.Parallel()

	u := &document.Unit{Seq: 1, Label: "Paragraph 1", Original: "abc", Node: &panicNode{textNode{s: "abc"}}}
	rec, _, err := revision.Applier{}.Attempt(revision.Suggestion{Paragraph: 1, Error: "b", Correction: "B"}, []*document.Unit{u})
	if !errors.Is(err, revision.ErrPatchFailed) {
		t.Fatalf("err=%v, want ErrPatchFailed", err)
	}
	if rec.Applied {
		t.Errorf("record marked applied after panic")
	}
	if u.Text() != "abc" {
		t.Errorf("unit text=%q", u.Text())
	}
}

// ── Guard ────────────────────────────────────────────────────────────────────

func TestGuard(t *testing.T) {
	t.Parallel()

	g := revision.Guard{}
	tests := []struct {
		name          string
		before, after string
		ok            bool
	}{
		{"small edit", "The cat sat on teh mat.", "The cat sat on the mat.", true},
		{"url changed", "Visit https://a.example/x now", "Visit https://a.example/y now", false},
		{"markup dropped", "Answer [A] here", "Answer A here", false},
		{"period after url", "Leia https://a.example/x", "Leia https://a.example/x.", true},
		{"too long", "short text", "short text that became much much longer", false},
		{"too short", "a reasonably long sentence", "a sentence", false},
		{"empty before", "", "anything", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := g.Check(tt.before, tt.after)
			if tt.ok && err != nil {
				t.Errorf("Check: %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, revision.ErrGuardRejected) {
				t.Errorf("Check: %v, want ErrGuardRejected", err)
			}
		})
	}
}

// ── Classifier & reconciliation ──────────────────────────────────────────────

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		original, revised string
		err, fix, cat     string
		rule              revision.Rule
	}{
		{"missing period", "Hello world", "Hello world.", revision.MarkerMissingPeriod, ".", revision.CategoryPunctuation, revision.RuleAppendedPeriod},
		{"missing comma", "Hello world", "Hello world,", revision.MarkerMissingComma, ",", revision.CategoryPunctuation, revision.RuleAppendedComma},
		{"first letter case", "ola mundo", "Ola mundo", "o", "O", revision.CategoryCapitalization, revision.RuleFirstLetter},
		{"first letter case non-ascii", "élan vital", "Élan vital", "é", "É", revision.CategoryCapitalization, revision.RuleFirstLetter},
		{"word replaced", "o gato preto corre", "o gato branco corre", "preto", "branco", revision.CategorySpelling, revision.RuleSingleSpan},
		{"word added", "see you", "see you soon", revision.MarkerMissing, "soon", revision.CategoryAddition, revision.RuleSingleSpan},
		{"word removed", "the the cat", "the cat", "the", revision.MarkerRemoved, revision.CategoryRemoval, revision.RuleSingleSpan},
		{"several edits", "a b c d", "x b c y", "a", "x", revision.CategoryOther, revision.RuleMultiSpan},
		{"whitespace only", "a b", "a  b", revision.MarkerSubtle, revision.MarkerTextChanged, revision.CategoryOther, revision.RuleSubtle},
		{"mid-text case change", "in paris", "in Paris", "paris", "Paris", revision.CategorySpelling, revision.RuleSingleSpan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := revision.Classify(tt.original, tt.revised)
			if c.Error != tt.err || c.Correction != tt.fix || c.Category != tt.cat || c.Rule != tt.rule {
				t.Errorf("got=%+v, want error=%q correction=%q category=%q rule=%q", c, tt.err, tt.fix, tt.cat, tt.rule)
			}
		})
	}
}

func TestReconcile_CoversSilentChanges(t *testing.T) {
	t.Parallel()

	units := []*document.Unit{unit(1, "Hello world"), unit(2, "untouched"), unit(3, "teh end"), unit(4, "ola mundo")}
	units[0].SetText("Hello world.")
	units[2].SetText("the end")
	units[3].SetText("Ola mundo")

	records := []revision.Record{
		{Seq: 3, Applied: true},
		{Seq: 4, Applied: false},
	}
	got := revision.Reconcile(units, records)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(got), got)
	}

	if r := got[0]; r.Seq != 1 || r.Error != revision.MarkerMissingPeriod || r.Correction != "." ||
		r.Category != revision.CategoryAutoDetected || r.Subcategory != revision.CategoryPunctuation ||
		r.Source != revision.SourceAutoDetected || !r.Applied {
		t.Errorf("record 0=%+v", r)
	}
	if r := got[1]; r.Seq != 4 || r.Error != "o" || r.Correction != "O" || r.Subcategory != revision.CategoryCapitalization {
		t.Errorf("record 1=%+v", r)
	}
	if got[1].Original != "ola mundo" || got[1].Corrected != "Ola mundo" {
		t.Errorf("snapshots=%q -> %q", got[1].Original, got[1].Corrected)
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	u := unit(6, "Hello world")
	if _, ok := revision.Compare(u); ok {
		t.Fatal("unchanged unit produced a record")
	}
	u.SetText("Hello world.")
	rec, ok := revision.Compare(u)
	if !ok {
		t.Fatal("changed unit produced no record")
	}
	if rec.Category != revision.CategoryPunctuation || rec.Source != revision.SourceComparison || rec.Page != 2 {
		t.Errorf("record=%+v", rec)
	}
}

func TestNearestCandidate(t *testing.T) {
	t.Parallel()

	span, score, dist, ok := revision.NearestCandidate("we will recieve the package tomorrow", "receive")
	if !ok || span != "recieve" {
		t.Fatalf("span=%q ok=%v score=%v", span, ok, score)
	}
	if dist != 2 {
		t.Errorf("distance=%d, want 2", dist)
	}
	if _, _, _, ok := revision.NearestCandidate("completely unrelated words", "xylophone"); ok {
		t.Error("unexpected hint for unrelated text")
	}
	if _, _, _, ok := revision.NearestCandidate("", "x"); ok {
		t.Error("unexpected hint for empty text")
	}
}

func TestIsMarker(t *testing.T) {
	t.Parallel()
	for _, m := range []string{revision.MarkerMissingPeriod, revision.MarkerMissingComma, revision.MarkerMissing, revision.MarkerRemoved} {
		if !revision.IsMarker(m) {
			t.Errorf("IsMarker(%q)=false", m)
		}
	}
	if revision.IsMarker("[Figure 1]") {
		t.Error("IsMarker accepted document text")
	}
}
