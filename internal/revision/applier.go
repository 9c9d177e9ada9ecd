package revision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/revisa/internal/document"
)

// Applier resolves suggestions against a batch and patches the matched unit.
// The zero value applies patches without a guard.
type Applier struct {
	// Guard, when non-nil, vets every successful patch before it is written
	// to the unit.
	Guard *Guard
}

// Attempt resolves s against batch and applies it to the matched unit.
//
// An unresolved suggestion returns [ErrUnresolved] and no record. A matched
// suggestion always yields a record: Applied is true when the unit text was
// changed; otherwise the error wraps [ErrPatchFailed] or [ErrGuardRejected],
// the record carries the failure reason and a nearest-candidate hint, and
// the unit text is left exactly as it was. A panic while patching is
// recovered and reported as a patch failure.
func (a Applier) Attempt(s Suggestion, batch []*document.Unit) (rec Record, m Match, err error) {
	m = Resolve(s, batch)
	if m.Strategy == Unresolved {
		return Record{}, m, fmt.Errorf("%w: %q", ErrUnresolved, s.Error)
	}
	u := m.Unit
	before := u.Text()

	rec = Record{
		Seq:        u.Seq,
		Location:   u.Label,
		Page:       u.Page(),
		Error:      s.Error,
		Correction: s.Correction,
		Category:   categoryOf(s),
		Source:     SourceModel,
		Original:   before,
		Corrected:  before,
	}

	defer func() {
		if r := recover(); r != nil {
			if u.Text() != before {
				u.SetText(before)
			}
			rec.Applied, rec.Corrected = false, before
			rec.Reason = fmt.Sprintf("panic: %v", r)
			err = fmt.Errorf("%w: recovered panic: %v", ErrPatchFailed, r)
		}
	}()

	after, strategy, err := Apply(before, s.Error, s.Correction)
	if err == nil && a.Guard != nil {
		err = a.Guard.Check(before, after)
	}
	if err != nil {
		rec.Reason = reasonOf(err)
		if !s.Usable() {
			rec.Reason = "empty"
		}
		if span, _, _, ok := NearestCandidate(before, s.Error); ok {
			rec.Hint = span
		}
		return rec, m, err
	}

	u.SetText(after)
	rec.Applied = true
	rec.Corrected = after
	rec.Strategy = string(strategy)
	return rec, m, nil
}

func categoryOf(s Suggestion) string {
	if t := strings.TrimSpace(s.Type); t != "" {
		return t
	}
	return CategoryOther
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, ErrGuardRejected):
		return "guard"
	case errors.Is(err, ErrPatchFailed):
		return "not_found"
	default:
		return err.Error()
	}
}
