// Package revision resolves reported corrections to document units, applies
// them to the live text, and accounts for every change that ends up in the
// output.
//
// The stages are independent and individually testable:
//
//   - [Resolve] picks the unit a [Suggestion] refers to.
//   - [Apply] patches one substring of a unit's text.
//   - [Classify] infers an error/correction pair from two versions of a text.
//   - [Reconcile] synthesizes a [Record] for every changed unit that no applied
//     record accounts for.
package revision

import (
	"errors"
	"strings"
)

// Categories used by the classifier and by reconciliation. Categories that
// come from the language model are free-form and kept verbatim.
const (
	CategoryPunctuation    = "punctuation"
	CategoryCapitalization = "capitalization"
	CategorySpelling       = "spelling/grammar"
	CategoryAddition       = "addition"
	CategoryRemoval        = "removal"
	CategoryOther          = "other"
	CategoryAutoDetected   = "auto-detected"
)

// Sentinel error and correction texts for changes that have no literal
// counterpart on one side.
const (
	MarkerMissingPeriod = "[missing period]"
	MarkerMissingComma  = "[missing comma]"
	MarkerMissing       = "[missing]"
	MarkerRemoved       = "[removed]"
	MarkerSubtle        = "subtle change"
	MarkerTextChanged   = "text changed"
)

// IsMarker reports whether s is one of the synthetic sentinel texts rather
// than text taken from the document.
func IsMarker(s string) bool {
	switch s {
	case MarkerMissingPeriod, MarkerMissingComma, MarkerMissing, MarkerRemoved, MarkerSubtle, MarkerTextChanged:
		return true
	}
	return false
}

// Source records where a [Record] came from.
type Source string

const (
	// SourceModel marks corrections reported by the language model.
	SourceModel Source = "model"

	// SourceAutoDetected marks records synthesized by [Reconcile].
	SourceAutoDetected Source = "auto-detected"

	// SourceComparison marks records produced by comparing two documents.
	SourceComparison Source = "comparison"
)

var (
	// ErrUnresolved is reported when a suggestion matches no unit of its batch.
	ErrUnresolved = errors.New("revision: correction matches no unit")

	// ErrPatchFailed is returned by [Apply] when no strategy changes the text.
	ErrPatchFailed = errors.New("revision: patch not applicable")

	// ErrGuardRejected is returned by [Guard.Check] when a patch would alter
	// protected markup, URLs, or change the text length too much.
	ErrGuardRejected = errors.New("revision: patch rejected by guard")
)

// Suggestion is one correction as reported by the language model, before it
// is matched to a unit.
type Suggestion struct {
	// Paragraph is the advisory sequence number; 0 when absent.
	Paragraph  int    `json:"paragraph"`
	Error      string `json:"error"`
	Correction string `json:"correction"`
	Type       string `json:"type"`
}

// Usable reports whether both sides of the suggestion are non-empty.
func (s Suggestion) Usable() bool {
	return strings.TrimSpace(s.Error) != "" && strings.TrimSpace(s.Correction) != ""
}

// Record is one reported or inferred change. Records are immutable once
// created and collected in discovery order.
type Record struct {
	Seq        int    `json:"paragraph"`
	Location   string `json:"location"`
	Page       int    `json:"page_estimate"`
	Error      string `json:"error"`
	Correction string `json:"correction"`
	Category   string `json:"type"`

	// Subcategory carries the classifier's category for auto-detected records.
	Subcategory string `json:"subtype,omitempty"`

	Source Source `json:"source"`

	// Original and Corrected are full-unit snapshots for audit.
	Original  string `json:"original_text"`
	Corrected string `json:"corrected_text"`

	Applied bool `json:"applied"`

	// Strategy names the patch strategy that applied the record.
	Strategy string `json:"strategy,omitempty"`

	// Reason explains why an unapplied record failed.
	Reason string `json:"reason,omitempty"`

	// Hint is the closest span of the unit text to a failed error text.
	Hint string `json:"hint,omitempty"`
}
