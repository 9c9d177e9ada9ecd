// Package chunk groups consecutive units into bounded batches for one
// language-model call each.
package chunk

import (
	"unicode/utf8"

	"github.com/MrWong99/revisa/internal/document"
)

const (
	// DefaultMaxChars is the default character budget of one batch.
	DefaultMaxChars = 10000

	// MaxUnits is the fixed cap on units per batch.
	MaxUnits = 50
)

// Batch is a contiguous, ordered run of units.
type Batch struct {
	// Index is the 0-based position of the batch in the run.
	Index int
	Units []*document.Unit
}

// First returns the sequence number of the first unit, or 0 for an empty batch.
func (b Batch) First() int {
	if len(b.Units) == 0 {
		return 0
	}
	return b.Units[0].Seq
}

// Last returns the sequence number of the last unit, or 0 for an empty batch.
func (b Batch) Last() int {
	if len(b.Units) == 0 {
		return 0
	}
	return b.Units[len(b.Units)-1].Seq
}

// Chars returns the total live character count of the batch.
func (b Batch) Chars() int {
	n := 0
	for _, u := range b.Units {
		n += utf8.RuneCountInString(u.Text())
	}
	return n
}

// Chunker packs units greedily. The zero value is not usable; construct with
// [New].
type Chunker struct {
	maxChars int
	maxUnits int
}

// Option configures a [Chunker].
type Option func(*Chunker)

// WithMaxUnits overrides the per-batch unit cap. Values below 1 are ignored.
// Only tests need this; production runs use [MaxUnits].
func WithMaxUnits(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxUnits = n
		}
	}
}

// New returns a Chunker with the given character budget. A non-positive
// maxChars selects [DefaultMaxChars].
func New(maxChars int, opts ...Option) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	c := &Chunker{maxChars: maxChars, maxUnits: MaxUnits}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Split covers units exactly once, in order. A unit is added to the current
// batch while the running character total stays within the budget and the
// batch holds fewer than the unit cap; otherwise the current batch is closed
// and the unit starts the next one. A unit longer than the budget still gets
// a batch of its own and is never split.
func (c *Chunker) Split(units []*document.Unit) []Batch {
	var (
		batches []Batch
		current []*document.Unit
		running int
	)
	for _, u := range units {
		n := utf8.RuneCountInString(u.Text())
		if len(current) > 0 && (running+n > c.maxChars || len(current) >= c.maxUnits) {
			batches = append(batches, Batch{Index: len(batches), Units: current})
			current, running = nil, 0
		}
		current = append(current, u)
		running += n
	}
	if len(current) > 0 {
		batches = append(batches, Batch{Index: len(batches), Units: current})
	}
	return batches
}
