// Package diff aligns two token sequences and renders the differences between
// an original and a revised text as styled spans.
package diff

// Tag names one kind of alignment step.
type Tag string

const (
	Equal   Tag = "equal"
	Replace Tag = "replace"
	Delete  Tag = "delete"
	Insert  Tag = "insert"
)

// Opcode describes how to turn a[I1:I2] into b[J1:J2].
type Opcode struct {
	Tag    Tag
	I1, I2 int
	J1, J2 int
}

// indexPair maps a token index in a to the matching index in b.
type indexPair struct {
	ai, bi int
}

// lcs computes the longest common subsequence of a and b and returns the
// anchor pairs of common tokens in order. Standard O(m×n) DP; units are
// paragraphs, so sequences stay small.
func lcs[T comparable](a, b []T) []indexPair {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return nil
	}

	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			switch {
			case a[i-1] == b[j-1]:
				dp[i][j] = dp[i-1][j-1] + 1
			case dp[i-1][j] >= dp[i][j-1]:
				dp[i][j] = dp[i-1][j]
			default:
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	k := dp[m][n]
	if k == 0 {
		return nil
	}
	anchors := make([]indexPair, k)
	i, j := m, n
	for i > 0 && j > 0 {
		switch {
		case a[i-1] == b[j-1]:
			k--
			anchors[k] = indexPair{ai: i - 1, bi: j - 1}
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	return anchors
}

// Opcodes returns the alignment of a against b as a list of opcodes that
// covers both sequences completely and in order. Consecutive common tokens
// are merged into one Equal opcode; every gap between them becomes a single
// Replace, Delete or Insert opcode.
func Opcodes[T comparable](a, b []T) []Opcode {
	var ops []Opcode
	gap := func(i1, i2, j1, j2 int) {
		var tag Tag
		switch {
		case i1 < i2 && j1 < j2:
			tag = Replace
		case i1 < i2:
			tag = Delete
		case j1 < j2:
			tag = Insert
		default:
			return
		}
		ops = append(ops, Opcode{Tag: tag, I1: i1, I2: i2, J1: j1, J2: j2})
	}

	ai, bi := 0, 0
	for _, p := range lcs(a, b) {
		gap(ai, p.ai, bi, p.bi)
		if n := len(ops); n > 0 && ops[n-1].Tag == Equal && ops[n-1].I2 == p.ai && ops[n-1].J2 == p.bi {
			ops[n-1].I2++
			ops[n-1].J2++
		} else {
			ops = append(ops, Opcode{Tag: Equal, I1: p.ai, I2: p.ai + 1, J1: p.bi, J2: p.bi + 1})
		}
		ai, bi = p.ai+1, p.bi+1
	}
	gap(ai, len(a), bi, len(b))
	return ops
}

// Ratio returns the similarity 2·M/T of a and b, where M is the length of
// their longest common subsequence and T the total length. Two empty
// sequences have ratio 1.
func Ratio[T comparable](a, b []T) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(len(lcs(a, b))) / float64(total)
}
