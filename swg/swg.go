// Package swg implements the banded affine-gap Smith-Waterman-Gotoh aligner
// (component C6): given a pattern, a reference window, and a BPM anchor
// column, it produces a CIGAR and a recomputed edit distance, the source of
// truth for whether a candidate survives (4.6).
//
// The Gotoh recurrence is the classic three-matrix affine-gap formulation
// (M/Ix/Iy), the same dynamic-programming shape as util.Levenshtein
// generalized from unit cost to parameterized match/mismatch/gap scoring
// and a banding restriction on which cells may participate. Traceback
// recomputes, rather than stores, predecessor choices at each cell: cheaper
// to reason about correctly than a separate pointer matrix, at the cost of
// redoing a constant amount of arithmetic per traceback step.
package swg

import (
	"math"

	"github.com/grailbio/gem3/seq"
)

// Op is a CIGAR operation kind. Matches and mismatches are distinguished
// (extended CIGAR, '=' / 'X') since edit distance is recomputed directly
// from the operation list.
type Op byte

const (
	OpMatch    Op = '='
	OpMismatch Op = 'X'
	OpInsert   Op = 'I' // pattern base with no corresponding reference base
	OpDelete   Op = 'D' // reference base with no corresponding pattern base
	OpSoftClip Op = 'S'
)

// CigarOp is one run-length-encoded CIGAR operation.
type CigarOp struct {
	Op     Op
	Length int
}

// Params parameterizes the alignment scoring scheme.
type Params struct {
	Match      int
	Mismatch   int
	GapOpen    int
	GapExtend  int
	// SoftClipThreshold: a leading or trailing insertion run longer than
	// this becomes a soft clip instead of an indel (4.6's trimming rule).
	SoftClipThreshold int
}

// DefaultParams mirrors commonly used short-read aligner scoring: a larger
// match reward than the mismatch/gap penalties at this scale is what
// BPM-survivor alignments tend to need since most of the window is exact
// sequence.
func DefaultParams() Params {
	return Params{Match: 1, Mismatch: -4, GapOpen: -6, GapExtend: -2, SoftClipThreshold: 4}
}

// Result is one alignment outcome.
type Result struct {
	Cigar        []CigarOp
	Score        int
	// EditDistance is recomputed from Cigar: count of mismatch, insert,
	// and delete bases (soft clips don't count). Per 4.6 this, not the BPM
	// estimate, is the source of truth.
	EditDistance int
	// TextBegin/TextEnd is the half-open span of the reference window this
	// alignment actually consumes (excluding free leading/trailing text).
	TextBegin, TextEnd int
}

const negInf = math.MinInt32 / 2

// Align runs banded semi-global alignment of pattern (fully consumed)
// against text (consumed only where the alignment needs it; leading and
// trailing text is free), restricted to a diagonal band of the given
// radius around the BPM anchor column anchorCol (text offset where BPM
// found its best score). band <= 0 disables banding (every cell is live).
func Align(pattern, text []seq.Code, anchorCol, band int, p Params) Result {
	m, n := len(pattern), len(text)
	if m == 0 {
		return Result{EditDistance: 0, TextBegin: 0, TextEnd: 0}
	}

	inBand := func(i, j int) bool {
		if band <= 0 {
			return true
		}
		d := j - i - (anchorCol - m)
		if d < 0 {
			d = -d
		}
		return d <= band
	}

	rows := m + 1
	cols := n + 1
	matM := make([][]int, rows)
	matIx := make([][]int, rows)
	matIy := make([][]int, rows)
	for i := range matM {
		matM[i] = make([]int, cols)
		matIx[i] = make([]int, cols)
		matIy[i] = make([]int, cols)
		for j := range matM[i] {
			matM[i][j], matIx[i][j], matIy[i][j] = negInf, negInf, negInf
		}
	}
	for j := 0; j <= n; j++ {
		if inBand(0, j) {
			matM[0][j] = 0
		}
	}
	for i := 1; i <= m; i++ {
		if inBand(i, 0) {
			matIx[i][0] = p.GapOpen + i*p.GapExtend
		}
	}

	max3 := func(a, b, c int) int {
		r := a
		if b > r {
			r = b
		}
		if c > r {
			r = c
		}
		return r
	}

	for i := 1; i <= m; i++ {
		for j := 0; j <= n; j++ {
			if !inBand(i, j) {
				continue
			}
			if j >= 1 {
				s := p.Mismatch
				if pattern[i-1] == text[j-1] && pattern[i-1] != seq.CodeN {
					s = p.Match
				}
				matM[i][j] = max3(matM[i-1][j-1], matIx[i-1][j-1], matIy[i-1][j-1]) + s
			}
			matIx[i][j] = max(matIx[i][j], max3(
				matM[i-1][j]+p.GapOpen+p.GapExtend,
				matIx[i-1][j]+p.GapExtend,
				negInf))
			if j >= 1 {
				matIy[i][j] = max3(
					matM[i][j-1]+p.GapOpen+p.GapExtend,
					matIy[i][j-1]+p.GapExtend,
					negInf)
			}
		}
	}

	bestJ := 0
	bestScore := negInf
	for j := 0; j <= n; j++ {
		if matM[m][j] > bestScore {
			bestScore = matM[m][j]
			bestJ = j
		}
	}
	if matIx[m][0] > bestScore {
		// Degenerate case: the whole pattern is an insertion run (no usable
		// text at all). Only relevant for pathologically short windows.
		bestScore = matIx[m][0]
		bestJ = 0
	}

	ops, textBegin := traceback(pattern, text, matM, matIx, matIy, m, bestJ, p)
	ops = trimLowQualityEnds(ops, p.SoftClipThreshold)

	return Result{
		Cigar:        ops,
		Score:        bestScore,
		EditDistance: editDistance(ops),
		TextBegin:    textBegin,
		TextEnd:      textBegin + consumedLength(ops),
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// traceback recomputes, cell by cell, which predecessor state produced the
// current score, starting from the alignment's end state (M, i, j) and
// walking back until i == 0 (the whole pattern has been accounted for).
// It returns the CIGAR (in forward order) and the offset within text at
// which the alignment begins (j when i reaches 0): everything before that
// offset is free leading text, not part of the alignment.
func traceback(pattern, text []seq.Code, matM, matIx, matIy [][]int, i, j int, p Params) ([]CigarOp, int) {
	const (
		stateM = iota
		stateIx
		stateIy
	)
	state := stateM
	if j == 0 && i > 0 && matIx[i][0] > negInf && matIx[i][0] >= matM[i][j] {
		state = stateIx
	}

	var rev []CigarOp
	for i > 0 {
		switch state {
		case stateM:
			if j == 0 {
				// No text left to consume but pattern remains: the rest of
				// the pattern is a forced insertion run.
				appendOp(&rev, OpInsert, 1)
				i--
				continue
			}
			s := p.Mismatch
			op := OpMismatch
			if pattern[i-1] == text[j-1] && pattern[i-1] != seq.CodeN {
				s = p.Match
				op = OpMatch
			}
			cur := matM[i][j]
			switch {
			case matIx[i-1][j-1]+s == cur:
				state = stateIx
			case matIy[i-1][j-1]+s == cur:
				state = stateIy
			default:
				state = stateM
			}
			appendOp(&rev, op, 1)
			i, j = i-1, j-1
		case stateIx:
			cur := matIx[i][j]
			if matM[i-1][j]+p.GapOpen+p.GapExtend == cur {
				state = stateM
			} else {
				state = stateIx
			}
			appendOp(&rev, OpInsert, 1)
			i--
		case stateIy:
			if j == 0 {
				// Degenerate: nothing left to delete; fall back to M so
				// the loop terminates via the i>0 path above.
				state = stateM
				continue
			}
			cur := matIy[i][j]
			if matM[i][j-1]+p.GapOpen+p.GapExtend == cur {
				state = stateM
			} else {
				state = stateIy
			}
			appendOp(&rev, OpDelete, 1)
			j--
		}
	}
	for l, r := 0, len(rev)-1; l < r; l, r = l+1, r-1 {
		rev[l], rev[r] = rev[r], rev[l]
	}
	return mergeRuns(rev), j
}

func appendOp(ops *[]CigarOp, op Op, length int) {
	*ops = append(*ops, CigarOp{Op: op, Length: length})
}

// mergeRuns collapses consecutive same-kind single-base ops produced by
// traceback into run-length-encoded CIGAR entries.
func mergeRuns(ops []CigarOp) []CigarOp {
	if len(ops) == 0 {
		return nil
	}
	out := []CigarOp{ops[0]}
	for _, o := range ops[1:] {
		last := &out[len(out)-1]
		if last.Op == o.Op {
			last.Length += o.Length
		} else {
			out = append(out, o)
		}
	}
	return out
}

// trimLowQualityEnds converts a leading or trailing insertion run longer
// than threshold into a soft clip, per 4.6.
func trimLowQualityEnds(ops []CigarOp, threshold int) []CigarOp {
	if threshold <= 0 || len(ops) == 0 {
		return ops
	}
	out := append([]CigarOp(nil), ops...)
	if out[0].Op == OpInsert && out[0].Length > threshold {
		out[0].Op = OpSoftClip
	}
	if n := len(out); out[n-1].Op == OpInsert && out[n-1].Length > threshold {
		out[n-1].Op = OpSoftClip
	}
	return out
}

// editDistance recomputes edit distance directly from the CIGAR: the
// number of mismatch, insert, and delete bases. Soft-clipped bases are
// excluded since they are not part of the reported alignment.
func editDistance(ops []CigarOp) int {
	d := 0
	for _, o := range ops {
		switch o.Op {
		case OpMismatch, OpInsert, OpDelete:
			d += o.Length
		}
	}
	return d
}

// consumedLength returns how much of the reference window the CIGAR
// consumes (match, mismatch, and delete ops; inserts and soft clips don't
// consume reference).
func consumedLength(ops []CigarOp) int {
	consumed := 0
	for _, o := range ops {
		switch o.Op {
		case OpMatch, OpMismatch, OpDelete:
			consumed += o.Length
		}
	}
	return consumed
}
