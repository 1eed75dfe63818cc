// Package bpm implements the bit-parallel edit-distance filter/verifier
// (component C5): Myers' algorithm over a pattern's precompiled Peq table,
// producing a minimum edit-distance score and the text column it occurs at,
// which becomes the anchor for banded SWG alignment (package swg).
//
// The single-word path (patterns up to seq.WordBits bases) implements the
// standard Hyyrö formulation of Myers' bit-vector recurrence and is exact.
// Patterns spanning more than one tile are verified by running each tile's
// single-word scan independently against the same candidate window and
// summing scores, short-circuiting on the first tile that exceeds its own
// budget. This is consistent with 4.1's tile-budget contract (the sum of
// tile budgets only has to lower-bound the true global edit distance, not
// reproduce it exactly) without needing the horizontal-carry chaining a
// fully general multi-word Myers implementation would require across tile
// boundaries.
package bpm

import "github.com/grailbio/gem3/seq"

// Result is one pattern-vs-text scan's outcome.
type Result struct {
	// Score is the minimum edit distance found across all text columns
	// scanned (or the partial sum at the point of rejection).
	Score int
	// Column is the 1-based count of text symbols consumed at which Score
	// occurs (0 means "no column improved on the initial score", i.e. an
	// empty or immediately-rejected scan).
	Column int
	// Accepted is true iff Score <= the caller's max_error budget.
	Accepted bool
}

// Scan runs the bit-parallel edit-distance scan of pattern p against text
// (a reference slice already widened by the caller's left/right slack) and
// returns the best score found.
func Scan(p *seq.Pattern, text []seq.Code, maxError int) Result {
	if p.Length() == 0 {
		return Result{Score: 0, Accepted: true}
	}
	if len(p.Tiles) <= 1 {
		return ScanWord(p.GlobalPeq, p.Length(), text, maxError)
	}
	return scanTiled(p, text, maxError)
}

// ScanWord implements Myers' bit-vector recurrence for one word-sized
// (<= seq.WordBits) pattern against text, maintaining Pv/Mv per column and
// the scalar score, per 4.5. Exported so a GPU backend emulator (package
// gpu) can run the identical single-tile recurrence over its own
// already-unpacked Peq vectors without duplicating the bit arithmetic.
func ScanWord(peq [5]uint64, m int, text []seq.Code, maxError int) Result {
	var pv uint64 = ^uint64(0)
	var mask uint64 = ^uint64(0)
	if m < seq.WordBits {
		mask = (uint64(1) << uint(m)) - 1
		pv &= mask
	}
	var mv uint64
	score := m
	topBit := uint64(1) << uint(m-1)

	best := m
	bestCol := 0
	for j, c := range text {
		eq := peq[c]
		xv := eq | mv
		xh := (((eq & pv) + pv) ^ pv) | eq
		ph := mv | ^(xh | pv)
		mh := pv & xh

		if ph&topBit != 0 {
			score++
		} else if mh&topBit != 0 {
			score--
		}

		ph <<= 1
		ph |= 1
		mh <<= 1
		pv = mh | ^(xv | ph)
		mv = ph & xv
		if m < seq.WordBits {
			pv &= mask
			mv &= mask
		}

		if score <= best {
			best = score
			bestCol = j + 1
		}
	}
	return Result{Score: best, Column: bestCol, Accepted: best <= maxError}
}

// scanTiled verifies a multi-tile pattern by scanning each tile
// independently, per 4.5's tiled variant: a tile exceeding its own
// max_error_tile short-circuits the whole region to rejected.
func scanTiled(p *seq.Pattern, text []seq.Code, maxError int) Result {
	total := 0
	lastCol := 0
	for _, tile := range p.Tiles {
		r := ScanWord(tile.Peq, tile.Length, text, tile.MaxError)
		if !r.Accepted {
			return Result{Score: total + r.Score, Column: lastCol, Accepted: false}
		}
		total += r.Score
		lastCol = r.Column
	}
	return Result{Score: total, Column: lastCol, Accepted: total <= maxError}
}
