package bpm

import "github.com/grailbio/gem3/seq"

// TextSource is the archive surface the verifier needs: fetching a
// reference slice.
type TextSource interface {
	Text(i, j int64) []seq.Code
}

// VerifyResult is the outcome of verifying one candidate region.
type VerifyResult struct {
	Accepted          bool
	Score             int
	TextBegin, TextEnd int64
	// BestColumn is the 1-based offset from TextBegin at which the minimum
	// score occurs; BestColumn-1+TextBegin is the BPM anchor column SWG
	// alignment (package swg) should center its band on.
	BestColumn int
}

// Verify fetches the reference window around candidateBegin (widened by
// maxError slack on both sides, per 4.5) and runs the bit-parallel scan.
func Verify(idx TextSource, p *seq.Pattern, candidateBegin int64, maxError int) VerifyResult {
	slack := int64(maxError)
	if slack < 1 {
		slack = 1
	}
	textBegin := candidateBegin - slack
	if textBegin < 0 {
		textBegin = 0
	}
	textEnd := candidateBegin + int64(p.Length()) + slack

	text := idx.Text(textBegin, textEnd)
	r := Scan(p, text, maxError)
	return VerifyResult{
		Accepted:   r.Accepted,
		Score:      r.Score,
		TextBegin:  textBegin,
		TextEnd:    textBegin + int64(len(text)),
		BestColumn: r.Column,
	}
}
