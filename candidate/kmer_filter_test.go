package candidate

import (
	"testing"

	"github.com/grailbio/gem3/seq"
)

// fakeWindowDecoder serves slices of a single fixed reference text (the
// requested span, clamped to the text), enough to drive kmerFilterReject
// without needing a full archive/region-profiling setup.
type fakeWindowDecoder struct {
	text []seq.Code
}

func (f fakeWindowDecoder) SA(i int64) int64 { return i }
func (f fakeWindowDecoder) Text(i, j int64) []seq.Code {
	if i < 0 {
		i = 0
	}
	if j > int64(len(f.text)) {
		j = int64(len(f.text))
	}
	return f.text[i:j]
}

// Scenario 6: a candidate window whose 4-mer overlap with the pattern is
// exactly 2 is rejected at threshold K=3 but accepted at K=2 — the same
// read, the same candidate window, two different filter outcomes, purely
// from the threshold.
func TestKmerFilterThresholdLossiness(t *testing.T) {
	pattern := seq.Encode([]byte("AAAACCCCGGGG"))
	window := seq.Encode([]byte("AAAACGCGTGGG")) // 3 mismatches vs pattern
	decoder := fakeWindowDecoder{text: window}

	patternKmers := seq.BuildKmerHistogramCodes(pattern, 4)
	windowKmers := seq.BuildKmerHistogramCodes(window, 4)
	if shared := seq.SharedKmers(patternKmers, windowKmers); shared != 2 {
		t.Fatalf("SharedKmers = %d, want 2 (test fixture assumption)", shared)
	}

	region := Region{Begin: 0, End: int64(len(window)) - 1}

	cfg := Config{PatternLength: len(pattern), KmerK: 4, KmerThreshold: 3, PatternKmers: patternKmers}
	if reason, rejected := cfg.kmerFilterReject(decoder, region); !rejected {
		t.Errorf("K=3: kmerFilterReject = (%q, false), want rejected", reason)
	}

	cfg.KmerThreshold = 2
	if reason, rejected := cfg.kmerFilterReject(decoder, region); rejected {
		t.Errorf("K=2: kmerFilterReject = (%q, true), want accepted", reason)
	}
}

// A disabled filter (KmerThreshold <= 0) never rejects, regardless of how
// poor the k-mer overlap is.
func TestKmerFilterDisabledByDefault(t *testing.T) {
	pattern := seq.Encode([]byte("AAAACCCCGGGG"))
	window := seq.Encode([]byte("TTTTTTTTTTTT")) // shares nothing with pattern
	decoder := fakeWindowDecoder{text: window}
	cfg := Config{PatternLength: len(pattern), KmerK: 4}

	if reason, rejected := cfg.kmerFilterReject(decoder, Region{Begin: 0}); rejected {
		t.Errorf("kmerFilterReject = (%q, true), want accepted (filter disabled)", reason)
	}
}
