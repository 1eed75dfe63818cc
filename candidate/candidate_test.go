package candidate_test

import (
	"strings"
	"testing"

	"github.com/grailbio/gem3/archive"
	"github.com/grailbio/gem3/candidate"
	"github.com/grailbio/gem3/region"
	"github.com/grailbio/gem3/seq"
)

const testFasta = ">chr1\nGGGGGACGTACGTGGGGGACGTACGTGGGGG\n"

func TestGenerateClustersAndDiscardsVerified(t *testing.T) {
	a, err := archive.Load(strings.NewReader(testFasta), 4)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	key := seq.Encode([]byte("ACGTACGT"))
	p := region.Profile(a, key, region.Config{
		MaxCandidatesPerSeed: 50,
		SamplingRate:         1,
		MaxSeedLength:        8,
		MinSeedLength:        8,
		MinRegionsForStratum: 1,
	})

	cfg := candidate.Config{MaxCandidatesPerSeed: 50, PatternLength: len(key), MaxError: 1}
	res := candidate.Generate(a, p, cfg, nil)
	if len(res.Regions) == 0 {
		t.Fatalf("expected at least one candidate region")
	}

	// Re-running with the first result already verified should discard it.
	res2 := candidate.Generate(a, p, cfg, res.Regions)
	for _, d := range res2.Discarded {
		if d.Reason != "fully covered by a verified region" {
			continue
		}
		return // found the expected dedup
	}
	if len(res2.Regions) >= len(res.Regions) {
		t.Errorf("expected fewer surviving regions once all were pre-verified, got %d vs %d", len(res2.Regions), len(res.Regions))
	}
}
