package paired

import (
	"strings"
	"testing"

	"github.com/grailbio/gem3/archive"
	"github.com/grailbio/gem3/config"
	"github.com/grailbio/gem3/matches"
	"github.com/grailbio/gem3/search"
	"github.com/grailbio/gem3/seq"
	"github.com/grailbio/gem3/workspace"
)

func loadArchive(t *testing.T, fasta string, seedK int) archive.Archive {
	t.Helper()
	a, err := archive.Load(strings.NewReader(fasta), seedK)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	return a
}

// The genome below is deliberately not its own reverse complement (unlike
// the palindromic literals search_test.go uses), so mate1's pattern lands
// only on the forward copy and mate2's only on the reverse copy; each
// appears exactly once in the whole dual-strand text, keeping the scenario
// unambiguous.
const pairTestFasta = ">chr1\nNNAAAACCCCTTTTAAGCTTCGNN\n"

// Scenario 5: an FR-oriented read pair whose two ends map to opposite
// strands of the same chromosome, observed insert size 20, cross-filters
// into exactly one template.
func TestSearchCrossFiltersFROrientation(t *testing.T) {
	a := loadArchive(t, pairTestFasta, 4)
	cfg := config.DefaultConfig
	cfg.MaxError = 0
	cfg.SamplingRate = 0.001

	p1 := seq.Compile([]byte("AAAACCCC"), 0, cfg.MaxBandwidth)
	p2 := seq.Compile([]byte("CGAAGCTT"), 0, cfg.MaxBandwidth)
	ws1, ws2 := workspace.New(), workspace.New()

	result := Search(a, p1, p2, cfg, ws1, ws2)

	if result.Status1 != search.StatusMapped || result.Status2 != search.StatusMapped {
		t.Fatalf("Status1=%v Status2=%v, want both Mapped", result.Status1, result.Status2)
	}
	if len(result.Templates) != 1 {
		t.Fatalf("Templates = %+v, want exactly 1", result.Templates)
	}
	tmpl := result.Templates[0]
	if tmpl.Orientation != config.FR {
		t.Errorf("Orientation = %v, want FR", tmpl.Orientation)
	}
	if tmpl.ObservedInsert != 20 {
		t.Errorf("ObservedInsert = %d, want 20", tmpl.ObservedInsert)
	}
	if tmpl.Mate1.Strand != matches.Forward || tmpl.Mate1.Position != 2 {
		t.Errorf("Mate1 = %+v, want Strand=+ Position=2", tmpl.Mate1)
	}
	if tmpl.Mate2.Strand != matches.Reverse || tmpl.Mate2.Position != 2 {
		t.Errorf("Mate2 = %+v, want Strand=- Position=2", tmpl.Mate2)
	}
	if jointDistance(tmpl) != 0 {
		t.Errorf("jointDistance = %d, want 0", jointDistance(tmpl))
	}
	if tmpl.MAPQ != cfg.MAPQMax {
		t.Errorf("MAPQ = %d, want %d (the only template)", tmpl.MAPQ, cfg.MAPQMax)
	}
}

// Scenario: rescue-by-extension must try both strand copies of the
// chromosome around an anchor, not just the anchor's own copy. Mate1's
// anchor sits on the forward strand; its mate carries one mismatch against
// the reference and only matches (at distance 1) on the chromosome's
// *reverse* copy, the copy opposite the anchor's own. A same-strand-only
// scan would reject every window it tries (the read is a poor match
// everywhere on the forward copy) and the mate would stay unrescued.
func TestRescueScansOppositeStrandCopy(t *testing.T) {
	a := loadArchive(t, pairTestFasta, 4)
	cfg := config.DefaultConfig
	cfg.MaxError = 1
	cfg.PairMax = 1000

	anchor := matches.Trace{
		Chromosome: "chr1",
		Position:   2,
		Strand:     matches.Forward,
		Begin:      2,
		End:        10,
	}
	// One mismatch against the true reverse-strand match "CGAAGCTT".
	p2 := seq.Compile([]byte("CGAAGCAT"), cfg.MaxError, cfg.MaxBandwidth)
	target := matches.NewStore()

	rescue(a, p2, []matches.Trace{anchor}, target, cfg)

	if len(target.Traces) != 1 {
		t.Fatalf("Traces = %+v, want exactly 1 rescued trace", target.Traces)
	}
	tr := target.Traces[0]
	if tr.Chromosome != "chr1" || tr.Strand != matches.Reverse {
		t.Errorf("trace = %+v, want Chromosome=chr1 Strand=-", tr)
	}
	if tr.Position != 2 {
		t.Errorf("Position = %d, want 2", tr.Position)
	}
	if tr.EditDistance != 1 {
		t.Errorf("EditDistance = %d, want 1", tr.EditDistance)
	}
	if !tr.Extended {
		t.Errorf("Extended = false, want true (rescue-by-extension trace)")
	}
}
