package record_test

import (
	"testing"

	"github.com/grailbio/gem3/matches"
	"github.com/grailbio/gem3/record"
	"github.com/grailbio/gem3/search"
)

func TestOutputCarriesMateThroughPair(t *testing.T) {
	mate := &record.Read{ID: "r/2", Seq: "ACGT", Qual: "IIII"}
	r := record.Read{ID: "r/1", Seq: "TTTT", Qual: "IIII", Mate: mate}

	out := record.Output{
		Read:   r,
		Status: search.StatusMapped,
		Traces: []matches.Trace{{Chromosome: "chr1", Position: 10}},
		MCS:    1,
	}

	if out.Read.Mate != mate {
		t.Errorf("Read.Mate = %p, want %p", out.Read.Mate, mate)
	}
	if out.Status != search.StatusMapped || len(out.Traces) != 1 {
		t.Errorf("Output = %+v, want one mapped trace", out)
	}
}

func TestOutputUnmappedCarriesReason(t *testing.T) {
	out := record.Output{
		Read:   record.Read{ID: "r/1", Seq: "NNNN", Qual: "####"},
		Status: search.StatusUnmapped,
		Reason: search.ReasonAllN,
	}
	if out.Status != search.StatusUnmapped || out.Reason != search.ReasonAllN {
		t.Errorf("Output = %+v, want StatusUnmapped/ReasonAllN", out)
	}
	if len(out.Traces) != 0 {
		t.Errorf("Traces = %+v, want empty for an unmapped read", out.Traces)
	}
}
