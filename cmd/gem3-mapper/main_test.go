package main

import (
	"testing"

	"github.com/grailbio/gem3/config"
	"github.com/grailbio/gem3/matches"
	"github.com/grailbio/gem3/paired"
	"github.com/grailbio/gem3/record"
)

func TestParseOrientations(t *testing.T) {
	got, err := parseOrientations("FR,RF")
	if err != nil {
		t.Fatalf("parseOrientations() = %v", err)
	}
	want := []config.Orientation{config.FR, config.RF}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("parseOrientations() = %v, want %v", got, want)
	}
	if _, err := parseOrientations("bogus"); err == nil {
		t.Error("parseOrientations(bogus) should have failed")
	}
	if _, err := parseOrientations(""); err == nil {
		t.Error("parseOrientations(\"\") should have failed")
	}
}

func TestTrimID(t *testing.T) {
	if got := trimID("@read1"); got != "read1" {
		t.Errorf("trimID(@read1) = %q, want read1", got)
	}
	if got := trimID("read1"); got != "read1" {
		t.Errorf("trimID(read1) = %q, want read1", got)
	}
}

func TestCopyTraces(t *testing.T) {
	src := []matches.Trace{{Position: 1}, {Position: 2}, {Position: 3}}
	got := copyTraces(src, 2)
	if len(got) != 2 {
		t.Fatalf("copyTraces(src, 2) has len %d, want 2", len(got))
	}
	src[0].Position = 99
	if got[0].Position == 99 {
		t.Error("copyTraces should return an independent copy, not alias the source backing array")
	}
	if got := copyTraces(nil, 2); got != nil {
		t.Errorf("copyTraces(nil, 2) = %v, want nil", got)
	}
}

func TestBuildPairedOutputsWithTemplate(t *testing.T) {
	result := paired.Result{
		Mate1: []matches.Trace{{Chromosome: "chr1", Position: 10, Strand: matches.Forward}},
		Mate2: []matches.Trace{{Chromosome: "chr1", Position: 90, Strand: matches.Reverse}},
		Templates: []paired.Template{{
			Mate1:          matches.Trace{Chromosome: "chr1", Position: 10, Strand: matches.Forward},
			Mate2:          matches.Trace{Chromosome: "chr1", Position: 90, Strand: matches.Reverse},
			Orientation:    config.FR,
			ObservedInsert: 108,
			MAPQ:           60,
			Mate1Leftmost:  true,
		}},
	}
	out1, out2 := buildPairedOutputs(record.Read{ID: "r1"}, record.Read{ID: "r2"}, result, config.DefaultConfig)

	if !out1.ProperPair || !out2.ProperPair {
		t.Fatal("buildPairedOutputs should mark a cross-filtered template as a proper pair")
	}
	if out1.TemplateLen != 108 || out2.TemplateLen != -108 {
		t.Errorf("TemplateLen = %d/%d, want 108/-108 (mate1 leftmost)", out1.TemplateLen, out2.TemplateLen)
	}
	if out1.MateChromosome != "chr1" || out1.MatePosition != 90 || out1.MateStrand != matches.Reverse {
		t.Errorf("out1 mate fields = %s/%d/%c, want chr1/90/-", out1.MateChromosome, out1.MatePosition, out1.MateStrand)
	}
}

func TestBuildPairedOutputsNoTemplate(t *testing.T) {
	result := paired.Result{
		Mate1: []matches.Trace{{Chromosome: "chr1", Position: 10, Strand: matches.Forward}},
	}
	out1, out2 := buildPairedOutputs(record.Read{ID: "r1"}, record.Read{ID: "r2"}, result, config.DefaultConfig)

	if out1.ProperPair || out2.ProperPair {
		t.Error("buildPairedOutputs should not claim a proper pair when no template survived cross-filtering")
	}
	if out1.MateMapped {
		t.Error("out1.MateMapped should be false: mate2 found no independent matches")
	}
	if !out2.MateMapped {
		t.Error("out2.MateMapped should be true: mate1 has an independent trace")
	}
	if out2.MateChromosome != "chr1" || out2.MatePosition != 10 {
		t.Errorf("out2 mate fields = %s/%d, want chr1/10", out2.MateChromosome, out2.MatePosition)
	}
}
