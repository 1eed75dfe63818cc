// Package sam implements the output collaborator: rendering a
// record.Output into SAM text, reusing github.com/grailbio/hts/sam's record
// and CIGAR-op types for internal structure rather than pulling in the
// hts/bam binary writer, since a minimal text renderer is all the output
// contract calls for.
//
// GEM3's own aligner (package swg) reports mismatches as a distinct CIGAR
// operation ('X', extended CIGAR); SAM's base Cigar field only recognizes
// 'M' for any aligned column whether it matches or not, with the mismatch
// count instead carried in the "NM" aux tag. mismatchesToM folds swg's X
// runs into the preceding/following M run (merging adjacent M/X into one M)
// and editDistance recomputes NM by summing mismatches plus indel bases,
// the same bookkeeping encoding/bam's marshal.go does when round-tripping
// a record's edit distance through its CIGAR.
package sam

import (
	"fmt"
	"strings"

	htssam "github.com/grailbio/hts/sam"

	"github.com/grailbio/gem3/matches"
	"github.com/grailbio/gem3/record"
	"github.com/grailbio/gem3/swg"
)

// NewHeader builds an hts/sam header naming one reference per chromosome,
// in the order given, following the teacher's sam.NewReference/sam.NewHeader
// call shape (encoding/bam/gindex_test.go et al.).
func NewHeader(chromosomes []string, lengths []int) (*htssam.Header, error) {
	refs := make([]*htssam.Reference, len(chromosomes))
	for i, name := range chromosomes {
		ref, err := htssam.NewReference(name, "", "", lengths[i], nil, nil)
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}
	return htssam.NewHeader(nil, refs)
}

// refByName looks up a named reference out of a header's reference list.
func refByName(h *htssam.Header, name string) *htssam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == name {
			return ref
		}
	}
	return nil
}

// WriteRecord renders one record.Output as zero or more SAM text lines (one
// per reported trace, or a single unmapped line when Output.Traces is
// empty), following SAM's flag/CIGAR/NM conventions.
func WriteRecord(w *strings.Builder, h *htssam.Header, out record.Output) error {
	if len(out.Traces) == 0 {
		return writeUnmapped(w, out)
	}
	for i, tr := range out.Traces {
		if err := writeMapped(w, h, out, tr, i == 0); err != nil {
			return err
		}
	}
	return nil
}

func writeUnmapped(w *strings.Builder, out record.Output) error {
	flags := htssam.Unmapped
	rnext, pnext, tlen := "*", int64(0), int64(0)
	if out.Paired {
		flags |= htssam.Paired
		if out.MateMapped {
			rnext, pnext = out.MateChromosome, out.MatePosition+1
			if out.MateStrand == matches.Reverse {
				flags |= htssam.MateReverse
			}
		} else {
			flags |= htssam.MateUnmapped
		}
	}
	fmt.Fprintf(w, "%s\t%d\t*\t0\t0\t*\t%s\t%d\t%d\t%s\t%s\n",
		out.Read.ID, flags, rnext, pnext, tlen, seqOrStar(out.Read.Seq), qualOrStar(out.Read.Qual))
	return nil
}

func writeMapped(w *strings.Builder, h *htssam.Header, out record.Output, tr matches.Trace, primary bool) error {
	ref := refByName(h, tr.Chromosome)
	if ref == nil {
		return fmt.Errorf("sam: no reference named %q in header", tr.Chromosome)
	}
	var flags htssam.Flags
	if tr.Strand == matches.Reverse {
		flags |= htssam.Reverse
	}
	if !primary {
		flags |= htssam.Secondary
	}
	flags, rnext, pnext, tlen := pairFlags(flags, out, tr)

	cigarOps := mismatchesToM(tr.Cigar)
	cigar := renderCigar(cigarOps)
	nm := editDistance(tr.Cigar)

	fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%s\t%s\t%d\t%d\t%s\t%s\tNM:i:%d\n",
		out.Read.ID, flags, ref.Name(), tr.Position+1, tr.MAPQ, cigar,
		rnext, pnext, tlen,
		seqOrStar(out.Read.Seq), qualOrStar(out.Read.Qual), nm)
	return nil
}

// pairFlags folds record.Output's paired-end bookkeeping (set by package
// paired, per 4.9) into an alignment line's SAM flags and RNEXT/PNEXT/TLEN
// columns. A non-paired Output (out.Paired false) leaves flags untouched and
// renders RNEXT/PNEXT/TLEN as the single-end "*"/0/0 the base columns use.
func pairFlags(flags htssam.Flags, out record.Output, tr matches.Trace) (htssam.Flags, string, int64, int64) {
	if !out.Paired {
		return flags, "*", 0, 0
	}
	flags |= htssam.Paired
	if out.ProperPair {
		flags |= htssam.ProperPair
	}
	if !out.MateMapped {
		flags |= htssam.MateUnmapped
		return flags, "*", 0, 0
	}
	if out.MateStrand == matches.Reverse {
		flags |= htssam.MateReverse
	}
	rnext := out.MateChromosome
	if rnext == tr.Chromosome {
		rnext = "="
	}
	return flags, rnext, out.MatePosition + 1, out.TemplateLen
}

func seqOrStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

func qualOrStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

// mismatchesToM rewrites every swg.OpMismatch run as swg.OpMatch and merges
// it into any adjacent match run, since SAM's base CIGAR alphabet does not
// distinguish match from mismatch.
func mismatchesToM(ops []swg.CigarOp) []swg.CigarOp {
	var out []swg.CigarOp
	for _, op := range ops {
		o := op
		if o.Op == swg.OpMismatch {
			o.Op = swg.OpMatch
		}
		if n := len(out); n > 0 && out[n-1].Op == o.Op {
			out[n-1].Length += o.Length
			continue
		}
		out = append(out, o)
	}
	return out
}

// renderCigar writes ops in SAM's <len><op> run-length text form.
func renderCigar(ops []swg.CigarOp) string {
	if len(ops) == 0 {
		return "*"
	}
	var b strings.Builder
	for _, op := range ops {
		fmt.Fprintf(&b, "%d%c", op.Length, byte(samOp(op.Op)))
	}
	return b.String()
}

// samOp maps swg's internal op alphabet to SAM's, folding soft-clip through
// unchanged and mismatch to match (handled earlier by mismatchesToM, but
// defended here too in case a caller skips that step).
func samOp(op swg.Op) byte {
	switch op {
	case swg.OpMismatch:
		return 'M'
	default:
		return byte(op)
	}
}

// editDistance recomputes NM the way SAM defines it: mismatches plus
// inserted/deleted bases, counted directly from the pre-merge CIGAR where
// mismatch runs are still distinguished from matches.
func editDistance(ops []swg.CigarOp) int {
	nm := 0
	for _, op := range ops {
		switch op.Op {
		case swg.OpMismatch, swg.OpInsert, swg.OpDelete:
			nm += op.Length
		}
	}
	return nm
}
