// Package record defines the FASTQ-in / alignment-out collaborator types
// the mapper's worker pool passes between stages: a Read built from the
// teacher's own encoding/fastq.Read, and an Output holding everything
// encoding/sam needs to render one SAM line, per 6's external-interfaces
// contract.
package record

import (
	"github.com/grailbio/gem3/matches"
	"github.com/grailbio/gem3/search"
)

// Read is one FASTQ read (or one end of a pair) ready for search: an ID, the
// raw sequence/quality strings from encoding/fastq.Read, and an optional
// mate for paired-end input.
type Read struct {
	ID   string
	Seq  string
	Qual string
	Mate *Read
}

// Output is the result of searching one Read: either a populated matches
// store (Status == search.StatusMapped) or an unmapped reason, the same
// split record.Output's doc in 6 calls for, built directly on the
// search/matches types rather than re-declaring a parallel result shape.
//
// The Paired/ProperPair/Mate* fields are only meaningful when this Output
// came out of the paired-end coordinator (package paired); a single-end
// Output leaves them at their zero values, and encoding/sam renders SAM's
// RNEXT/PNEXT/TLEN columns and paired/proper-pair flags accordingly.
type Output struct {
	Read   Read
	Status search.Status
	Reason search.UnmappedReason
	Traces []matches.Trace
	MCS    int

	Paired         bool
	ProperPair     bool
	MateMapped     bool
	MateChromosome string
	MatePosition   int64
	MateStrand     matches.Strand
	TemplateLen    int64
}
