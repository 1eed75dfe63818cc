// Command gem3-mapper aligns FASTQ reads against a FASTA reference and
// writes SAM, wiring together the search core (packages archive, search,
// paired) and the SAM renderer (encoding/sam) into a single-process,
// multi-worker pipeline, in the same request/response-channel shape
// cmd/bio-fusion uses for bio-fusion's stage1 fastq scan.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	htssam "github.com/grailbio/hts/sam"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/vcontext"

	"github.com/grailbio/gem3/archive"
	"github.com/grailbio/gem3/config"
	"github.com/grailbio/gem3/encoding/fastq"
	"github.com/grailbio/gem3/encoding/sam"
	"github.com/grailbio/gem3/matches"
	"github.com/grailbio/gem3/paired"
	"github.com/grailbio/gem3/record"
	"github.com/grailbio/gem3/search"
	"github.com/grailbio/gem3/seq"
	"github.com/grailbio/gem3/stats"
	"github.com/grailbio/gem3/workspace"
)

// mapperFlags collects the command's own flags, one struct per
// fusionFlags' shape, kept separate from the tunables that fill in a
// config.Config.
type mapperFlags struct {
	archivePath string
	r1Path      string
	r2Path      string
	outputPath  string
	threads     int
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: gem3-mapper -archive ref.fa -r1 reads_1.fq.gz [-r2 reads_2.fq.gz] -output out.sam

Aligns FASTQ reads against -archive (a FASTA reference) and writes SAM to
-output. Supplying -r2 runs the paired-end coordinator; omitting it runs
each -r1 read independently.
`)
	flag.PrintDefaults()
}

func parseOrientations(s string) ([]config.Orientation, error) {
	var out []config.Orientation
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		o, ok := config.ParseOrientation(name)
		if !ok {
			return nil, fmt.Errorf("unrecognized pair orientation %q", name)
		}
		out = append(out, o)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one pair orientation is required")
	}
	return out, nil
}

func main() {
	flag.Usage = usage

	mf := mapperFlags{}
	flag.StringVar(&mf.archivePath, "archive", "", "FASTA reference to index and search against")
	flag.StringVar(&mf.r1Path, "r1", "", "FASTQ file containing R1 reads (or all reads, for single-end input)")
	flag.StringVar(&mf.r2Path, "r2", "", "FASTQ file containing R2 reads; omit for single-end input")
	flag.StringVar(&mf.outputPath, "output", "", "Path to write SAM output to")
	flag.IntVar(&mf.threads, "threads", 0, "Worker pool width (0 means runtime.NumCPU())")

	cfg := config.DefaultConfig
	var orientations string
	flag.IntVar(&cfg.MaxError, "max-error", cfg.MaxError, "Maximum edit distance a reported match may have")
	flag.IntVar(&cfg.MaxBandwidth, "max-bandwidth", cfg.MaxBandwidth, "SWG alignment band radius")
	flag.IntVar(&cfg.MinSeedLength, "min-seed-length", cfg.MinSeedLength, "Minimum seed length during region profiling")
	flag.IntVar(&cfg.MaxSeedLength, "max-seed-length", cfg.MaxSeedLength, "Maximum seed length during region profiling")
	flag.Int64Var(&cfg.MaxCandidatesPerSeed, "max-candidates-per-seed", cfg.MaxCandidatesPerSeed, "Discard a seed interval wider than this")
	flag.Float64Var(&cfg.SamplingRate, "sampling-rate", cfg.SamplingRate, "Fraction of seed positions sampled into candidate regions")
	flag.IntVar(&cfg.MinRegionsForStratum, "min-regions-for-stratum", cfg.MinRegionsForStratum, "Minimum region count for the minimum complete stratum")
	flag.IntVar(&cfg.SeedK, "seed-k", cfg.SeedK, "k-mer length the archive's seed index was built with")
	flag.IntVar(&cfg.KmerThreshold, "kmer-threshold", cfg.KmerThreshold, "Minimum shared k-mer count for the candidate k-mer filter (<=0 disables it)")
	flag.IntVar(&cfg.KmerFilterK, "kmer-filter-k", cfg.KmerFilterK, "k-mer width used by the candidate k-mer filter")
	flag.IntVar(&cfg.MaxMatchesReported, "max-matches-reported", cfg.MaxMatchesReported, "Maximum number of alignments reported per read")
	flag.IntVar(&cfg.MAPQMax, "mapq-max", cfg.MAPQMax, "Maximum MAPQ a confidently-placed read can receive")
	flag.IntVar(&cfg.SWG.Match, "swg-match", cfg.SWG.Match, "SWG match score")
	flag.IntVar(&cfg.SWG.Mismatch, "swg-mismatch", cfg.SWG.Mismatch, "SWG mismatch penalty")
	flag.IntVar(&cfg.SWG.GapOpen, "swg-gap-open", cfg.SWG.GapOpen, "SWG gap-open penalty")
	flag.IntVar(&cfg.SWG.GapExtend, "swg-gap-extend", cfg.SWG.GapExtend, "SWG gap-extend penalty")
	flag.IntVar(&cfg.SWG.SoftClipThreshold, "swg-soft-clip-threshold", cfg.SWG.SoftClipThreshold, "Trailing/leading indel run length that becomes a soft clip")
	flag.IntVar(&cfg.PairMin, "pair-min", cfg.PairMin, "Minimum accepted template insert size")
	flag.IntVar(&cfg.PairMax, "pair-max", cfg.PairMax, "Maximum accepted template insert size")
	flag.StringVar(&orientations, "pair-orientations", "FR", "Comma-separated list of accepted mate orientations (FR,RF,FF,RR)")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	if mf.archivePath == "" || mf.r1Path == "" || mf.outputPath == "" {
		usage()
		os.Exit(2)
	}
	orients, err := parseOrientations(orientations)
	if err != nil {
		log.Fatalf("gem3-mapper: %v", err)
	}
	cfg.PairOrientations = orients

	threads := mf.threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	cfg.NumThreads = threads

	idx, header := loadArchive(ctx, mf.archivePath, cfg.SeedK)

	start := time.Now()
	st := run(ctx, mf, cfg, idx, header, threads)
	log.Printf("gem3-mapper: processed %d reads (%d mapped) in %s", st.Reads, st.Mapped, time.Since(start))
}

// loadArchive opens and indexes path, and builds the SAM header its
// reference dictionary needs, per 6's external-interfaces contract.
func loadArchive(ctx context.Context, path string, seedK int) (archive.Archive, *htssam.Header) {
	f, err := file.Open(ctx, path)
	if err != nil {
		log.Panicf("gem3-mapper: open %v: %v", path, err)
	}
	defer func() {
		if err := f.Close(ctx); err != nil {
			log.Panicf("gem3-mapper: close %v: %v", path, err)
		}
	}()
	var r io.Reader = f.Reader(ctx)
	if u := compress.NewReaderPath(r, f.Name()); u != nil {
		r = u
	}
	idx, err := archive.Load(r, seedK)
	if err != nil {
		log.Panicf("gem3-mapper: loading archive %v: %v", path, err)
	}
	chrs := idx.Chromosomes()
	names := make([]string, len(chrs))
	lengths := make([]int, len(chrs))
	for i, c := range chrs {
		names[i] = c.Name
		lengths[i] = int(c.Length)
	}
	header, err := sam.NewHeader(names, lengths)
	if err != nil {
		log.Panicf("gem3-mapper: building SAM header: %v", err)
	}
	return idx, header
}

// req is one read (single-end) or read pair (paired-end) queued for
// search, tagged with a sequence number so output can be restored to
// input order the same way bio-fusion's req/res does.
type req struct {
	seqNum  uint64
	read1   record.Read
	read2   record.Read
	hasMate bool
}

// res is one req's outcome, or (seqNum == invalidSeq) a worker's final
// stats, mirroring bio-fusion's res/invalidSeq sentinel.
type res struct {
	seqNum uint64
	out1   record.Output
	out2   record.Output
	stats  stats.Stats
}

const invalidSeq = math.MaxUint64

// run drives the whole pipeline: read FASTQ, fan out to a worker pool,
// collect results in input order, and write SAM.
func run(ctx context.Context, mf mapperFlags, cfg config.Config, idx archive.Archive, header *htssam.Header, parallelism int) stats.Stats {
	reqCh := make(chan req, 1024*4)
	resCh := make(chan res, 1024)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := traverse.Each(parallelism, func(int) error {
			processRequests(reqCh, resCh, idx, cfg)
			return nil
		})
		if err != nil {
			log.Panicf("gem3-mapper: worker pool: %v", err)
		}
		close(resCh)
	}()

	var (
		collectWG sync.WaitGroup
		results   []res
		total     stats.Stats
	)
	collectWG.Add(1)
	go func() {
		defer collectWG.Done()
		for r := range resCh {
			if r.seqNum == invalidSeq {
				total = total.Merge(r.stats)
				continue
			}
			results = append(results, r)
		}
	}()

	readFASTQ(ctx, reqCh, mf.r1Path, mf.r2Path)
	close(reqCh)
	wg.Wait()
	collectWG.Wait()

	sort.SliceStable(results, func(i, j int) bool { return results[i].seqNum < results[j].seqNum })
	writeSAM(ctx, mf.outputPath, header, results)
	return total
}

// readFASTQ scans r1Path (and r2Path, if non-empty) and enqueues one req
// per read (or read pair), following readFASTQ's single-producer shape.
func readFASTQ(ctx context.Context, reqCh chan req, r1Path, r2Path string) {
	in1, err := file.Open(ctx, r1Path)
	if err != nil {
		log.Panicf("gem3-mapper: open %v: %v", r1Path, err)
	}
	var r1 io.Reader = in1.Reader(ctx)
	if u := compress.NewReaderPath(r1, in1.Name()); u != nil {
		r1 = u
	}

	once := errors.Once{}
	defer func() {
		once.Set(in1.Close(ctx))
		if err := once.Err(); err != nil {
			log.Panicf("gem3-mapper: close %v: %v", r1Path, err)
		}
	}()

	if r2Path == "" {
		readSingle(reqCh, r1)
		return
	}

	in2, err := file.Open(ctx, r2Path)
	if err != nil {
		log.Panicf("gem3-mapper: open %v: %v", r2Path, err)
	}
	defer func() {
		once.Set(in2.Close(ctx))
	}()
	var r2 io.Reader = in2.Reader(ctx)
	if u := compress.NewReaderPath(r2, in2.Name()); u != nil {
		r2 = u
	}
	readPaired(reqCh, r1, r2)
}

func readSingle(reqCh chan req, r io.Reader) {
	sc := fastq.NewScanner(r, fastq.ID|fastq.Seq|fastq.Qual)
	var fr fastq.Read
	var n uint64
	for sc.Scan(&fr) {
		reqCh <- req{seqNum: n, read1: record.Read{ID: trimID(fr.ID), Seq: fr.Seq, Qual: fr.Qual}}
		n++
	}
	if err := sc.Err(); err != nil {
		log.Panicf("gem3-mapper: scanning fastq: %v", err)
	}
	log.Printf("gem3-mapper: read %d reads", n)
}

func readPaired(reqCh chan req, r1, r2 io.Reader) {
	sc := fastq.NewPairScanner(r1, r2, fastq.ID|fastq.Seq|fastq.Qual)
	var fr1, fr2 fastq.Read
	var n uint64
	for sc.Scan(&fr1, &fr2) {
		reqCh <- req{
			seqNum:  n,
			read1:   record.Read{ID: trimID(fr1.ID), Seq: fr1.Seq, Qual: fr1.Qual},
			read2:   record.Read{ID: trimID(fr2.ID), Seq: fr2.Seq, Qual: fr2.Qual},
			hasMate: true,
		}
		n++
	}
	if err := sc.Err(); err != nil {
		log.Panicf("gem3-mapper: scanning fastq pair: %v", err)
	}
	log.Printf("gem3-mapper: read %d read pairs", n)
}

// trimID strips FASTQ's leading '@' from a scanned ID line, following
// readFASTQ's own id[1:] convention.
func trimID(id string) string {
	if len(id) > 0 && id[0] == '@' {
		return id[1:]
	}
	return id
}

// processRequests is one worker: it owns a private Workspace (or pair of
// Workspaces, for paired input) for its whole lifetime and reuses them
// across reqCh, per workspace.Workspace's one-goroutine-owns-one-Workspace
// contract.
func processRequests(reqCh chan req, resCh chan res, idx archive.Archive, cfg config.Config) {
	ws1 := workspace.New()
	ws2 := workspace.New()
	st := stats.Stats{}

	for r := range reqCh {
		if r.hasMate {
			out1, out2 := runPaired(idx, cfg, r.read1, r.read2, ws1, ws2, &st)
			resCh <- res{seqNum: r.seqNum, out1: out1, out2: out2}
			continue
		}
		out := runSingle(idx, cfg, r.read1, ws1, &st)
		resCh <- res{seqNum: r.seqNum, out1: out}
	}
	resCh <- res{seqNum: invalidSeq, stats: st}
}

func runSingle(idx archive.Archive, cfg config.Config, read record.Read, ws *workspace.Workspace, st *stats.Stats) record.Output {
	ws.Reset()
	p := seq.Compile([]byte(read.Seq), cfg.MaxError, cfg.MaxBandwidth)
	s := search.New(idx, p, matches.Forward, cfg, ws)
	status := s.Run()
	st.Reads++
	recordStatus(st, status, ws.Matches)
	return buildOutput(read, status, s.Reason, ws, cfg.MaxMatchesReported)
}

func runPaired(idx archive.Archive, cfg config.Config, read1, read2 record.Read, ws1, ws2 *workspace.Workspace, st *stats.Stats) (record.Output, record.Output) {
	ws1.Reset()
	ws2.Reset()
	p1 := seq.Compile([]byte(read1.Seq), cfg.MaxError, cfg.MaxBandwidth)
	p2 := seq.Compile([]byte(read2.Seq), cfg.MaxError, cfg.MaxBandwidth)
	result := paired.Search(idx, p1, p2, cfg, ws1, ws2)

	st.Reads += 2
	recordStatus(st, result.Status1, ws1.Matches)
	recordStatus(st, result.Status2, ws2.Matches)
	if len(result.Templates) > 0 {
		st.PairsRescued += pairsRescued(result)
	}
	return buildPairedOutputs(read1, read2, result, cfg)
}

// pairsRescued counts how many of this pair's traces were produced by
// rescue-by-extension rather than independent search, for the run's
// aggregate PairsRescued counter.
func pairsRescued(result paired.Result) int {
	n := 0
	for _, t := range result.Mate1 {
		if t.Extended {
			n++
		}
	}
	for _, t := range result.Mate2 {
		if t.Extended {
			n++
		}
	}
	return n
}

func recordStatus(st *stats.Stats, status search.Status, m *matches.Store) {
	if status == search.StatusMapped {
		st.Mapped++
	}
	for _, t := range m.Traces {
		st.RecordDistance(t.EditDistance)
	}
}

// buildOutput copies ws.Matches.Traces (capped to maxMatches) into a fresh
// slice before returning: ws's Store is recycled by the next Reset, via
// Workspace's free-list (allocMatchStore/freeMatchStore), so a caller
// holding onto its Traces slice past that point would otherwise see it
// silently overwritten by a later read's matches.
func buildOutput(read record.Read, status search.Status, reason search.UnmappedReason, ws *workspace.Workspace, maxMatches int) record.Output {
	out := record.Output{Read: read, Status: status, Reason: reason}
	out.Traces = copyTraces(ws.Matches.Traces, maxMatches)
	return out
}

// copyTraces defensively copies traces (capped to max, <=0 meaning
// unbounded) out of a Workspace's Store before the Store can be recycled.
func copyTraces(traces []matches.Trace, max int) []matches.Trace {
	if max > 0 && len(traces) > max {
		traces = traces[:max]
	}
	if len(traces) == 0 {
		return nil
	}
	return append([]matches.Trace(nil), traces...)
}

// buildPairedOutputs turns one paired.Result into the two record.Outputs
// encoding/sam needs, per 4.9/6's paired contract: when a cross-filtered
// Template survived, both mates report each other as a proper pair with
// signed TLEN; otherwise each mate's own independent matches (if any) are
// reported with MateMapped/MateChromosome/MatePosition cross-referencing
// the other end but ProperPair left false.
func buildPairedOutputs(read1, read2 record.Read, result paired.Result, cfg config.Config) (record.Output, record.Output) {
	out1 := record.Output{Read: read1, Status: result.Status1, Paired: true}
	out2 := record.Output{Read: read2, Status: result.Status2, Paired: true}

	if len(result.Templates) > 0 {
		best := result.Templates[0]
		t1, t2 := best.Mate1, best.Mate2
		t1.MAPQ, t2.MAPQ = best.MAPQ, best.MAPQ

		tlen1, tlen2 := best.ObservedInsert, -best.ObservedInsert
		if !best.Mate1Leftmost {
			tlen1, tlen2 = -best.ObservedInsert, best.ObservedInsert
		}

		out1.Status, out2.Status = search.StatusMapped, search.StatusMapped
		out1.ProperPair, out2.ProperPair = true, true
		out1.MateMapped, out2.MateMapped = true, true
		out1.Traces, out2.Traces = []matches.Trace{t1}, []matches.Trace{t2}
		out1.MateChromosome, out2.MateChromosome = t2.Chromosome, t1.Chromosome
		out1.MatePosition, out2.MatePosition = t2.Position, t1.Position
		out1.MateStrand, out2.MateStrand = t2.Strand, t1.Strand
		out1.TemplateLen, out2.TemplateLen = tlen1, tlen2
		return out1, out2
	}

	// No template survived cross-filtering: report whatever each end found
	// independently, without claiming a proper pair.
	out1.Traces = copyTraces(result.Mate1, cfg.MaxMatchesReported)
	out2.Traces = copyTraces(result.Mate2, cfg.MaxMatchesReported)
	if len(out1.Traces) == 0 {
		out1.Reason = search.ReasonNoCandidatesSurvivedVerification
	}
	if len(out2.Traces) == 0 {
		out2.Reason = search.ReasonNoCandidatesSurvivedVerification
	}
	out1.MateMapped = len(out2.Traces) > 0
	out2.MateMapped = len(out1.Traces) > 0
	if out1.MateMapped {
		best2 := out2.Traces[0]
		out1.MateChromosome, out1.MatePosition, out1.MateStrand = best2.Chromosome, best2.Position, best2.Strand
	}
	if out2.MateMapped {
		best1 := out1.Traces[0]
		out2.MateChromosome, out2.MatePosition, out2.MateStrand = best1.Chromosome, best1.Position, best1.Strand
	}
	return out1, out2
}

// writeSAM renders header and every result's outputs to path, in
// seqNum order, following bio-fusion's single-writer-at-the-end shape.
func writeSAM(ctx context.Context, path string, header *htssam.Header, results []res) {
	out, err := file.Create(ctx, path)
	if err != nil {
		log.Panicf("gem3-mapper: create %v: %v", path, err)
	}
	var b strings.Builder
	b.WriteString(header.String())
	for _, r := range results {
		if err := sam.WriteRecord(&b, header, r.out1); err != nil {
			log.Panicf("gem3-mapper: rendering SAM: %v", err)
		}
		if r.out2.Read.ID != "" {
			if err := sam.WriteRecord(&b, header, r.out2); err != nil {
				log.Panicf("gem3-mapper: rendering SAM: %v", err)
			}
		}
	}
	if _, err := io.WriteString(out.Writer(ctx), b.String()); err != nil {
		log.Panicf("gem3-mapper: writing %v: %v", path, err)
	}
	if err := out.Close(ctx); err != nil {
		log.Panicf("gem3-mapper: closing %v: %v", path, err)
	}
	log.Printf("gem3-mapper: wrote %d records to %s", len(results), path)
}
