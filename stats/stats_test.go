package stats_test

import (
	"testing"

	"github.com/grailbio/gem3/stats"
)

func TestMergeSumsCounters(t *testing.T) {
	a := stats.Stats{Reads: 10, Mapped: 8, BPMAccepted: 3}
	b := stats.Stats{Reads: 5, Mapped: 4, BPMAccepted: 1}
	m := a.Merge(b)
	if m.Reads != 15 || m.Mapped != 12 || m.BPMAccepted != 4 {
		t.Errorf("Merge() = %+v, want Reads=15 Mapped=12 BPMAccepted=4", m)
	}
}

func TestRecordDistanceClampsToLastBucket(t *testing.T) {
	var s stats.Stats
	s.RecordDistance(0)
	s.RecordDistance(2)
	s.RecordDistance(100)
	if s.EditDistanceHistogram[0] != 1 || s.EditDistanceHistogram[2] != 1 {
		t.Errorf("histogram = %+v, want buckets 0 and 2 incremented", s.EditDistanceHistogram)
	}
	last := len(s.EditDistanceHistogram) - 1
	if s.EditDistanceHistogram[last] != 1 {
		t.Errorf("histogram[%d] = %d, want 1 (distance 100 clamped)", last, s.EditDistanceHistogram[last])
	}
}
