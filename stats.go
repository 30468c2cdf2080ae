package docwalk

import (
	"maps"
	"slices"
	"sync"
)

// Stats counts the outcome of one or more walks. The zero value is ready
// to use and all methods are safe for concurrent use.
type Stats struct {
	mu          sync.Mutex
	records     map[Category]int
	unsupported int
	failures    map[string]int
}

// Record counts an emitted record.
func (s *Stats) Record(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make(map[Category]int)
	}
	s.records[rec.FileType]++
}

// Skip counts an unsupported entry. Its signature matches WithSkipHandler.
func (s *Stats) Skip(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsupported++
}

// Failure counts a failure by kind. Its signature matches
// WithFailureHandler.
func (s *Stats) Failure(err *EntryError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures == nil {
		s.failures = make(map[string]int)
	}
	s.failures[FailureKind(err)]++
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Documents    int
	Spreadsheets int
	Unsupported  int
	Failures     map[string]int
}

// Records returns the total number of records.
func (s Snapshot) Records() int {
	return s.Documents + s.Spreadsheets
}

// TotalFailures returns the number of failures of every kind.
func (s Snapshot) TotalFailures() int {
	n := 0
	for _, c := range s.Failures {
		n += c
	}
	return n
}

// FailureKinds returns the failure kinds seen, sorted.
func (s Snapshot) FailureKinds() []string {
	return slices.Sorted(maps.Keys(s.Failures))
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Documents:    s.records[CategoryDocument],
		Spreadsheets: s.records[CategorySpreadsheet],
		Unsupported:  s.unsupported,
		Failures:     maps.Clone(s.failures),
	}
}
