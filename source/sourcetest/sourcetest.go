// Package sourcetest provides a scripted attribute source for tests.
package sourcetest

import (
	"sync"

	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/source"
)

// Source returns scripted dictionaries by path and counts reads.
// Unknown paths fail like a missing file.
type Source struct {
	mu       sync.Mutex
	dicts    map[string]source.Dictionary
	failures map[string]error
	reads    map[string]int
}

var _ source.Source = (*Source)(nil)

// New returns an empty scripted source.
func New() *Source {
	return &Source{
		dicts:    make(map[string]source.Dictionary),
		failures: make(map[string]error),
		reads:    make(map[string]int),
	}
}

// Put scripts the dictionary returned for path and clears any failure.
func (s *Source) Put(path string, d source.Dictionary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dicts[path] = d
	delete(s.failures, path)
}

// Fail makes reads of path return err.
func (s *Source) Fail(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = err
}

// Remove forgets path, so later reads fail as not found.
func (s *Source) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dicts, path)
	delete(s.failures, path)
}

// Read implements source.Source.
func (s *Source) Read(path string) (source.Dictionary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[path]++
	if err, ok := s.failures[path]; ok {
		return nil, err
	}
	d, ok := s.dicts[path]
	if !ok {
		return nil, errors.NotFoundf("no such file: %s", path)
	}
	return d, nil
}

// Reads reports how many times path was read.
func (s *Source) Reads(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[path]
}

// TotalReads reports reads across all paths.
func (s *Source) TotalReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.reads {
		total += n
	}
	return total
}
