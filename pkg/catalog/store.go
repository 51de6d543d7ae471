package catalog

import (
	"sync/atomic"
)

// Store holds the current catalog snapshot for a source and swaps it
// atomically on rebuild.
//
// Readers call Snapshot and keep using the returned catalog for the whole
// operation; a concurrent Rebuild never mutates a snapshot in place, so a
// reader sees either the old or the new catalog, never a partially
// populated one. Store is safe for one writer and many readers.
type Store struct {
	current atomic.Pointer[Catalog]
}

// NewStore creates a store holding an empty catalog.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(Build(nil))
	return s
}

// Rebuild replaces the current snapshot with one built from records.
func (s *Store) Rebuild(records []Record) *Catalog {
	c := Build(records)
	s.current.Store(c)
	return c
}

// Snapshot returns the current catalog. The result is immutable and
// remains valid after subsequent rebuilds.
func (s *Store) Snapshot() *Catalog {
	return s.current.Load()
}
