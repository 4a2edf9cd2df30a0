// Package index implements LogCrate's in-memory record-id -> IndexEntry
// mapping. The index is mutated only by the Crate coordinator's single
// event-loop goroutine (see package logcrate); every mutation produces a new
// immutable snapshot so concurrent Reader goroutines can hold a reference to
// one snapshot without locking, even while the coordinator installs the
// next one.
package index

import (
	"github.com/benbjohnson/immutable"
)

// Entry is the in-memory pointer to a single record.
type Entry struct {
	SegmentID uint64
	Offset    uint64
	TotalSize uint32
	Digest    [20]byte
}

// PayloadSize returns the size of the record's payload, excluding the
// 24-byte record header.
func (e Entry) PayloadSize() uint32 {
	return e.TotalSize - 24
}

// Index is an immutable snapshot of the record-id -> Entry mapping. The
// zero value is a valid, empty Index.
type Index struct {
	m *immutable.SortedMap[uint64, Entry]
}

// New returns an empty Index.
func New() *Index {
	return &Index{m: &immutable.SortedMap[uint64, Entry]{}}
}

// Get returns the entry for id, if present.
func (idx *Index) Get(id uint64) (Entry, bool) {
	if idx == nil || idx.m == nil {
		return Entry{}, false
	}
	return idx.m.Get(id)
}

// Put returns a new Index with id mapped to entry. The receiver is
// unmodified, so any Reader holding it keeps seeing the old mapping.
func (idx *Index) Put(id uint64, entry Entry) *Index {
	base := idx
	if base == nil || base.m == nil {
		base = New()
	}
	return &Index{m: base.m.Set(id, entry)}
}

// Len returns the number of entries in the index.
func (idx *Index) Len() int {
	if idx == nil || idx.m == nil {
		return 0
	}
	return idx.m.Len()
}

// IsEmpty reports whether the index has no entries.
func (idx *Index) IsEmpty() bool {
	return idx.Len() == 0
}

// Range returns the smallest and largest record ids currently indexed. ok is
// false when the index is empty.
func (idx *Index) Range() (min, max uint64, ok bool) {
	if idx.IsEmpty() {
		return 0, 0, false
	}
	it := idx.m.Iterator()
	minKey, _, _ := it.Next()
	it.Last()
	maxKey, _, _ := it.Prev()
	return minKey, maxKey, true
}

// Ascend walks entries in ascending id order starting at the first id >=
// from, calling fn for each until fn returns false or entries are exhausted.
func (idx *Index) Ascend(from uint64, fn func(id uint64, e Entry) bool) {
	if idx == nil || idx.m == nil {
		return
	}
	it := idx.m.Iterator()
	for !it.Done() {
		k, v, ok := it.Next()
		if !ok {
			return
		}
		if k < from {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}
