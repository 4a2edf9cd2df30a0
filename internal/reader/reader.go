// Package reader implements the stateless Reader and BatchReader workers:
// short-lived read paths that never touch the Writer. Each call positional-
// reads directly out of a segment's mmap'd bytes, reusing a cached handle
// when the segment was recently touched.
package reader

import (
	"fmt"

	"github.com/logcrate/logcrate/internal/codec"
	"github.com/logcrate/logcrate/internal/crateerrors"
	"github.com/logcrate/logcrate/internal/index"
	"github.com/logcrate/logcrate/internal/segment"
)

// Record is one decoded (digest, payload) pair returned to a caller.
type Record struct {
	Digest  [codec.DigestSize]byte
	Payload []byte
}

// DefaultCacheSize is the number of open segment handles a Reader keeps
// around by default.
const DefaultCacheSize = 32

// Reader dispatches single and batched reads against a crate directory,
// caching open segment handles across calls.
type Reader struct {
	dir   string
	cache *Cache
}

// New returns a Reader over dir with a segment-handle cache sized to hold
// cacheSize handles. A cacheSize of 0 uses DefaultCacheSize.
func New(dir string, cacheSize int) *Reader {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Reader{dir: dir, cache: NewCache(dir, cacheSize)}
}

// Close closes every segment handle the Reader has cached.
func (r *Reader) Close() error {
	return r.cache.Close()
}

// ReadOne reads entry's bytes at its offset and validates the stored
// header against what the index expects. A mismatch in either payload
// size or digest is ErrCorruptRecord -- the crate never attempts to heal
// it.
func (r *Reader) ReadOne(entry index.Entry) (Record, error) {
	h, err := r.cache.acquire(entry.SegmentID, entry.Offset+uint64(entry.TotalSize))
	if err != nil {
		return Record{}, err
	}
	defer h.release()

	return readAt(h.seg, entry)
}

func readAt(seg *segment.ReadSegment, entry index.Entry) (Record, error) {
	raw, err := seg.ReadAt(entry.Offset, entry.TotalSize)
	if err != nil {
		return Record{}, err
	}

	hdr, err := codec.DecodeRecordHeader(raw[:codec.RecordHeaderSize])
	if err != nil {
		return Record{}, err
	}
	if hdr.PayloadSize != entry.PayloadSize() {
		return Record{}, fmt.Errorf("%w: record at offset %d in segment %016x: payload size %d, index expected %d",
			crateerrors.ErrCorruptRecord, entry.Offset, entry.SegmentID, hdr.PayloadSize, entry.PayloadSize())
	}
	if hdr.Digest != entry.Digest {
		return Record{}, fmt.Errorf("%w: record at offset %d in segment %016x: digest mismatch",
			crateerrors.ErrCorruptRecord, entry.Offset, entry.SegmentID)
	}

	return Record{Digest: hdr.Digest, Payload: raw[codec.RecordHeaderSize:]}, nil
}

// segmentGroup is every admitted entry that lives in one segment, in the
// ascending-offset order they must be read in.
type segmentGroup struct {
	segmentID uint64
	positions []int // indices into the caller's ordered entry slice
	entries   []index.Entry
}

// ReadBatch reads every entry in entries (already ordered ascending by
// record id, as produced by walking the Index forward), grouping by
// segment so each segment is acquired from the cache exactly once per
// call, and issuing the reads within a segment in ascending offset order.
// Results are returned in the same order as entries.
func (r *Reader) ReadBatch(entries []index.Entry) ([]Record, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	groups := make(map[uint64]*segmentGroup)
	var order []uint64
	for i, e := range entries {
		g, ok := groups[e.SegmentID]
		if !ok {
			g = &segmentGroup{segmentID: e.SegmentID}
			groups[e.SegmentID] = g
			order = append(order, e.SegmentID)
		}
		g.positions = append(g.positions, i)
		g.entries = append(g.entries, e)
	}

	type groupResult struct {
		positions []int
		records   []Record
		err       error
	}

	resultsCh := make(chan groupResult, len(order))
	for _, segID := range order {
		g := groups[segID]
		go func(g *segmentGroup) {
			recs, err := r.readGroup(g)
			resultsCh <- groupResult{positions: g.positions, records: recs, err: err}
		}(g)
	}

	out := make([]Record, len(entries))
	var firstErr error
	for range order {
		res := <-resultsCh
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		for j, pos := range res.positions {
			out[pos] = res.records[j]
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (r *Reader) readGroup(g *segmentGroup) ([]Record, error) {
	var minSize uint64
	for _, e := range g.entries {
		if need := e.Offset + uint64(e.TotalSize); need > minSize {
			minSize = need
		}
	}

	h, err := r.cache.acquire(g.segmentID, minSize)
	if err != nil {
		return nil, err
	}
	defer h.release()

	// Entries within a segment are visited in ascending offset order.
	type indexed struct {
		pos   int
		entry index.Entry
	}
	ordered := make([]indexed, len(g.entries))
	for i, e := range g.entries {
		ordered[i] = indexed{pos: i, entry: e}
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].entry.Offset < ordered[j-1].entry.Offset; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	recs := make([]Record, len(g.entries))
	for _, it := range ordered {
		rec, err := readAt(h.seg, it.entry)
		if err != nil {
			return nil, err
		}
		recs[it.pos] = rec
	}
	return recs, nil
}
