package reader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/logcrate/logcrate/internal/codec"
	"github.com/logcrate/logcrate/internal/crateerrors"
	"github.com/logcrate/logcrate/internal/index"
	"github.com/logcrate/logcrate/internal/segment"
)

func writeRecords(t *testing.T, dir string, segID uint64, payloads []string) []index.Entry {
	t.Helper()
	seg, err := segment.Create(dir, segID)
	require.NoError(t, err)

	var entries []index.Entry
	for _, p := range payloads {
		var digest [codec.DigestSize]byte
		copy(digest[:], p)

		buf := make([]byte, codec.RecordHeaderSize+len(p))
		_, err := codec.EncodeRecord(buf, digest[:], []byte(p))
		require.NoError(t, err)

		offset := seg.Offset()
		require.NoError(t, seg.Append(buf))

		entries = append(entries, index.Entry{
			SegmentID: segID,
			Offset:    offset,
			TotalSize: uint32(len(buf)),
			Digest:    digest,
		})
	}
	require.NoError(t, seg.Close())
	return entries
}

func TestReadOneReturnsDigestAndPayload(t *testing.T) {
	dir := t.TempDir()
	entries := writeRecords(t, dir, 0, []string{"hello", "world"})

	r := New(dir, 0)
	defer r.Close()

	rec, err := r.ReadOne(entries[1])
	require.NoError(t, err)
	require.Equal(t, "world", string(rec.Payload))
	require.Equal(t, entries[1].Digest, rec.Digest)
}

func TestReadOneDetectsDigestMismatch(t *testing.T) {
	dir := t.TempDir()
	entries := writeRecords(t, dir, 0, []string{"hello"})

	tampered := entries[0]
	tampered.Digest[0] ^= 0xff

	r := New(dir, 0)
	defer r.Close()

	_, err := r.ReadOne(tampered)
	require.ErrorIs(t, err, crateerrors.ErrCorruptRecord)
}

func TestReadBatchSpansSegmentsInOrder(t *testing.T) {
	dir := t.TempDir()
	first := writeRecords(t, dir, 0, []string{"a", "batch"})
	second := writeRecords(t, dir, 2, []string{"of", "records"})

	entries := append(append([]index.Entry{}, first...), second...)

	r := New(dir, 0)
	defer r.Close()

	recs, err := r.ReadBatch(entries)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	require.Equal(t, []string{"a", "batch", "of", "records"}, []string{
		string(recs[0].Payload), string(recs[1].Payload), string(recs[2].Payload), string(recs[3].Payload),
	})
}

func TestReadBatchEmptyInputReturnsNil(t *testing.T) {
	r := New(t.TempDir(), 0)
	defer r.Close()

	recs, err := r.ReadBatch(nil)
	require.NoError(t, err)
	require.Nil(t, recs)
}

func TestReadOneSucceedsAcrossCallsWithSingleHandleCache(t *testing.T) {
	dir := t.TempDir()
	entries := writeRecords(t, dir, 0, []string{"one", "two", "three"})

	r := New(dir, 1)
	defer r.Close()

	for _, e := range entries {
		_, err := r.ReadOne(e)
		require.NoError(t, err)
	}
}

// Mirrors the ordinary active-segment interleaving: a record lands in a
// segment that is still open for writes, gets read back (caching a handle
// mmap'd at that length), and then a second record is appended to the
// same, still-active segment before the first cached handle is ever
// evicted. The second read must not reuse a mapping that predates the
// growth.
func TestReadOneRemapsWhenActiveSegmentGrowsPastCachedMapping(t *testing.T) {
	dir := t.TempDir()
	active, err := segment.Create(dir, 0)
	require.NoError(t, err)

	writeOne := func(p string) index.Entry {
		var digest [codec.DigestSize]byte
		copy(digest[:], p)
		buf := make([]byte, codec.RecordHeaderSize+len(p))
		_, err := codec.EncodeRecord(buf, digest[:], []byte(p))
		require.NoError(t, err)
		offset := active.Offset()
		require.NoError(t, active.Append(buf))
		return index.Entry{SegmentID: 0, Offset: offset, TotalSize: uint32(len(buf)), Digest: digest}
	}

	entry0 := writeOne("hello")
	require.NoError(t, active.Sync())

	r := New(dir, 4)
	defer r.Close()

	rec0, err := r.ReadOne(entry0)
	require.NoError(t, err)
	require.Equal(t, "hello", string(rec0.Payload))

	entry1 := writeOne("world")
	require.NoError(t, active.Sync())

	rec1, err := r.ReadOne(entry1)
	require.NoError(t, err)
	require.Equal(t, "world", string(rec1.Payload))

	require.NoError(t, active.Close())
}
