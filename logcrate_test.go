package logcrate

import (
	"crypto/sha1"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func digestOf(payload string) [DigestSize]byte {
	return sha1.Sum([]byte(payload))
}

func mkRecord(payload string) Record {
	return Record{Digest: digestOf(payload), Payload: []byte(payload)}
}

func TestCreateThenEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crate")
	c, err := Create(dir)
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.Empty())
	_, _, ok := c.Range()
	require.False(t, ok)
}

func TestCreateRefusesExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := Create(dir)
	require.ErrorIs(t, err, ErrDirectoryExists)
}

func TestOpenRequiresExistingCrate(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, ErrDirectoryMissing)
}

func TestAppendAndReadBack(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crate")
	c, err := Create(dir)
	require.NoError(t, err)
	defer c.Close()

	id0, err := c.Append(mkRecord("hello"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), id0)

	id1, err := c.Append(mkRecord("world"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), id1)

	r0, err := c.Read(0)
	require.NoError(t, err)
	require.Equal(t, "hello", string(r0.Payload))
	require.Equal(t, digestOf("hello"), r0.Digest)

	r1, err := c.Read(1)
	require.NoError(t, err)
	require.Equal(t, "world", string(r1.Payload))

	min, max, ok := c.Range()
	require.True(t, ok)
	require.Equal(t, uint64(0), min)
	require.Equal(t, uint64(1), max)
}

func TestReadAfterEachAppendSeesGrowthOfActiveSegment(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crate")
	c, err := Create(dir)
	require.NoError(t, err)
	defer c.Close()

	id0, err := c.Append(mkRecord("hello"))
	require.NoError(t, err)

	r0, err := c.Read(id0)
	require.NoError(t, err)
	require.Equal(t, "hello", string(r0.Payload))

	id1, err := c.Append(mkRecord("world"))
	require.NoError(t, err)

	r1, err := c.Read(id1)
	require.NoError(t, err)
	require.Equal(t, "world", string(r1.Payload))
}

func TestAppendBatchReturnsIDsInOrder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crate")
	c, err := Create(dir)
	require.NoError(t, err)
	defer c.Close()

	ids, err := c.AppendBatch([]Record{mkRecord("a"), mkRecord("batch"), mkRecord("of"), mkRecord("records")})
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 2, 3}, ids)

	recs, err := c.ReadBatch(0, 1024)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	require.Equal(t, "a", string(recs[0].Payload))
	require.Equal(t, "records", string(recs[3].Payload))
}

func TestRolloverCreatesNewSegmentFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crate")
	c, err := Create(dir, WithSegmentMaxSize(8))
	require.NoError(t, err)
	defer c.Close()

	id0, err := c.Append(mkRecord("0123456"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), id0)

	entries1, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries1, 1)

	id1, err := c.Append(mkRecord("lots and lots more data to push us over"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), id1)

	entries2, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries2, 2)

	r0, err := c.Read(0)
	require.NoError(t, err)
	require.Equal(t, "0123456", string(r0.Payload))

	r1, err := c.Read(1)
	require.NoError(t, err)
	require.Equal(t, "lots and lots more data to push us over", string(r1.Payload))
}

func TestRecoveryAcrossSegmentsAfterReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crate")
	c, err := Create(dir, WithSegmentMaxSize(90))
	require.NoError(t, err)

	payloads := []string{"0123456", "789abcd", "something much larger"}
	for _, p := range payloads {
		_, err := c.Append(mkRecord(p))
		require.NoError(t, err)
	}
	require.NoError(t, c.Close())

	reopened, err := Open(dir, WithSegmentMaxSize(90))
	require.NoError(t, err)
	defer reopened.Close()

	for id, p := range payloads {
		rec, err := reopened.Read(uint64(id))
		require.NoError(t, err)
		require.Equal(t, p, string(rec.Payload))
	}

	id3, err := reopened.Append(mkRecord("more data"))
	require.NoError(t, err)
	require.Equal(t, uint64(3), id3)
}

func TestBatchedReadByteBudget(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crate")
	c, err := Create(dir, WithSegmentMaxSize(90))
	require.NoError(t, err)
	defer c.Close()

	for _, p := range []string{"0123456", "789abcd", "something much larger", "more data"} {
		_, err := c.Append(mkRecord(p))
		require.NoError(t, err)
	}

	empty, err := c.ReadBatch(0, 3)
	require.NoError(t, err)
	require.Empty(t, empty)

	one, err := c.ReadBatch(0, 7)
	require.NoError(t, err)
	require.Len(t, one, 1)
	require.Equal(t, "0123456", string(one[0].Payload))

	two, err := c.ReadBatch(0, 14)
	require.NoError(t, err)
	require.Len(t, two, 2)

	spanning, err := c.ReadBatch(1, 30)
	require.NoError(t, err)
	require.Len(t, spanning, 2)
	require.Equal(t, "789abcd", string(spanning[0].Payload))
	require.Equal(t, "something much larger", string(spanning[1].Payload))

	all, err := c.ReadBatch(1, 1024)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "more data", string(all[2].Payload))
}

func TestNotFoundVsEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crate")
	c, err := Create(dir)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ReadBatch(0, 1024)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.Append(mkRecord("x"))
	require.NoError(t, err)

	_, err = c.ReadBatch(1, 1024)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadMissingIDReturnsNotFound(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crate")
	c, err := Create(dir)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Read(42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOperationsAfterCloseReturnErrClosed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crate")
	c, err := Create(dir)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Append(mkRecord("x"))
	require.ErrorIs(t, err, ErrClosed)

	_, err = c.Read(0)
	require.ErrorIs(t, err, ErrClosed)

	require.ErrorIs(t, c.Close(), ErrClosed)
}
