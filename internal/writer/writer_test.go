package writer

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/logcrate/logcrate/internal/codec"
	"github.com/logcrate/logcrate/internal/segment"
)

func mkRecord(t *testing.T, payload string) Record {
	t.Helper()
	var digest [codec.DigestSize]byte
	copy(digest[:], payload)
	return Record{Digest: digest, Payload: []byte(payload)}
}

func TestSubmitAssignsSequentialIDsAndRollsOnlyForFirstBatch(t *testing.T) {
	dir := t.TempDir()
	w := Start(dir, 1<<20, 0, nil, zerolog.Nop(), nil)
	defer w.Close()

	res, err := w.Submit([]Record{mkRecord(t, "a"), mkRecord(t, "b")})
	require.NoError(t, err)
	require.True(t, res.Rolled)
	require.Len(t, res.Records, 2)
	require.Equal(t, uint64(0), res.Records[0].RecordID)
	require.Equal(t, uint64(1), res.Records[1].RecordID)

	res2, err := w.Submit([]Record{mkRecord(t, "c")})
	require.NoError(t, err)
	require.False(t, res2.Rolled)
	require.Equal(t, uint64(2), res2.Records[0].RecordID)
}

func TestSubmitRollsWhenBatchExceedsSegmentMaxSize(t *testing.T) {
	dir := t.TempDir()
	w := Start(dir, 8, 0, nil, zerolog.Nop(), nil)
	defer w.Close()

	res, err := w.Submit([]Record{mkRecord(t, "0123456")})
	require.NoError(t, err)
	require.True(t, res.Rolled)
	firstSegment := res.Records[0].SegmentID

	res2, err := w.Submit([]Record{mkRecord(t, "lots and lots more data to push us over")})
	require.NoError(t, err)
	require.True(t, res2.Rolled)
	require.NotEqual(t, firstSegment, res2.Records[0].SegmentID)
	require.Equal(t, uint64(1), res2.Records[0].RecordID)
}

func TestSubmitContinuesFromExistingActiveSegment(t *testing.T) {
	dir := t.TempDir()
	seg, err := segment.Create(dir, 0)
	require.NoError(t, err)

	w := Start(dir, 1<<20, 5, seg, zerolog.Nop(), nil)
	defer w.Close()

	res, err := w.Submit([]Record{mkRecord(t, "x")})
	require.NoError(t, err)
	require.False(t, res.Rolled)
	require.Equal(t, uint64(5), res.Records[0].RecordID)
	require.Equal(t, uint64(0), res.Records[0].SegmentID)
}

type countingMetrics struct {
	appends int
	bytes   int
	rolls   int
}

func (c *countingMetrics) ObserveAppend(records int, bytes int) {
	c.appends += records
	c.bytes += bytes
}

func (c *countingMetrics) ObserveRoll() {
	c.rolls++
}

func TestSubmitReportsMetrics(t *testing.T) {
	dir := t.TempDir()
	m := &countingMetrics{}
	w := Start(dir, 1<<20, 0, nil, zerolog.Nop(), m)
	defer w.Close()

	_, err := w.Submit([]Record{mkRecord(t, "a"), mkRecord(t, "b")})
	require.NoError(t, err)

	require.Equal(t, 2, m.appends)
	require.Equal(t, 1, m.rolls)
	require.Greater(t, m.bytes, 0)
}
