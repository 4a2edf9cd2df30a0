// Package logcrate implements an embeddable, append-only, log-structured
// key-value store. A Crate manages a directory on local disk holding an
// ordered set of fixed-format segment files; callers append opaque
// payloads (each carrying a 20-byte caller-supplied content digest) and
// read them back by the monotonically increasing record id assigned at
// append time.
package logcrate

import (
	"container/list"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/logcrate/logcrate/internal/codec"
	"github.com/logcrate/logcrate/internal/crateerrors"
	"github.com/logcrate/logcrate/internal/index"
	"github.com/logcrate/logcrate/internal/metrics"
	"github.com/logcrate/logcrate/internal/reader"
	"github.com/logcrate/logcrate/internal/segment"
	"github.com/logcrate/logcrate/internal/writer"
)

// DigestSize is the length in bytes of the content digest every record
// carries. The crate never computes or interprets a digest; it only
// stores it and round-trips it back on read.
const DigestSize = codec.DigestSize

// Record is one (digest, payload) pair, as supplied to Append or returned
// by Read/ReadBatch.
type Record struct {
	Digest  [DigestSize]byte
	Payload []byte
}

// Crate is a handle on one crate directory. The zero value is not usable;
// obtain one with Create or Open. A Crate is safe for concurrent use:
// Append calls from multiple goroutines are serialized and assigned ids in
// the order the coordinator receives them, while Read/ReadBatch/Range/
// Empty never block on the append path.
type Crate struct {
	dir            string
	segmentMaxSize uint64
	logger         zerolog.Logger
	metrics        *metrics.Metrics
	writer         *writer.Writer
	reader         *reader.Reader

	idx atomic.Pointer[index.Index]

	appendReqs chan appendRequest
	closeReqs  chan chan error
	done       chan struct{}
}

type appendRequest struct {
	records []writer.Record
	reply   chan appendReply
}

type appendReply struct {
	ids []uint64
	err error
}

// Create makes a brand-new crate directory at dir and returns a handle
// positioned to append starting at record id 0. It fails with
// ErrDirectoryExists if dir already exists.
func Create(dir string, opts ...Option) (*Crate, error) {
	o := buildOptions(opts)

	if _, err := os.Stat(dir); err == nil {
		return nil, crateerrors.ErrDirectoryExists
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("logcrate: stat %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logcrate: create %s: %w", dir, err)
	}

	// The first segment is rolled lazily by the Writer on the first
	// Append, exactly as it would be for any later roll: a crate that is
	// created and closed without ever being appended to has no segment
	// files, and reopening it fails with ErrDirectoryMissing (see
	// recoverDir) until something has actually been appended.
	return newCrate(dir, o, 0, nil, index.New()), nil
}

// Open recovers an existing crate directory: it scans every segment file
// ascending, rebuilds the in-memory Index by replaying well-formed
// records, and resumes appending after the last one. A partially written
// trailing record left by an unclean shutdown is truncated away rather
// than reused. Open fails with ErrDirectoryMissing if dir does not exist
// or contains no segments, and with ErrCorruptHeader if any segment's
// header fails to parse.
func Open(dir string, opts ...Option) (*Crate, error) {
	o := buildOptions(opts)

	fi, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, crateerrors.ErrDirectoryMissing
		}
		return nil, fmt.Errorf("logcrate: stat %s: %w", dir, err)
	}
	if !fi.IsDir() {
		return nil, crateerrors.ErrDirectoryMissing
	}

	rr, err := recoverDir(dir)
	if err != nil {
		return nil, err
	}

	active, err := segment.OpenTail(dir, rr.activeSegmentID, rr.tailOffset)
	if err != nil {
		return nil, err
	}

	c := newCrate(dir, o, rr.nextID, active, rr.idx)
	if c.metrics != nil {
		c.metrics.ObserveRecovery(rr.segmentCount, rr.indexedBytes)
	}
	o.logger.Info().
		Int("segments", rr.segmentCount).
		Uint64("next_id", rr.nextID).
		Msg("crate recovered")
	return c, nil
}

func newCrate(dir string, o Options, nextID uint64, active *segment.ActiveSegment, idx *index.Index) *Crate {
	var m *metrics.Metrics
	var sink writer.MetricsSink
	if o.registerer != nil {
		m = metrics.New(o.registerer)
		sink = m
	}

	c := &Crate{
		dir:            dir,
		segmentMaxSize: o.segmentMaxSize,
		logger:         o.logger,
		metrics:        m,
		appendReqs:     make(chan appendRequest),
		closeReqs:      make(chan chan error),
		done:           make(chan struct{}),
	}
	c.idx.Store(idx)
	c.writer = writer.Start(dir, o.segmentMaxSize, nextID, active, o.logger, sink)
	c.reader = reader.New(dir, o.readCacheSize)
	go c.loop()
	return c
}

// loop is the Crate coordinator's single event-loop goroutine. It owns the
// Index and the in-flight FIFO of append callers; it is the only goroutine
// that ever mutates either.
func (c *Crate) loop() {
	pending := list.New()

	applyOutcome := func(out writer.Outcome) appendReply {
		if out.Err != nil {
			return appendReply{err: out.Err}
		}
		idx := c.idx.Load()
		ids := make([]uint64, len(out.Result.Records))
		for i, rec := range out.Result.Records {
			idx = idx.Put(rec.RecordID, index.Entry{
				SegmentID: rec.SegmentID,
				Offset:    rec.Offset,
				TotalSize: rec.TotalSize,
				Digest:    rec.Digest,
			})
			ids[i] = rec.RecordID
		}
		c.idx.Store(idx)
		return appendReply{ids: ids}
	}

	for {
		select {
		case req := <-c.appendReqs:
			c.writer.Enqueue(req.records)
			pending.PushBack(req.reply)

		case out := <-c.writer.Events():
			front := pending.Front()
			if front == nil {
				c.logger.Error().Msg("writer event with no pending append: invariant violation, terminating crate")
				c.writer.Close()
				close(c.done)
				return
			}
			pending.Remove(front)
			front.Value.(chan appendReply) <- applyOutcome(out)

		case reply := <-c.closeReqs:
			for pending.Len() > 0 {
				out := <-c.writer.Events()
				front := pending.Front()
				pending.Remove(front)
				front.Value.(chan appendReply) <- applyOutcome(out)
			}
			err := c.writer.Close()
			c.reader.Close()
			close(c.done)
			reply <- err
			return
		}
	}
}

// Close flushes and closes the crate's active segment. Any append
// enqueued before Close was called is completed (or explicitly failed)
// first. Close is synchronous: it does not return until the Writer has
// acknowledged shutdown.
func (c *Crate) Close() error {
	reply := make(chan error, 1)
	select {
	case c.closeReqs <- reply:
	case <-c.done:
		return crateerrors.ErrClosed
	}
	return <-reply
}

// Append writes one record and returns its assigned id.
func (c *Crate) Append(rec Record) (uint64, error) {
	ids, err := c.appendBatch([]Record{rec})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// AppendBatch writes every record in records as a single atomic batch and
// returns their assigned ids in input order.
func (c *Crate) AppendBatch(records []Record) ([]uint64, error) {
	return c.appendBatch(records)
}

func (c *Crate) appendBatch(records []Record) ([]uint64, error) {
	if len(records) == 0 {
		return nil, nil
	}

	wrecs := make([]writer.Record, len(records))
	for i, r := range records {
		wrecs[i] = writer.Record{Digest: r.Digest, Payload: r.Payload}
	}

	reply := make(chan appendReply, 1)
	select {
	case c.appendReqs <- appendRequest{records: wrecs, reply: reply}:
	case <-c.done:
		return nil, crateerrors.ErrClosed
	}

	select {
	case r := <-reply:
		return r.ids, r.err
	case <-c.done:
		return nil, crateerrors.ErrClosed
	}
}

// Read returns the record stored under id. It replies ErrNotFound if id
// has never been assigned (or was pruned), and ErrCorruptRecord if the
// stored bytes don't match what the index expects.
func (c *Crate) Read(id uint64) (Record, error) {
	if c.isClosed() {
		return Record{}, crateerrors.ErrClosed
	}

	entry, ok := c.idx.Load().Get(id)
	if !ok {
		return Record{}, crateerrors.ErrNotFound
	}

	rec, err := c.reader.ReadOne(entry)
	if err != nil {
		return Record{}, err
	}
	if c.metrics != nil {
		c.metrics.ObserveRead(1, len(rec.Payload))
	}
	return Record{Digest: rec.Digest, Payload: rec.Payload}, nil
}

// ReadBatch walks the index forward from startID, admitting records into
// the result greedily while their cumulative payload size stays within
// maxBytes, then reads the admitted prefix. A record that would overflow
// the budget stops the walk -- later, smaller records are never skipped
// ahead of it. It replies ErrNotFound if startID itself is not indexed,
// distinct from an empty result (which means startID exists but its
// payload alone already exceeds maxBytes).
func (c *Crate) ReadBatch(startID uint64, maxBytes uint64) ([]Record, error) {
	if c.isClosed() {
		return nil, crateerrors.ErrClosed
	}

	idx := c.idx.Load()
	if _, ok := idx.Get(startID); !ok {
		return nil, crateerrors.ErrNotFound
	}

	var entries []index.Entry
	remaining := maxBytes
	idx.Ascend(startID, func(id uint64, e index.Entry) bool {
		size := uint64(e.PayloadSize())
		if size > remaining {
			return false
		}
		entries = append(entries, e)
		remaining -= size
		return true
	})

	if len(entries) == 0 {
		return []Record{}, nil
	}

	recs, err := c.reader.ReadBatch(entries)
	if err != nil {
		return nil, err
	}

	out := make([]Record, len(recs))
	totalBytes := 0
	for i, r := range recs {
		out[i] = Record{Digest: r.Digest, Payload: r.Payload}
		totalBytes += len(r.Payload)
	}
	if c.metrics != nil {
		c.metrics.ObserveRead(len(out), totalBytes)
	}
	return out, nil
}

// Range returns the smallest and largest record ids currently indexed. ok
// is false when the crate is empty.
func (c *Crate) Range() (min uint64, max uint64, ok bool) {
	return c.idx.Load().Range()
}

// Empty reports whether the crate holds no records.
func (c *Crate) Empty() bool {
	return c.idx.Load().IsEmpty()
}

func (c *Crate) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
