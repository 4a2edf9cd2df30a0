// Package writer implements the Writer component: the sole owner of the
// active segment's file handle and write cursor. A Writer runs as its own
// goroutine reached through a request channel, so the Crate coordinator
// never blocks holding any lock while a write is in flight; ordering is
// guaranteed because both the channel and the coordinator's forwarding
// loop are FIFO.
package writer

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/logcrate/logcrate/internal/codec"
	"github.com/logcrate/logcrate/internal/segment"
)

// Record is one (digest, payload) pair submitted for append.
type Record struct {
	Digest  [codec.DigestSize]byte
	Payload []byte
}

// Committed describes where one record landed after a successful batch
// write: the segment it lives in, the record id the Crate should assign,
// its byte offset, and its total on-disk size (header + payload).
type Committed struct {
	RecordID  uint64
	SegmentID uint64
	Offset    uint64
	TotalSize uint32
	Digest    [codec.DigestSize]byte
}

// Result is the outcome of one batch submission.
type Result struct {
	Records []Committed
	// Rolled and NewSegmentID describe a roll that happened while
	// servicing this batch, for the coordinator's logging/metrics.
	Rolled       bool
	NewSegmentID uint64
}

// MetricsSink receives append/roll observations. Implemented by the
// crate-level metrics type; nil-safe so tests can omit it.
type MetricsSink interface {
	ObserveAppend(records int, bytes int)
	ObserveRoll()
}

// Outcome is what the Writer reports back after processing one batch
// pulled off its request channel. Outcomes arrive on Events() in the same
// order batches were hamded to Enqueue, since both the channel and the
// goroutine draining it are FIFO -- no correlation id is needed.
type Outcome struct {
	Result Result
	Err    error
}

// Writer owns the active segment and processes append batches strictly in
// the order they are submitted.
type Writer struct {
	dir            string
	segmentMaxSize uint64
	logger         zerolog.Logger
	metrics        MetricsSink

	reqCh    chan []Record
	eventsCh chan Outcome
	closeCh  chan chan error

	// Owned exclusively by run; never touched from another goroutine.
	nextID uint64
	active *segment.ActiveSegment
}

// Start launches a Writer goroutine continuing from nextID with active as
// the (possibly nil, for a brand-new crate) currently open segment.
func Start(dir string, segmentMaxSize uint64, nextID uint64, active *segment.ActiveSegment, logger zerolog.Logger, metrics MetricsSink) *Writer {
	w := &Writer{
		dir:            dir,
		segmentMaxSize: segmentMaxSize,
		logger:         logger,
		metrics:        metrics,
		reqCh:          make(chan []Record),
		eventsCh:       make(chan Outcome),
		closeCh:        make(chan chan error),
		nextID:         nextID,
		active:         active,
	}
	go w.run()
	return w
}

func (w *Writer) run() {
	// Outcomes not yet taken off Events() wait here, so the goroutine keeps
	// accepting the next Enqueue instead of blocking on the event send.
	var queued []Outcome
	for {
		var out chan Outcome
		var next Outcome
		if len(queued) > 0 {
			out = w.eventsCh
			next = queued[0]
		}
		select {
		case records := <-w.reqCh:
			res, err := w.process(records)
			queued = append(queued, Outcome{Result: res, Err: err})
		case out <- next:
			queued = queued[1:]
		case reply := <-w.closeCh:
			reply <- w.shutdown()
			return
		}
	}
}

// Enqueue hands one batch to the Writer without waiting for it to be
// processed, so a coordinator can keep accepting the next client request
// while this batch's write is in flight. The corresponding Outcome arrives
// on Events(), in the order batches were enqueued.
func (w *Writer) Enqueue(records []Record) {
	w.reqCh <- records
}

// Events returns the channel the Writer reports batch outcomes on, one per
// Enqueue call, strictly in Enqueue order.
func (w *Writer) Events() <-chan Outcome {
	return w.eventsCh
}

// Submit is a synchronous convenience built on Enqueue/Events: it hands
// one batch to the Writer and blocks until it has been handed to the OS by
// a write call (or failed); no per-batch sync is issued. It must not be called concurrently with other
// Submit/Enqueue calls from more than one goroutine at a time -- the Crate
// coordinator pipelines batches with Enqueue/Events directly instead.
func (w *Writer) Submit(records []Record) (Result, error) {
	w.Enqueue(records)
	out := <-w.eventsCh
	return out.Result, out.Err
}

// Close instructs the Writer to flush and close its active segment, then
// stops the goroutine. Submit must not be called again afterward.
func (w *Writer) Close() error {
	reply := make(chan error, 1)
	w.closeCh <- reply
	return <-reply
}

func (w *Writer) shutdown() error {
	if w.active == nil {
		return nil
	}
	return w.active.Close()
}

func (w *Writer) process(records []Record) (Result, error) {
	if len(records) == 0 {
		return Result{}, nil
	}

	encoded := make([][]byte, len(records))
	total := 0
	for i, r := range records {
		buf := make([]byte, codec.RecordHeaderSize+len(r.Payload))
		if _, err := codec.EncodeRecord(buf, r.Digest[:], r.Payload); err != nil {
			return Result{}, err
		}
		encoded[i] = buf
		total += len(buf)
	}

	firstID := w.nextID

	// A segment that has not yet taken a single record is already "fresh":
	// writing into it, however large the batch, satisfies the rollover
	// policy without needing to roll to a second empty segment (which
	// would also collide on the segment id, since a fresh segment's id is
	// by definition the first record id it has not yet received).
	hasRecords := w.active != nil && w.active.Offset() > uint64(codec.SegmentHeaderSize)

	var rolled bool
	if w.active == nil || (hasRecords && w.active.Offset()+uint64(total) > w.segmentMaxSize) {
		if err := w.roll(firstID); err != nil {
			return Result{}, err
		}
		rolled = true
	}

	batch := make([]byte, 0, total)
	offsets := make([]uint64, len(records))
	sizes := make([]uint32, len(records))
	cursor := w.active.Offset()
	for i, enc := range encoded {
		offsets[i] = cursor
		sizes[i] = uint32(len(enc))
		cursor += uint64(len(enc))
		batch = append(batch, enc...)
	}

	if err := w.active.Append(batch); err != nil {
		return Result{}, fmt.Errorf("writer: append batch starting at %d: %w", firstID, err)
	}

	segmentID := w.active.ID()
	committed := make([]Committed, len(records))
	for i, r := range records {
		committed[i] = Committed{
			RecordID:  firstID + uint64(i),
			SegmentID: segmentID,
			Offset:    offsets[i],
			TotalSize: sizes[i],
			Digest:    r.Digest,
		}
	}
	w.nextID = firstID + uint64(len(records))

	if w.metrics != nil {
		w.metrics.ObserveAppend(len(records), total)
	}

	return Result{Records: committed, Rolled: rolled, NewSegmentID: segmentID}, nil
}

func (w *Writer) roll(newSegmentID uint64) error {
	if w.active != nil {
		if err := w.active.Close(); err != nil {
			return fmt.Errorf("writer: close segment %016x before roll: %w", w.active.ID(), err)
		}
	}
	seg, err := segment.Create(w.dir, newSegmentID)
	if err != nil {
		return fmt.Errorf("writer: roll to segment %016x: %w", newSegmentID, err)
	}
	w.active = seg
	w.logger.Info().Uint64("segment_id", newSegmentID).Msg("segment rolled")
	if w.metrics != nil {
		w.metrics.ObserveRoll()
	}
	return nil
}
