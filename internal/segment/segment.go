// Package segment implements the on-disk segment file lifecycle: creating
// and appending to the active segment, mmap'ing sealed and active segments
// read-only for the random-read path, and scanning a segment's record
// stream during crash recovery.
package segment

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tysonmote/gommap"

	"github.com/logcrate/logcrate/internal/codec"
)

// Path returns the on-disk path of the segment file with the given id
// inside dir.
func Path(dir string, id uint64) string {
	return filepath.Join(dir, codec.SegmentFilename(id))
}

// ActiveSegment is the Writer's exclusive handle to the single writable
// segment. All writes go through Append, which issues one contiguous write
// call per batch and advances the cursor only on success.
type ActiveSegment struct {
	file   *os.File
	id     uint64
	offset uint64
}

// Create opens a brand-new segment file for id, refusing to overwrite an
// existing file with the same name, writes the 20-byte segment header, and
// returns the active segment positioned just past the header.
func Create(dir string, id uint64) (*ActiveSegment, error) {
	f, err := os.OpenFile(Path(dir, id), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("segment: create %016x: %w", id, err)
	}

	header := make([]byte, codec.SegmentHeaderSize)
	if err := codec.EncodeSegmentHeader(header, id); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: write header %016x: %w", id, err)
	}

	return &ActiveSegment{file: f, id: id, offset: uint64(codec.SegmentHeaderSize)}, nil
}

// OpenTail reopens an existing segment file for append-only continuation
// after recovery, truncating any bytes past validOffset (the partial
// trailing record, if any, left by a prior crash) and positioning the write
// cursor there.
func OpenTail(dir string, id uint64, validOffset uint64) (*ActiveSegment, error) {
	f, err := os.OpenFile(Path(dir, id), os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("segment: reopen %016x: %w", id, err)
	}
	if err := f.Truncate(int64(validOffset)); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: truncate tail %016x: %w", id, err)
	}
	if _, err := f.Seek(int64(validOffset), os.SEEK_SET); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: seek tail %016x: %w", id, err)
	}
	return &ActiveSegment{file: f, id: id, offset: validOffset}, nil
}

// ID returns the segment's id (also the record id of its first record).
func (s *ActiveSegment) ID() uint64 { return s.id }

// Offset returns the current write cursor, i.e. the byte offset one past
// the last successfully written record.
func (s *ActiveSegment) Offset() uint64 { return s.offset }

// Append issues a single contiguous write of buf (an already-encoded batch
// of header||payload records) at the current cursor. On success the cursor
// advances by len(buf); on failure the cursor is left unchanged so recovery
// can trim whatever partial bytes made it to disk.
func (s *ActiveSegment) Append(buf []byte) error {
	n, err := s.file.Write(buf)
	if err != nil {
		return fmt.Errorf("segment: append %016x: %w", s.id, err)
	}
	s.offset += uint64(n)
	return nil
}

// Sync durably flushes the segment file to stable storage.
func (s *ActiveSegment) Sync() error {
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("segment: sync %016x: %w", s.id, err)
	}
	return nil
}

// Close flushes and closes the segment file.
func (s *ActiveSegment) Close() error {
	syncErr := s.Sync()
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("segment: close %016x: %w", s.id, err)
	}
	return syncErr
}

// ReadSegment is a stateless, read-only handle on a sealed or active
// segment file, mmap'd for positional reads. Multiple ReadSegments
// over the same file, and a concurrent ActiveSegment writer, may coexist
// safely: POSIX guarantees reads and appends to independent handles on the
// same file don't conflict.
type ReadSegment struct {
	id   uint64
	file *os.File
	data gommap.MMap
}

// OpenRead mmaps the segment file for id read-only and validates its
// header.
func OpenRead(dir string, id uint64) (*ReadSegment, error) {
	f, err := os.Open(Path(dir, id))
	if err != nil {
		return nil, fmt.Errorf("segment: open %016x: %w", id, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: stat %016x: %w", id, err)
	}
	if fi.Size() < codec.SegmentHeaderSize {
		f.Close()
		return nil, fmt.Errorf("%w: %016x is shorter than the segment header", codec.ErrCorruptHeader, id)
	}

	data, err := gommap.Map(f.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: mmap %016x: %w", id, err)
	}

	hdr, err := codec.DecodeSegmentHeader(data)
	if err != nil {
		f.Close()
		return nil, err
	}
	if hdr.SegmentID != id {
		f.Close()
		return nil, fmt.Errorf("%w: filename %016x carries header segment id %016x", codec.ErrCorruptHeader, id, hdr.SegmentID)
	}

	return &ReadSegment{id: id, file: f, data: data}, nil
}

// ID returns the segment's id.
func (r *ReadSegment) ID() uint64 { return r.id }

// Size returns the length of the mapping, i.e. the size the segment file
// had when OpenRead mapped it; later appends to the file are not covered.
func (r *ReadSegment) Size() uint64 { return uint64(len(r.data)) }

// Bytes returns the segment's whole mmap'd contents, for the recovery scan.
// Callers must not retain it past Close.
func (r *ReadSegment) Bytes() []byte { return r.data }

// ReadAt returns a copy of size bytes starting at offset. It is the
// positional read used by both the single-record and batched read paths.
func (r *ReadSegment) ReadAt(offset uint64, size uint32) ([]byte, error) {
	end := offset + uint64(size)
	if end > uint64(len(r.data)) {
		return nil, fmt.Errorf("segment: short read in %016x at offset %d: %w", r.id, offset, os.ErrClosed)
	}
	out := make([]byte, size)
	copy(out, r.data[offset:end])
	return out, nil
}

// Close closes the underlying file; the mapping is not explicitly
// unmapped. Safe to call once per ReadSegment returned by OpenRead.
func (r *ReadSegment) Close() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("segment: close %016x: %w", r.id, err)
	}
	return nil
}
