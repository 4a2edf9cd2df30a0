// Package crateerrors holds the sentinel errors shared across every layer
// of the crate -- codec, segment, index, writer, reader and the public
// coordinator -- so that a single error value flows from the package that
// detects a condition up to the caller that compares it with errors.Is,
// regardless of how many times it gets wrapped with fmt.Errorf("%w", ...)
// along the way.
package crateerrors

import "errors"

var (
	// ErrDirectoryExists is returned by Create when the target directory
	// already exists.
	ErrDirectoryExists = errors.New("logcrate: directory already exists")

	// ErrDirectoryMissing is returned by Open when the target directory does
	// not exist, or exists but contains no segments.
	ErrDirectoryMissing = errors.New("logcrate: directory missing or not a crate")

	// ErrCorruptHeader is returned when a segment file header has a bad
	// magic, an unsupported version, or is truncated below the header size.
	ErrCorruptHeader = errors.New("logcrate: corrupt segment header")

	// ErrCorruptRecord is returned by a read when the stored payload size or
	// digest does not match the index entry.
	ErrCorruptRecord = errors.New("logcrate: corrupt record")

	// ErrMalformed is returned by the record codec when a caller-supplied
	// buffer is too short for the fixed layout it is meant to hold.
	ErrMalformed = errors.New("logcrate: malformed input")

	// ErrInvalidArgument is returned by the record codec when a
	// caller-supplied value is the wrong shape for the fixed layout, as
	// opposed to a buffer that's simply too short (ErrMalformed) -- a
	// digest of the wrong length is a caller bug, not truncated input.
	ErrInvalidArgument = errors.New("logcrate: invalid argument")

	// ErrInvariantViolation names the condition of the coordinator observing
	// a writer event it cannot correlate to a pending caller, which
	// indicates a bug, not a user error. No operation returns it: the
	// coordinator logs the event and terminates the crate, after which
	// operations return ErrClosed.
	ErrInvariantViolation = errors.New("logcrate: invariant violation")

	// ErrNotFound is returned by the read operations when the requested id
	// is not present in the index. It is not a failure mode -- it is a
	// normal result for ids the crate has never assigned or has pruned.
	ErrNotFound = errors.New("logcrate: record not found")

	// ErrClosed is returned by Append, AppendBatch, Read, ReadBatch and Close
	// once the crate has shut down. Range and Empty keep answering from the
	// last index snapshot.
	ErrClosed = errors.New("logcrate: crate is closed")
)
