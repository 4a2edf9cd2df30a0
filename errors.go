package logcrate

import "github.com/logcrate/logcrate/internal/crateerrors"

// Sentinel errors returned by the crate's public operations. Callers should
// compare with errors.Is; wrapped I/O errors unwrap to the underlying
// *os.PathError or syscall error. These are the same error values the
// internal packages detect and return, so errors.Is matches through any
// number of fmt.Errorf("%w", ...) wraps added along the way up.
var (
	// ErrDirectoryExists is returned by Create when the target directory
	// already exists.
	ErrDirectoryExists = crateerrors.ErrDirectoryExists

	// ErrDirectoryMissing is returned by Open when the target directory does
	// not exist, or exists but contains no segments.
	ErrDirectoryMissing = crateerrors.ErrDirectoryMissing

	// ErrCorruptHeader is returned when a segment file header has a bad
	// magic, an unsupported version, or is truncated below 20 bytes.
	ErrCorruptHeader = crateerrors.ErrCorruptHeader

	// ErrCorruptRecord is returned by a read when the stored payload size or
	// digest does not match the index entry.
	ErrCorruptRecord = crateerrors.ErrCorruptRecord

	// ErrMalformed is returned by the record codec when a caller-supplied
	// buffer is too short for the fixed layout it is meant to hold.
	ErrMalformed = crateerrors.ErrMalformed

	// ErrInvariantViolation names the condition of the coordinator observing
	// a writer event it cannot correlate to a pending caller, which
	// indicates a bug, not a user error. No operation returns it: the
	// coordinator logs the event and terminates the crate, after which
	// operations return ErrClosed.
	ErrInvariantViolation = crateerrors.ErrInvariantViolation

	// ErrNotFound is returned by the read operations when the requested id
	// is not present in the index. It is not a failure mode -- it is a
	// normal result for ids the crate has never assigned or has pruned.
	ErrNotFound = crateerrors.ErrNotFound

	// ErrClosed is returned by Append, AppendBatch, Read, ReadBatch and Close
	// once the crate has shut down. Range and Empty keep answering from the
	// last index snapshot.
	ErrClosed = crateerrors.ErrClosed
)
