package logcrate

import (
	"fmt"

	"github.com/logcrate/logcrate/internal/crateerrors"
	"github.com/logcrate/logcrate/internal/index"
	"github.com/logcrate/logcrate/internal/segment"
)

// recoveryResult is everything Open needs to resume a crate: the rebuilt
// Index, the id the next append should receive, which segment is the
// active (writable) tail, and the offset in that segment past which bytes
// must be truncated before writing resumes.
type recoveryResult struct {
	idx             *index.Index
	nextID          uint64
	activeSegmentID uint64
	tailOffset      uint64
	segmentCount    int
	indexedBytes    int
}

// recoverDir lists dir's segment files ascending, scans each one for complete
// records, and rebuilds the Index entirely from what it finds -- the crate
// keeps no on-disk index file. A segment header that fails to decode
// aborts recovery entirely; a short read partway through a segment's
// records (a crash mid-append) is expected and simply ends that segment's
// contribution. Only the last segment's trailing partial bytes are slated
// for truncation (tailOffset); those of earlier segments are left in place.
func recoverDir(dir string) (recoveryResult, error) {
	ids, err := segment.ListIDs(dir)
	if err != nil {
		return recoveryResult{}, err
	}
	if len(ids) == 0 {
		return recoveryResult{}, crateerrors.ErrDirectoryMissing
	}

	idx := index.New()
	var nextID uint64
	indexedBytes := 0

	for i, segID := range ids {
		rs, err := segment.OpenRead(dir, segID)
		if err != nil {
			return recoveryResult{}, err
		}

		header, locations, validOffset, scanErr := segment.Scan(rs.Bytes())
		if scanErr != nil {
			rs.Close()
			return recoveryResult{}, scanErr
		}
		if header.SegmentID != segID {
			rs.Close()
			return recoveryResult{}, fmt.Errorf("%w: segment file %016x carries header id %016x", crateerrors.ErrCorruptHeader, segID, header.SegmentID)
		}

		recordID := segID
		for _, loc := range locations {
			idx = idx.Put(recordID, index.Entry{
				SegmentID: segID,
				Offset:    loc.Offset,
				TotalSize: loc.TotalSize,
				Digest:    loc.Digest,
			})
			indexedBytes += int(loc.TotalSize)
			recordID++
		}

		isLast := i == len(ids)-1
		if isLast {
			nextID = recordID
			rs.Close()
			return recoveryResult{
				idx:             idx,
				nextID:          nextID,
				activeSegmentID: segID,
				tailOffset:      validOffset,
				segmentCount:    len(ids),
				indexedBytes:    indexedBytes,
			}, nil
		}
		rs.Close()
	}

	// Unreachable: the loop always returns on the last iteration.
	return recoveryResult{}, fmt.Errorf("logcrate: recovery scanned no segments in %s", dir)
}
