package segment

import (
	"github.com/logcrate/logcrate/internal/codec"
)

// RecordLocation is one record found by Scan: its offset within the
// segment and the header fields needed to build an index.Entry once the
// caller knows which record id it corresponds to.
type RecordLocation struct {
	Offset    uint64
	TotalSize uint32
	Digest    [codec.DigestSize]byte
}

// Scan walks data (a whole segment file's bytes, typically obtained from a
// ReadSegment's mmap) and returns every complete record it finds in order,
// along with validOffset, the offset one past the last complete record.
// Any bytes beyond validOffset are a partial record left by a crash mid
// write and are not included in records.
//
// Scan itself never returns an error for a truncated tail; a short last
// record is the normal outcome of an unclean shutdown and is handled by the
// caller re-opening the segment with OpenTail(dir, id, validOffset).
func Scan(data []byte) (header codec.SegmentHeader, records []RecordLocation, validOffset uint64, err error) {
	header, err = codec.DecodeSegmentHeader(data)
	if err != nil {
		return codec.SegmentHeader{}, nil, 0, err
	}

	offset := uint64(codec.SegmentHeaderSize)
	for offset+codec.RecordHeaderSize <= uint64(len(data)) {
		h, decErr := codec.DecodeRecordHeader(data[offset : offset+codec.RecordHeaderSize])
		if decErr != nil {
			// Header itself didn't decode even though the bytes are
			// present; the header's length precondition is only
			// violated by a bug in this loop, so this can't happen.
			break
		}

		total := uint64(h.TotalSize())
		if offset+total > uint64(len(data)) {
			// Record header landed but its payload is truncated.
			break
		}

		records = append(records, RecordLocation{
			Offset:    offset,
			TotalSize: uint32(total),
			Digest:    h.Digest,
		})
		offset += total
	}

	return header, records, offset, nil
}
