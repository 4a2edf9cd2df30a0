package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/logcrate/logcrate/internal/crateerrors"
)

// SegmentMagic is the 8-byte ASCII magic that opens every segment file.
const SegmentMagic = "logcrate"

// SegmentVersion is the only segment format version this codec understands.
const SegmentVersion = 1

// SegmentHeaderSize is the on-disk size of the segment file header: magic,
// version and segment id.
const SegmentHeaderSize = 8 + 4 + 8

// ErrCorruptHeader is returned when a segment header's magic or version does
// not match, or the buffer is too short to contain a header.
var ErrCorruptHeader = crateerrors.ErrCorruptHeader

// SegmentHeader is the decoded form of the 20-byte segment file header.
type SegmentHeader struct {
	Version   uint32
	SegmentID uint64
}

// EncodeSegmentHeader writes the 20-byte segment header for segmentID into
// dest, which must be at least SegmentHeaderSize bytes.
func EncodeSegmentHeader(dest []byte, segmentID uint64) error {
	if len(dest) < SegmentHeaderSize {
		return ErrCorruptHeader
	}
	copy(dest[0:8], SegmentMagic)
	binary.BigEndian.PutUint32(dest[8:12], SegmentVersion)
	binary.BigEndian.PutUint64(dest[12:20], segmentID)
	return nil
}

// DecodeSegmentHeader parses the leading SegmentHeaderSize bytes of buf,
// rejecting a bad magic, unsupported version, or short buffer.
func DecodeSegmentHeader(buf []byte) (SegmentHeader, error) {
	if len(buf) < SegmentHeaderSize {
		return SegmentHeader{}, fmt.Errorf("%w: short header (%d bytes)", ErrCorruptHeader, len(buf))
	}
	if string(buf[0:8]) != SegmentMagic {
		return SegmentHeader{}, fmt.Errorf("%w: bad magic", ErrCorruptHeader)
	}
	version := binary.BigEndian.Uint32(buf[8:12])
	if version != SegmentVersion {
		return SegmentHeader{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptHeader, version)
	}
	return SegmentHeader{
		Version:   version,
		SegmentID: binary.BigEndian.Uint64(buf[12:20]),
	}, nil
}

// SegmentFilename returns the canonical filename for a segment whose id is
// segmentID: 16 lowercase hex digits plus the ".dat" suffix. Sorting
// filenames lexicographically yields ascending segment order.
func SegmentFilename(segmentID uint64) string {
	return fmt.Sprintf("%016x.dat", segmentID)
}
