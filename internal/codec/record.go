// Package codec implements the fixed-layout, side-effect-free encode/decode
// routines for LogCrate's on-disk record and segment headers. Nothing in
// this package touches a filesystem; callers own all I/O.
package codec

import (
	"encoding/binary"

	"github.com/logcrate/logcrate/internal/crateerrors"
)

// DigestSize is the length in bytes of the opaque content digest that
// accompanies every record. The codec never computes or interprets it; it
// only requires callers to supply exactly this many bytes.
const DigestSize = 20

// RecordHeaderSize is the on-disk size of a record header: a 4-byte
// big-endian payload length followed by the digest.
const RecordHeaderSize = 4 + DigestSize

// ErrMalformed is returned when a supplied buffer is too short for the
// fixed record-header layout.
var ErrMalformed = crateerrors.ErrMalformed

// ErrInvalidArgument is returned when a supplied digest is not exactly
// DigestSize bytes -- a caller bug, distinct from a too-short buffer.
var ErrInvalidArgument = crateerrors.ErrInvalidArgument

// RecordHeader is the decoded form of the 24-byte on-disk record header.
type RecordHeader struct {
	PayloadSize uint32
	Digest      [DigestSize]byte
}

// TotalSize returns RecordHeaderSize + PayloadSize, the number of bytes the
// record (header and payload) occupies on disk.
func (h RecordHeader) TotalSize() uint32 {
	return RecordHeaderSize + h.PayloadSize
}

// EncodeRecordHeader writes the 24-byte header for a payload of the given
// size and digest into dest, which must be at least RecordHeaderSize bytes.
// digest must be exactly DigestSize bytes, otherwise ErrInvalidArgument is
// returned.
func EncodeRecordHeader(dest []byte, payloadSize uint32, digest []byte) error {
	if len(digest) != DigestSize {
		return ErrInvalidArgument
	}
	if len(dest) < RecordHeaderSize {
		return ErrMalformed
	}
	binary.BigEndian.PutUint32(dest[0:4], payloadSize)
	copy(dest[4:RecordHeaderSize], digest)
	return nil
}

// DecodeRecordHeader parses the leading RecordHeaderSize bytes of buf. It
// fails with ErrMalformed if buf is shorter than RecordHeaderSize.
func DecodeRecordHeader(buf []byte) (RecordHeader, error) {
	if len(buf) < RecordHeaderSize {
		return RecordHeader{}, ErrMalformed
	}
	var h RecordHeader
	h.PayloadSize = binary.BigEndian.Uint32(buf[0:4])
	copy(h.Digest[:], buf[4:RecordHeaderSize])
	return h, nil
}

// EncodeRecord writes the full on-disk representation (header || payload)
// of a record into dest, which must be at least RecordHeaderSize+len(payload)
// bytes. Returns the number of bytes written.
func EncodeRecord(dest []byte, digest []byte, payload []byte) (int, error) {
	total := RecordHeaderSize + len(payload)
	if len(dest) < total {
		return 0, ErrMalformed
	}
	if err := EncodeRecordHeader(dest, uint32(len(payload)), digest); err != nil {
		return 0, err
	}
	copy(dest[RecordHeaderSize:total], payload)
	return total, nil
}
