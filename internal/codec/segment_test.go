package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeSegmentHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, SegmentHeaderSize)
	require.NoError(t, EncodeSegmentHeader(buf, 12345))

	got, err := DecodeSegmentHeader(buf)
	require.NoError(t, err)
	require.Equal(t, uint32(SegmentVersion), got.Version)
	require.Equal(t, uint64(12345), got.SegmentID)
}

func TestDecodeSegmentHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, SegmentHeaderSize)
	require.NoError(t, EncodeSegmentHeader(buf, 1))
	buf[0] = 'X'

	_, err := DecodeSegmentHeader(buf)
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestDecodeSegmentHeaderRejectsBadVersion(t *testing.T) {
	buf := make([]byte, SegmentHeaderSize)
	require.NoError(t, EncodeSegmentHeader(buf, 1))
	buf[11] = 2

	_, err := DecodeSegmentHeader(buf)
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestDecodeSegmentHeaderRejectsShortBuffer(t *testing.T) {
	_, err := DecodeSegmentHeader(make([]byte, SegmentHeaderSize-1))
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestSegmentFilenameFormat(t *testing.T) {
	require.Equal(t, "0000000000000000.dat", SegmentFilename(0))
	require.Equal(t, "00000000000003e8.dat", SegmentFilename(1000))
}
