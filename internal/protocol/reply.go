package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// SampleReplySize is the width of a DataPoint reply.
	SampleReplySize = 8
	// LengthReplySize is the width of a FileRange probe reply.
	LengthReplySize = 8
	// NameReplySize is the fixed width of a NewChannel reply. The channel
	// name is NUL-padded to this size so the client can issue a single
	// exact-length read without knowing the name in advance.
	NameReplySize = 64
)

// LengthNotFound is the probe reply for a file the server cannot open.
const LengthNotFound int64 = -1

var ErrNameReply = errors.New("protocol: invalid channel name reply")

// EncodeSample renders a DataPoint reply.
func EncodeSample(v float64) []byte {
	buf := make([]byte, SampleReplySize)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

// DecodeSample parses a DataPoint reply.
func DecodeSample(buf []byte) (float64, error) {
	if len(buf) != SampleReplySize {
		return 0, fmt.Errorf("%w: sample reply is %d bytes, got %d", ErrBadLength, SampleReplySize, len(buf))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf)), nil
}

// EncodeLength renders a file length probe reply.
func EncodeLength(n int64) []byte {
	buf := make([]byte, LengthReplySize)
	binary.LittleEndian.PutUint64(buf, uint64(n))
	return buf
}

// DecodeLength parses a file length probe reply.
func DecodeLength(buf []byte) (int64, error) {
	if len(buf) != LengthReplySize {
		return 0, fmt.Errorf("%w: length reply is %d bytes, got %d", ErrBadLength, LengthReplySize, len(buf))
	}
	return int64(binary.LittleEndian.Uint64(buf)), nil
}

// EncodeName renders a NewChannel reply, NUL-padded to NameReplySize.
func EncodeName(name string) ([]byte, error) {
	if len(name) == 0 || len(name) >= NameReplySize {
		return nil, fmt.Errorf("%w: %q", ErrNameReply, name)
	}
	buf := make([]byte, NameReplySize)
	copy(buf, name)
	return buf, nil
}

// DecodeName parses a NewChannel reply.
func DecodeName(buf []byte) (string, error) {
	if len(buf) != NameReplySize {
		return "", fmt.Errorf("%w: name reply is %d bytes, got %d", ErrBadLength, NameReplySize, len(buf))
	}
	nul := bytes.IndexByte(buf, 0)
	if nul <= 0 {
		return "", ErrNameReply
	}
	return string(buf[:nul]), nil
}
