package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Tag is the fixed-width discriminant leading every request.
type Tag uint32

const (
	TagDataPoint Tag = iota + 1
	TagNewChannel
	TagQuit
	TagFile
)

const (
	// TagSize is the encoded width of a Tag.
	TagSize = 4
	// DataPointSize is the full encoded size of a DataPoint request.
	DataPointSize = TagSize + 4 + 8 + 4
	// FileFixedSize is the encoded size of a FileRange request before the
	// filename bytes and their NUL terminator.
	FileFixedSize = TagSize + 8 + 4
	// MaxFilenameLen bounds the filename suffix of a FileRange request.
	MaxFilenameLen = 4096
)

var (
	ErrUnknownTag  = errors.New("protocol: unknown message tag")
	ErrBadLength   = errors.New("protocol: message length does not match tag")
	ErrNameTooLong = errors.New("protocol: filename too long")
	ErrBadName     = errors.New("protocol: filename missing NUL terminator")
)

// Message is one request variant. Encoded(m) round-trips through Decode.
type Message interface {
	// WireTag reports the discriminant the variant encodes under.
	WireTag() Tag
}

// DataPoint asks for one ECG sample.
type DataPoint struct {
	Person  int32
	Seconds float64
	ECG     int32
}

func (DataPoint) WireTag() Tag { return TagDataPoint }

// NewChannel asks the server to allocate a private channel.
type NewChannel struct{}

func (NewChannel) WireTag() Tag { return TagNewChannel }

// Quit terminates the session on the channel carrying it.
type Quit struct{}

func (Quit) WireTag() Tag { return TagQuit }

// FileRange asks for Length bytes of the named file starting at Offset.
// Offset==0 with Length==0 is the reserved length probe: the reply is the
// file's total size as an int64, or LengthNotFound.
type FileRange struct {
	Offset int64
	Length int32
	Name   string
}

func (FileRange) WireTag() Tag { return TagFile }

// IsProbe reports whether the range is the reserved total-length probe.
func (f FileRange) IsProbe() bool { return f.Offset == 0 && f.Length == 0 }

// Encode renders m in its fixed wire layout.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case DataPoint:
		buf := make([]byte, DataPointSize)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(TagDataPoint))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(v.Person))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(v.Seconds))
		binary.LittleEndian.PutUint32(buf[16:20], uint32(v.ECG))
		return buf, nil
	case NewChannel:
		return encodeTagOnly(TagNewChannel), nil
	case Quit:
		return encodeTagOnly(TagQuit), nil
	case FileRange:
		if len(v.Name) > MaxFilenameLen {
			return nil, ErrNameTooLong
		}
		buf := make([]byte, FileFixedSize+len(v.Name)+1)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(TagFile))
		binary.LittleEndian.PutUint64(buf[4:12], uint64(v.Offset))
		binary.LittleEndian.PutUint32(buf[12:16], uint32(v.Length))
		copy(buf[FileFixedSize:], v.Name)
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownTag, m)
	}
}

// Decode parses one complete request. The buffer must hold exactly one
// encoded message; trailing bytes fail with ErrBadLength.
func Decode(buf []byte) (Message, error) {
	if len(buf) < TagSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadLength, len(buf))
	}
	tag := Tag(binary.LittleEndian.Uint32(buf[0:4]))
	switch tag {
	case TagDataPoint:
		if len(buf) != DataPointSize {
			return nil, fmt.Errorf("%w: datapoint is %d bytes, got %d", ErrBadLength, DataPointSize, len(buf))
		}
		return DataPoint{
			Person:  int32(binary.LittleEndian.Uint32(buf[4:8])),
			Seconds: math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16])),
			ECG:     int32(binary.LittleEndian.Uint32(buf[16:20])),
		}, nil
	case TagNewChannel:
		if len(buf) != TagSize {
			return nil, fmt.Errorf("%w: newchannel is tag only, got %d bytes", ErrBadLength, len(buf))
		}
		return NewChannel{}, nil
	case TagQuit:
		if len(buf) != TagSize {
			return nil, fmt.Errorf("%w: quit is tag only, got %d bytes", ErrBadLength, len(buf))
		}
		return Quit{}, nil
	case TagFile:
		if len(buf) < FileFixedSize+1 {
			return nil, fmt.Errorf("%w: file request is at least %d bytes, got %d", ErrBadLength, FileFixedSize+1, len(buf))
		}
		name := buf[FileFixedSize:]
		nul := bytes.IndexByte(name, 0)
		if nul != len(name)-1 {
			return nil, ErrBadName
		}
		return FileRange{
			Offset: int64(binary.LittleEndian.Uint64(buf[4:12])),
			Length: int32(binary.LittleEndian.Uint32(buf[12:16])),
			Name:   string(name[:nul]),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}

func encodeTagOnly(tag Tag) []byte {
	buf := make([]byte, TagSize)
	binary.LittleEndian.PutUint32(buf, uint32(tag))
	return buf
}
