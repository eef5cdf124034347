package protocol

import (
	"encoding/binary"
	"fmt"
)

// ExactReader reads exactly n bytes or fails. channel.Channel satisfies it.
type ExactReader interface {
	Read(n int) ([]byte, error)
}

func (t Tag) String() string {
	switch t {
	case TagDataPoint:
		return "datapoint"
	case TagNewChannel:
		return "newchannel"
	case TagQuit:
		return "quit"
	case TagFile:
		return "file"
	default:
		return fmt.Sprintf("tag(%d)", uint32(t))
	}
}

// ReadRequest consumes exactly one request from the stream: the tag first,
// then the remainder the tag dictates. The filename suffix of a file request
// is read byte-wise up to its NUL terminator since the stream carries no
// length prefix.
func ReadRequest(r ExactReader) (Message, error) {
	head, err := r.Read(TagSize)
	if err != nil {
		return nil, err
	}
	switch tag := Tag(binary.LittleEndian.Uint32(head)); tag {
	case TagDataPoint:
		body, err := r.Read(DataPointSize - TagSize)
		if err != nil {
			return nil, err
		}
		return Decode(append(head, body...))
	case TagNewChannel, TagQuit:
		return Decode(head)
	case TagFile:
		body, err := r.Read(FileFixedSize - TagSize)
		if err != nil {
			return nil, err
		}
		buf := append(head, body...)
		for {
			b, err := r.Read(1)
			if err != nil {
				return nil, err
			}
			buf = append(buf, b[0])
			if b[0] == 0 {
				return Decode(buf)
			}
			if len(buf) > FileFixedSize+MaxFilenameLen {
				return nil, ErrNameTooLong
			}
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}
