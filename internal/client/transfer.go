package client

import (
	"fmt"
	"io"

	"github.com/danmuck/ecgpipe/internal/protocol"
)

// FileTransfer is a restartable chunk sequence for one file. Its only state
// is (offset, total); each Next issues one capacity-bounded range request.
// The schedule is exact: chunk_i = min(capacity, total-offset_i), offsets
// advance without overlap or gap, and the sequence ends when offset == total.
type FileTransfer struct {
	session *Session
	name    string
	total   int64
	offset  int64
}

// StartFile probes the file's total length and returns the chunk sequence.
// A missing file fails with ErrFileNotFound.
func (s *Session) StartFile(name string) (*FileTransfer, error) {
	total, err := s.FileLength(name)
	if err != nil {
		return nil, err
	}
	return &FileTransfer{session: s, name: name, total: total}, nil
}

func (t *FileTransfer) Total() int64  { return t.total }
func (t *FileTransfer) Offset() int64 { return t.offset }

// Done reports whether every byte has been retrieved.
func (t *FileTransfer) Done() bool { return t.offset == t.total }

// Next fetches the next chunk. It never requests a zero-length chunk;
// calling it after Done is a caller bug.
func (t *FileTransfer) Next() ([]byte, error) {
	if t.Done() {
		return nil, fmt.Errorf("client: transfer of %s already complete", t.name)
	}
	chunk := t.total - t.offset
	if limit := int64(t.session.capacity); chunk > limit {
		chunk = limit
	}
	reply, err := t.session.request(
		protocol.FileRange{Offset: t.offset, Length: int32(chunk), Name: t.name},
		int(chunk),
	)
	if err != nil {
		return nil, err
	}
	t.offset += chunk
	return reply, nil
}

// WriteTo drains the remaining chunks into w and reports the bytes written.
func (t *FileTransfer) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for !t.Done() {
		chunk, err := t.Next()
		if err != nil {
			return written, err
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
