package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// sliceReader hands out exact-length slices of a pre-encoded stream, the way
// a channel does.
type sliceReader struct {
	buf []byte
}

func (r *sliceReader) Read(n int) ([]byte, error) {
	if n > len(r.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	out := r.buf[:n:n]
	r.buf = r.buf[n:]
	return out, nil
}

func TestReadRequestConsumesStream(t *testing.T) {
	msgs := []Message{
		DataPoint{Person: 3, Seconds: 0.004, ECG: 2},
		NewChannel{},
		FileRange{Offset: 1024, Length: 452, Name: "ecg.bin"},
		Quit{},
	}
	var stream []byte
	for _, m := range msgs {
		buf, err := Encode(m)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		stream = append(stream, buf...)
	}

	r := &sliceReader{buf: stream}
	for i, want := range msgs {
		got, err := ReadRequest(r)
		if err != nil {
			t.Fatalf("read request %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("request %d: want %#v got %#v", i, want, got)
		}
	}
	if len(r.buf) != 0 {
		t.Fatalf("%d stray bytes left on the stream", len(r.buf))
	}
}

func TestReadRequestUnknownTag(t *testing.T) {
	buf := make([]byte, TagSize)
	binary.LittleEndian.PutUint32(buf, 0xdead)
	if _, err := ReadRequest(&sliceReader{buf: buf}); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("expected ErrUnknownTag, got %v", err)
	}
}

func TestReadRequestRunawayFilename(t *testing.T) {
	head := make([]byte, FileFixedSize)
	binary.LittleEndian.PutUint32(head[0:4], uint32(TagFile))
	// A filename that never terminates must be cut off, not read forever.
	junk := make([]byte, MaxFilenameLen+2)
	for i := range junk {
		junk[i] = 'a'
	}
	if _, err := ReadRequest(&sliceReader{buf: append(head, junk...)}); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
}

func TestReadRequestTruncatedStream(t *testing.T) {
	buf, err := Encode(DataPoint{Person: 1, Seconds: 1, ECG: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := ReadRequest(&sliceReader{buf: buf[:6]}); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}
