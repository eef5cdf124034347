package server

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeBinaryFixture(t *testing.T, dir, name string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return data
}

func TestFileStoreLengthAndRange(t *testing.T) {
	dir := t.TempDir()
	data := writeBinaryFixture(t, dir, "ecg.bin", 2500)
	store := NewFileStore(dir)

	n, err := store.Length("ecg.bin")
	if err != nil {
		t.Fatalf("length: %v", err)
	}
	if n != 2500 {
		t.Fatalf("length: want 2500 got %d", n)
	}

	chunk, err := store.ReadRange("ecg.bin", 2048, 452)
	if err != nil {
		t.Fatalf("read range: %v", err)
	}
	if !bytes.Equal(chunk, data[2048:2500]) {
		t.Fatalf("range bytes mismatch")
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if _, err := store.Length("nope.bin"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
	if _, err := store.ReadRange("nope.bin", 0, 16); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestFileStoreRejectsEscapingPaths(t *testing.T) {
	store := NewFileStore(t.TempDir())
	for _, name := range []string{"", "/etc/passwd", "../secret", "a/../../secret"} {
		if _, err := store.Length(name); !errors.Is(err, ErrEscapesRoot) {
			t.Fatalf("%q: expected ErrEscapesRoot, got %v", name, err)
		}
	}
}

func TestFileStoreRangePastEnd(t *testing.T) {
	dir := t.TempDir()
	writeBinaryFixture(t, dir, "short.bin", 10)
	store := NewFileStore(dir)
	if _, err := store.ReadRange("short.bin", 8, 16); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}
