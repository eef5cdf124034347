package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrEscapesRoot = errors.New("server: path escapes data dir")

// FileStore reads byte ranges of files under a single root directory.
// Requested names are relative to the root and may not climb out of it.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (f *FileStore) resolve(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrEscapesRoot, name)
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrEscapesRoot, name)
	}
	return filepath.Join(f.root, clean), nil
}

// Length reports the file's total size. Missing files surface os.ErrNotExist
// for the handler to turn into the -1 wire sentinel.
func (f *FileStore) Length(name string) (int64, error) {
	path, err := f.resolve(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("server: %s is a directory", name)
	}
	return info.Size(), nil
}

// ReadRange returns exactly n bytes starting at offset. A range past the end
// of the file is a caller error and fails with io.ErrUnexpectedEOF.
func (f *FileStore) ReadRange(name string, offset int64, n int32) ([]byte, error) {
	path, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, n)
	if _, err := file.ReadAt(buf, offset); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("server: read %s [%d,+%d): %w", name, offset, n, err)
	}
	return buf, nil
}
