package channel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

const (
	fifoPerm = 0o600

	// Stream suffixes. The .c2s stream carries requests, the .s2c stream
	// carries replies; attach order is .c2s first on both sides.
	c2sSuffix = ".c2s"
	s2cSuffix = ".s2c"

	fifoRetryInterval = 5 * time.Millisecond
)

// DefaultOpenTimeout bounds the attach handshake: how long one side waits
// for the peer to show up on a stream before giving up.
const DefaultOpenTimeout = 5 * time.Second

// FifoProvider backs channels with POSIX named pipes under a single
// directory. The server side creates and unlinks the pipe files; the client
// side only attaches.
type FifoProvider struct {
	dir         string
	openTimeout time.Duration
}

// NewFifoProvider returns a provider rooted at dir. A non-positive timeout
// falls back to DefaultOpenTimeout.
func NewFifoProvider(dir string, openTimeout time.Duration) *FifoProvider {
	if openTimeout <= 0 {
		openTimeout = DefaultOpenTimeout
	}
	return &FifoProvider{dir: dir, openTimeout: openTimeout}
}

func (p *FifoProvider) paths(name string) (string, string) {
	return filepath.Join(p.dir, name+c2sSuffix), filepath.Join(p.dir, name+s2cSuffix)
}

// Create allocates the pipe pair on disk. An existing pipe with the same
// name means the name is still owned and fails with ErrChannelUnavailable.
func (p *FifoProvider) Create(name string) error {
	c2s, s2c := p.paths(name)
	if err := mkfifo(c2s); err != nil {
		return err
	}
	if err := mkfifo(s2c); err != nil {
		os.Remove(c2s)
		return err
	}
	return nil
}

func mkfifo(path string) error {
	if err := unix.Mkfifo(path, fifoPerm); err != nil {
		if errors.Is(err, unix.EEXIST) {
			return fmt.Errorf("%w: %s already exists", ErrChannelUnavailable, path)
		}
		return fmt.Errorf("channel: mkfifo %s: %w", path, err)
	}
	return nil
}

// Accept attaches the server side of a created pair: the request stream's
// read end first, then the reply stream's write end once the client arrives.
func (p *FifoProvider) Accept(name string) (Transport, error) {
	c2s, s2c := p.paths(name)
	r, err := openFifoReader(c2s)
	if err != nil {
		return nil, err
	}
	w, err := p.openFifoWriter(s2c)
	if err != nil {
		r.Close()
		return nil, err
	}
	return &fifoTransport{r: r, w: w, owned: []string{c2s, s2c}}, nil
}

// Dial attaches the client side: the request stream's write end first (which
// also waits for the server to create the pair), then the reply stream's
// read end.
func (p *FifoProvider) Dial(name string) (Transport, error) {
	c2s, s2c := p.paths(name)
	w, err := p.openFifoWriter(c2s)
	if err != nil {
		return nil, err
	}
	r, err := openFifoReader(s2c)
	if err != nil {
		w.Close()
		return nil, err
	}
	return &fifoTransport{r: r, w: w}, nil
}

// Remove unlinks a created pair that was never attached, after a failed
// allocation. Missing files are fine.
func (p *FifoProvider) Remove(name string) error {
	c2s, s2c := p.paths(name)
	var errs []error
	for _, path := range []string{c2s, s2c} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openFifoReader opens the read end without waiting for a writer. The
// O_NONBLOCK open succeeds immediately; the runtime poller still gives the
// returned file blocking read semantics.
func openFifoReader(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrChannelUnavailable, path)
		}
		return nil, err
	}
	return f, nil
}

// openFifoWriter opens the write end, polling until a reader attaches or the
// handshake window closes. A FIFO write-end open fails with ENXIO while no
// reader exists and ENOENT before the server creates the pipe.
func (p *FifoProvider) openFifoWriter(path string) (*os.File, error) {
	deadline := time.Now().Add(p.openTimeout)
	for {
		f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, unix.ENXIO) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s: no peer within %v", ErrChannelUnavailable, path, p.openTimeout)
		}
		time.Sleep(fifoRetryInterval)
	}
}

// fifoTransport is one attached end of a pipe pair. The owning (server) end
// unlinks the pipe files on close so names do not leak across runs.
type fifoTransport struct {
	r     *os.File
	w     *os.File
	owned []string
}

func (t *fifoTransport) Read(p []byte) (int, error)  { return t.r.Read(p) }
func (t *fifoTransport) Write(p []byte) (int, error) { return t.w.Write(p) }

func (t *fifoTransport) Close() error {
	errs := []error{t.w.Close(), t.r.Close()}
	for _, path := range t.owned {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
