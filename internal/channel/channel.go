package channel

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
)

// Side identifies which end of a channel a process owns. It determines the
// attach direction of the two underlying streams.
type Side int

const (
	SideClient Side = iota
	SideServer
)

func (s Side) String() string {
	if s == SideServer {
		return "server"
	}
	return "client"
}

// ControlName is the well-known name of the control channel.
const ControlName = "control"

var (
	ErrChannelUnavailable = errors.New("channel: peer endpoint not available")
	ErrChannelClosed      = errors.New("channel: closed")
	ErrCapacityExceeded   = errors.New("channel: payload exceeds capacity")
	ErrBadCapacity        = errors.New("channel: capacity too small")
)

// MinCapacity is the smallest usable capacity: every reply shape, including
// the fixed-width channel-name reply, must fit in one read.
const MinCapacity = 64

// DefaultCapacity bounds a single read/write and a single file chunk unless
// overridden at startup.
const DefaultCapacity = 256

// Transport is one attached pair of directional byte streams. Read consumes
// the peer-to-local stream, Write feeds the local-to-peer stream. Close
// releases both and any on-disk representation the transport owns.
type Transport interface {
	io.ReadWriteCloser
}

// Provider allocates and attaches named stream pairs. Create must complete
// before either side attaches; Remove releases a created-but-never-attached
// pair after a failed allocation.
type Provider interface {
	Create(name string) error
	Accept(name string) (Transport, error)
	Dial(name string) (Transport, error)
	Remove(name string) error
}

// Channel is a named synchronous request channel. At most one request may be
// outstanding; callers write a full request, then read the full reply, before
// writing again.
type Channel struct {
	name     string
	side     Side
	capacity int
	tr       Transport

	mu     sync.Mutex
	closed bool
}

// New wraps an attached transport. Capacity bounds every single Write and
// Read on the channel.
func New(name string, side Side, capacity int, tr Transport) (*Channel, error) {
	if capacity < MinCapacity {
		return nil, fmt.Errorf("%w: %d < %d", ErrBadCapacity, capacity, MinCapacity)
	}
	return &Channel{name: name, side: side, capacity: capacity, tr: tr}, nil
}

func (c *Channel) Name() string  { return c.name }
func (c *Channel) Side() Side    { return c.side }
func (c *Channel) Capacity() int { return c.capacity }

// Write sends all of p, looping over partial writes. It never returns early
// with fewer bytes accepted.
func (c *Channel) Write(p []byte) error {
	if len(p) > c.capacity {
		return fmt.Errorf("%w: %d > %d", ErrCapacityExceeded, len(p), c.capacity)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	for len(p) > 0 {
		n, err := c.tr.Write(p)
		if err != nil {
			return closeErr(err)
		}
		p = p[n:]
	}
	return nil
}

// Read blocks until exactly n bytes arrive, looping over partial reads. A
// peer close before n bytes fails with ErrChannelClosed.
func (c *Channel) Read(n int) ([]byte, error) {
	if n > c.capacity {
		return nil, fmt.Errorf("%w: %d > %d", ErrCapacityExceeded, n, c.capacity)
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrChannelClosed
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.tr, buf); err != nil {
		return nil, closeErr(err)
	}
	return buf, nil
}

// Close releases both stream endpoints. Safe to call more than once; reads
// and writes after Close fail with ErrChannelClosed.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.tr.Close()
}

func closeErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, ErrChannelClosed) {
		return fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	return err
}

// Open attaches to the named stream pair through the provider and wraps it.
// The client side dials endpoints the server created; the server side accepts.
func Open(p Provider, name string, side Side, capacity int) (*Channel, error) {
	var tr Transport
	var err error
	if side == SideServer {
		tr, err = p.Accept(name)
	} else {
		tr, err = p.Dial(name)
	}
	if err != nil {
		return nil, err
	}
	ch, err := New(name, side, capacity, tr)
	if err != nil {
		tr.Close()
		return nil, err
	}
	return ch, nil
}
