package channel

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// MemProvider keeps stream pairs in process memory. It implements the same
// create/attach contract as the FIFO provider and stands in for it in tests.
type MemProvider struct {
	dialTimeout time.Duration

	mu    sync.Mutex
	pairs map[string]*memPair
}

type memPair struct {
	server      *memTransport
	client      *memTransport
	serverTaken bool
	clientTaken bool
}

// NewMemProvider returns an empty in-memory provider. A non-positive timeout
// falls back to DefaultOpenTimeout.
func NewMemProvider(dialTimeout time.Duration) *MemProvider {
	if dialTimeout <= 0 {
		dialTimeout = DefaultOpenTimeout
	}
	return &MemProvider{dialTimeout: dialTimeout, pairs: map[string]*memPair{}}
}

func (p *MemProvider) Create(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pairs[name]; ok {
		return fmt.Errorf("%w: %s already exists", ErrChannelUnavailable, name)
	}
	c2sR, c2sW := io.Pipe()
	s2cR, s2cW := io.Pipe()
	p.pairs[name] = &memPair{
		server: &memTransport{r: c2sR, w: s2cW},
		client: &memTransport{r: s2cR, w: c2sW},
	}
	return nil
}

func (p *MemProvider) Accept(name string) (Transport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pair, ok := p.pairs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s not created", ErrChannelUnavailable, name)
	}
	if pair.serverTaken {
		return nil, fmt.Errorf("%w: %s server side already attached", ErrChannelUnavailable, name)
	}
	pair.serverTaken = true
	return pair.server, nil
}

// Dial polls for the pair to be created, mirroring the FIFO client waiting
// for the server's mkfifo.
func (p *MemProvider) Dial(name string) (Transport, error) {
	deadline := time.Now().Add(p.dialTimeout)
	for {
		p.mu.Lock()
		pair, ok := p.pairs[name]
		if ok {
			if pair.clientTaken {
				p.mu.Unlock()
				return nil, fmt.Errorf("%w: %s client side already attached", ErrChannelUnavailable, name)
			}
			pair.clientTaken = true
			p.mu.Unlock()
			return pair.client, nil
		}
		p.mu.Unlock()
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s: no peer within %v", ErrChannelUnavailable, name, p.dialTimeout)
		}
		time.Sleep(time.Millisecond)
	}
}

func (p *MemProvider) Remove(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pair, ok := p.pairs[name]
	if !ok {
		return nil
	}
	delete(p.pairs, name)
	pair.server.Close()
	pair.client.Close()
	return nil
}

type memTransport struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (t *memTransport) Read(p []byte) (int, error)  { return t.r.Read(p) }
func (t *memTransport) Write(p []byte) (int, error) { return t.w.Write(p) }

func (t *memTransport) Close() error {
	t.w.Close()
	t.r.Close()
	return nil
}
