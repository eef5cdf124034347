package channel

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func memPairT(t *testing.T, capacity int) (*Channel, *Channel) {
	t.Helper()
	p := NewMemProvider(time.Second)
	if err := p.Create("t"); err != nil {
		t.Fatalf("create: %v", err)
	}
	srv, err := Open(p, "t", SideServer, capacity)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	cli, err := Open(p, "t", SideClient, capacity)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		cli.Close()
		srv.Close()
	})
	return srv, cli
}

func TestExactLengthRoundTrip(t *testing.T) {
	const capacity = 256
	srv, cli := memPairT(t, capacity)

	for _, n := range []int{1, 2, 7, 64, 255, capacity} {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i * 31)
		}
		errc := make(chan error, 1)
		go func() { errc <- cli.Write(payload) }()
		got, err := srv.Read(n)
		if err != nil {
			t.Fatalf("read %d: %v", n, err)
		}
		if err := <-errc; err != nil {
			t.Fatalf("write %d: %v", n, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("payload mismatch at size %d", n)
		}
	}
}

func TestCapacityBoundsIO(t *testing.T) {
	srv, cli := memPairT(t, MinCapacity)
	if err := cli.Write(make([]byte, MinCapacity+1)); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("oversized write: expected ErrCapacityExceeded, got %v", err)
	}
	if _, err := srv.Read(MinCapacity + 1); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("oversized read: expected ErrCapacityExceeded, got %v", err)
	}
}

func TestCapacityTooSmall(t *testing.T) {
	p := NewMemProvider(time.Second)
	if err := p.Create("t"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := Open(p, "t", SideServer, MinCapacity-1); !errors.Is(err, ErrBadCapacity) {
		t.Fatalf("expected ErrBadCapacity, got %v", err)
	}
}

func TestReadFailsWhenPeerCloses(t *testing.T) {
	srv, cli := memPairT(t, MinCapacity)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := cli.Read(8); !errors.Is(err, ErrChannelClosed) {
			t.Errorf("expected ErrChannelClosed, got %v", err)
		}
	}()
	srv.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("read did not observe peer close")
	}
}

func TestUseAfterClose(t *testing.T) {
	srv, cli := memPairT(t, MinCapacity)
	_ = srv
	if err := cli.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := cli.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := cli.Write([]byte{1}); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("write after close: expected ErrChannelClosed, got %v", err)
	}
	if _, err := cli.Read(1); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("read after close: expected ErrChannelClosed, got %v", err)
	}
}

func TestDialTimesOutWithoutPeer(t *testing.T) {
	p := NewMemProvider(20 * time.Millisecond)
	if _, err := p.Dial("nobody"); !errors.Is(err, ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
}

func TestSecondAcceptRejected(t *testing.T) {
	p := NewMemProvider(time.Second)
	if err := p.Create("t"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := p.Accept("t"); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := p.Accept("t"); !errors.Is(err, ErrChannelUnavailable) {
		t.Fatalf("second accept: expected ErrChannelUnavailable, got %v", err)
	}
}

func TestCreateDuplicateName(t *testing.T) {
	p := NewMemProvider(time.Second)
	if err := p.Create("t"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := p.Create("t"); !errors.Is(err, ErrChannelUnavailable) {
		t.Fatalf("duplicate create: expected ErrChannelUnavailable, got %v", err)
	}
}
