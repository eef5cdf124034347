package channel

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFifoCreateAttachExchange(t *testing.T) {
	dir := t.TempDir()
	p := NewFifoProvider(dir, 2*time.Second)
	if err := p.Create("ctl"); err != nil {
		t.Fatalf("create: %v", err)
	}

	type acceptResult struct {
		ch  *Channel
		err error
	}
	acceptc := make(chan acceptResult, 1)
	go func() {
		ch, err := Open(p, "ctl", SideServer, DefaultCapacity)
		acceptc <- acceptResult{ch, err}
	}()

	cli, err := Open(p, "ctl", SideClient, DefaultCapacity)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	res := <-acceptc
	if res.err != nil {
		t.Fatalf("accept: %v", res.err)
	}
	srv := res.ch

	payload := []byte("ping over a fifo")
	if err := cli.Write(payload); err != nil {
		t.Fatalf("client write: %v", err)
	}
	got, err := srv.Read(len(payload))
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
	if err := srv.Write([]byte("pong")); err != nil {
		t.Fatalf("server write: %v", err)
	}
	reply, err := cli.Read(4)
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(reply) != "pong" {
		t.Fatalf("reply mismatch: %q", reply)
	}

	cli.Close()
	srv.Close()

	// The owning side unlinks the pipe files on close.
	for _, suffix := range []string{c2sSuffix, s2cSuffix} {
		if _, err := os.Stat(filepath.Join(dir, "ctl"+suffix)); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("pipe file %s leaked: %v", suffix, err)
		}
	}
}

func TestFifoCreateDuplicate(t *testing.T) {
	dir := t.TempDir()
	p := NewFifoProvider(dir, time.Second)
	if err := p.Create("dup"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := p.Create("dup"); !errors.Is(err, ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
}

func TestFifoDialWithoutServer(t *testing.T) {
	p := NewFifoProvider(t.TempDir(), 50*time.Millisecond)
	if _, err := p.Dial("ghost"); !errors.Is(err, ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
}

func TestFifoRemoveCleansPartialAllocation(t *testing.T) {
	dir := t.TempDir()
	p := NewFifoProvider(dir, time.Second)
	if err := p.Create("stale"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := p.Remove("stale"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := p.Create("stale"); err != nil {
		t.Fatalf("recreate after remove: %v", err)
	}
}
