package client

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/ecgpipe/internal/channel"
	"github.com/danmuck/ecgpipe/internal/protocol"
)

var (
	ErrFileNotFound = errors.New("client: file not found on server")
	ErrAllocFailed  = errors.New("client: server could not allocate a channel")
)

// Session is one synchronous conversation with the server. Exactly one
// request may be outstanding; every call below writes a full request and
// reads its full reply before returning.
type Session struct {
	ch       *channel.Channel
	provider channel.Provider
	capacity int
	log      zerolog.Logger

	// reqMu keeps the one-in-flight discipline under concurrent callers: a
	// second request cannot hit the wire before the pending reply is read.
	reqMu sync.Mutex
}

// Connect attaches to the server's control channel, retrying with backoff
// while the server end is not up yet.
func Connect(p channel.Provider, capacity int, backoff BackoffConfig, log zerolog.Logger) (*Session, error) {
	attempts := backoff.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ch, err := channel.Open(p, channel.ControlName, channel.SideClient, capacity)
		if err == nil {
			log.Debug().Int("attempt", attempt).Msg("control channel attached")
			return &Session{ch: ch, provider: p, capacity: capacity, log: log}, nil
		}
		lastErr = err
		if !errors.Is(err, channel.ErrChannelUnavailable) {
			return nil, err
		}
		if attempt < attempts {
			time.Sleep(NextBackoffDelay(backoff, attempt, nil))
		}
	}
	return nil, lastErr
}

func (s *Session) Name() string  { return s.ch.Name() }
func (s *Session) Capacity() int { return s.capacity }

func (s *Session) request(msg protocol.Message, replyLen int) ([]byte, error) {
	buf, err := protocol.Encode(msg)
	if err != nil {
		return nil, err
	}
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	if err := s.ch.Write(buf); err != nil {
		return nil, err
	}
	return s.ch.Read(replyLen)
}

// DataPoint fetches one ECG sample.
func (s *Session) DataPoint(person int32, seconds float64, ecg int32) (float64, error) {
	reply, err := s.request(protocol.DataPoint{Person: person, Seconds: seconds, ECG: ecg}, protocol.SampleReplySize)
	if err != nil {
		return 0, err
	}
	return protocol.DecodeSample(reply)
}

// NewChannel asks the server for a private channel and attaches to it. The
// control session stays usable; the caller owns both.
func (s *Session) NewChannel() (*Session, error) {
	reply, err := s.request(protocol.NewChannel{}, protocol.NameReplySize)
	if err != nil {
		return nil, err
	}
	name, err := protocol.DecodeName(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocFailed, err)
	}
	ch, err := channel.Open(s.provider, name, channel.SideClient, s.capacity)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("channel", name).Msg("switched to private channel")
	return &Session{ch: ch, provider: s.provider, capacity: s.capacity, log: s.log}, nil
}

// FileLength probes the total size of a named file on the server.
func (s *Session) FileLength(name string) (int64, error) {
	reply, err := s.request(protocol.FileRange{Offset: 0, Length: 0, Name: name}, protocol.LengthReplySize)
	if err != nil {
		return 0, err
	}
	n, err := protocol.DecodeLength(reply)
	if err != nil {
		return 0, err
	}
	if n == protocol.LengthNotFound {
		return 0, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return n, nil
}

// Quit ends the session on the wire and closes the channel. QUIT carries no
// reply. Calling Quit on an already-closed session fails with
// channel.ErrChannelClosed and never hangs.
func (s *Session) Quit() error {
	buf, err := protocol.Encode(protocol.Quit{})
	if err != nil {
		return err
	}
	if err := s.ch.Write(buf); err != nil {
		return err
	}
	return s.ch.Close()
}

// Close releases the channel without the wire-level QUIT.
func (s *Session) Close() error { return s.ch.Close() }
