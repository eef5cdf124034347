package server

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/ecgpipe/internal/channel"
	"github.com/danmuck/ecgpipe/internal/observability"
	"github.com/danmuck/ecgpipe/internal/protocol"
)

// Server owns the control channel and every dynamic channel spawned from it.
type Server struct {
	provider channel.Provider
	registry *Registry
	capacity int
	samples  SampleSource
	files    *FileStore
	log      zerolog.Logger

	wg sync.WaitGroup
}

func New(provider channel.Provider, capacity int, samples SampleSource, files *FileStore, log zerolog.Logger) *Server {
	return &Server{
		provider: provider,
		registry: NewRegistry(),
		capacity: capacity,
		samples:  samples,
		files:    files,
		log:      log,
	}
}

// Registry exposes the live-channel registry, mainly for tests.
func (s *Server) Registry() *Registry { return s.registry }

// Run creates the control channel, serves it until its QUIT, then waits for
// the dynamic channels to drain. Sub-channels created before the control
// QUIT keep running until their own QUIT.
func (s *Server) Run() error {
	if !s.registry.Reserve(channel.ControlName) {
		return fmt.Errorf("%w: control channel name taken", channel.ErrChannelUnavailable)
	}
	if err := s.provider.Create(channel.ControlName); err != nil {
		s.registry.Release(channel.ControlName)
		return err
	}
	ch, err := channel.Open(s.provider, channel.ControlName, channel.SideServer, s.capacity)
	if err != nil {
		s.provider.Remove(channel.ControlName)
		s.registry.Release(channel.ControlName)
		return err
	}
	observability.RecordChannelOpened()
	s.log.Info().Int("capacity", s.capacity).Msg("control channel up")
	s.serve(ch)
	s.wg.Wait()
	s.log.Info().Msg("server terminated")
	return nil
}

// serve is the per-channel handler loop. It exits on QUIT, on peer close,
// and on the first malformed or out-of-bounds request; the failure never
// crosses to another channel.
func (s *Server) serve(ch *channel.Channel) {
	kind := "data"
	if ch.Name() == channel.ControlName {
		kind = "control"
	}
	log := s.log.With().Str("channel", ch.Name()).Str("kind", kind).Logger()

	defer func() {
		ch.Close()
		s.provider.Remove(ch.Name())
		s.registry.Release(ch.Name())
		observability.RecordChannelClosed()
		log.Info().Msg("channel closed")
	}()

	for {
		msg, err := protocol.ReadRequest(ch)
		if err != nil {
			if errors.Is(err, channel.ErrChannelClosed) {
				log.Debug().Msg("peer closed")
				return
			}
			observability.RecordMalformedRequest()
			log.Warn().Err(err).Msg("malformed request, closing channel")
			return
		}

		start := time.Now()
		err = s.dispatch(ch, log, msg)
		observability.RecordRequest(kind, msg.WireTag().String(), time.Since(start))
		if err != nil {
			if !errors.Is(err, errQuit) {
				log.Warn().Err(err).Msg("request failed, closing channel")
			}
			return
		}
	}
}

// errQuit is the internal signal that the channel ended cleanly.
var errQuit = errors.New("server: quit")

func (s *Server) dispatch(ch *channel.Channel, log zerolog.Logger, msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.Quit:
		log.Debug().Msg("quit received")
		return errQuit
	case protocol.DataPoint:
		v, err := s.samples.Sample(m.Person, m.Seconds, m.ECG)
		if err != nil {
			log.Warn().Err(err).Int32("person", m.Person).Msg("sample unavailable")
			v = math.NaN()
		}
		return ch.Write(protocol.EncodeSample(v))
	case protocol.NewChannel:
		return s.handleNewChannel(ch, log)
	case protocol.FileRange:
		return s.handleFile(ch, log, m)
	default:
		return fmt.Errorf("%w: %T", protocol.ErrUnknownTag, msg)
	}
}

// handleNewChannel allocates a fresh channel, replies with its name, and
// hands the accept handshake to a goroutine: the client only dials after it
// has read the name, so the accept cannot complete inline.
func (s *Server) handleNewChannel(ch *channel.Channel, log zerolog.Logger) error {
	name := s.registry.Allocate()
	if err := s.provider.Create(name); err != nil {
		s.registry.Release(name)
		log.Error().Err(err).Str("new_channel", name).Msg("channel allocation failed")
		// An all-NUL name reply keeps the read discipline intact and decodes
		// as an error on the client.
		return ch.Write(make([]byte, protocol.NameReplySize))
	}

	s.wg.Add(1)
	go s.acceptAndServe(name)

	reply, err := protocol.EncodeName(name)
	if err != nil {
		return err
	}
	log.Info().Str("new_channel", name).Msg("channel allocated")
	return ch.Write(reply)
}

func (s *Server) acceptAndServe(name string) {
	defer s.wg.Done()
	ch, err := channel.Open(s.provider, name, channel.SideServer, s.capacity)
	if err != nil {
		s.provider.Remove(name)
		s.registry.Release(name)
		s.log.Warn().Err(err).Str("channel", name).Msg("client never attached")
		return
	}
	observability.RecordChannelOpened()
	s.serve(ch)
}

func (s *Server) handleFile(ch *channel.Channel, log zerolog.Logger, m protocol.FileRange) error {
	if m.IsProbe() {
		n, err := s.files.Length(m.Name)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) || errors.Is(err, ErrEscapesRoot) {
				log.Warn().Str("file", m.Name).Msg("file not found")
			} else {
				log.Error().Err(err).Str("file", m.Name).Msg("length probe failed")
			}
			return ch.Write(protocol.EncodeLength(protocol.LengthNotFound))
		}
		return ch.Write(protocol.EncodeLength(n))
	}

	if m.Length <= 0 || int(m.Length) > ch.Capacity() {
		return fmt.Errorf("server: chunk length %d outside (0, %d]", m.Length, ch.Capacity())
	}
	data, err := s.files.ReadRange(m.Name, m.Offset, m.Length)
	if err != nil {
		return err
	}
	observability.RecordFileBytes(len(data))
	return ch.Write(data)
}
