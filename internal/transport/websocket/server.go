// Package websocket implements the transport over gorilla/websocket. Every
// websocket message is one binary frame: a message type byte then the payload.
package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/log"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
	"github.com/dcasadevall/multiplayer-prototype-sub001/pkg/concurrent"
	"github.com/dcasadevall/multiplayer-prototype-sub001/pkg/sequence"
)

// PeerQueryParam lets a client choose its peer id when connecting.
const PeerQueryParam = "peer"

const closeConcurrency = 16

type Config struct {
	// WriteTimeout bounds a single frame write; a peer that cannot take a
	// frame in time is disconnected.
	WriteTimeout time.Duration
	ReadLimit    int64
	BufferSize   int
	// SendQueue is how many frames may wait for one peer. Overflowing it
	// disconnects the peer.
	SendQueue int
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout: 5 * time.Second,
		ReadLimit:    1 << 20,
		BufferSize:   4096,
		SendQueue:    256,
	}
}

// Server is the authoritative end. It is an http.Handler that upgrades each
// request into a peer connection.
type Server struct {
	transport.Events

	config   Config
	logger   log.Log
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	peers  map[transport.PeerID]*connection
	closed bool
	wg     sync.WaitGroup
}

var _ transport.Transport = (*Server)(nil)

func NewServer(config Config, logger log.Log) *Server {
	if logger == nil {
		logger = log.Nop()
	}
	return &Server{
		config: config,
		logger: logger.With(log.String("component", "websocket")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.BufferSize,
			WriteBufferSize: config.BufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		peers: make(map[transport.PeerID]*connection),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	peer := transport.NewPeerID()
	if requested := r.URL.Query().Get(PeerQueryParam); requested != "" {
		id, err := transport.ParsePeerID(requested)
		if err != nil || id == transport.ServerPeer {
			http.Error(w, "invalid peer id", http.StatusBadRequest)
			return
		}
		peer = id
	}

	s.mu.RLock()
	closed := s.closed
	_, taken := s.peers[peer]
	s.mu.RUnlock()
	if closed {
		http.Error(w, "server closed", http.StatusServiceUnavailable)
		return
	}
	if taken {
		http.Error(w, "peer id in use", http.StatusConflict)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	if s.config.ReadLimit > 0 {
		ws.SetReadLimit(s.config.ReadLimit)
	}
	c := newConnection(peer, ws, s.config)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = c.close()
		return
	}
	s.peers[peer] = c
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("peer connected", log.Stringer("peer", peer), log.String("remote", r.RemoteAddr))
	s.EmitConnected(peer)
	go s.read(c)
}

func (s *Server) read(c *connection) {
	defer s.wg.Done()
	defer func() {
		s.forget(c)
		_ = c.close()
		s.logger.Info("peer disconnected",
			log.Stringer("peer", c.peer),
			log.Uint64("bytes_sent", c.bytesSent.Load()),
			log.Uint64("bytes_received", c.bytesReceived.Load()),
		)
		s.EmitDisconnected(c.peer)
	}()

	for {
		typ, payload, err := c.receive()
		if errors.Is(err, transport.ErrUnknownMessageType) || errors.Is(err, transport.ErrEmptyFrame) {
			s.logger.Warn("dropping malformed frame", log.Stringer("peer", c.peer), log.Error(err))
			continue
		}
		if err != nil {
			if !isExpectedClose(err) && !c.closed.Load() {
				s.logger.Warn("websocket read failed", log.Stringer("peer", c.peer), log.Error(err))
			}
			return
		}
		s.EmitMessage(c.peer, typ, payload)
	}
}

func (s *Server) Send(peer transport.PeerID, typ transport.MessageType, payload []byte, _ transport.Delivery) error {
	s.mu.RLock()
	c, ok := s.peers[peer]
	s.mu.RUnlock()
	if !ok {
		return errors.Wrapf(transport.ErrUnknownPeer, "send %s to %s", typ, peer)
	}
	if err := c.send(typ, payload); err != nil {
		s.drop(c, err)
		return err
	}
	return nil
}

// Broadcast queues payload for every peer without waiting on any of them. A
// peer whose queue is full is dropped and the rest still receive; the first
// error is returned.
func (s *Server) Broadcast(typ transport.MessageType, payload []byte, _ transport.Delivery) error {
	var first error
	for _, c := range s.connections() {
		if err := c.send(typ, payload); err != nil {
			s.drop(c, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (s *Server) drop(c *connection, err error) {
	if errors.Is(err, transport.ErrSlowPeer) {
		s.logger.Warn("dropping stalled peer", log.Stringer("peer", c.peer), log.Int("queued", len(c.outbox)))
	}
	s.forget(c)
}

// forget removes c from the peer table unless the id has since been taken
// by a newer connection.
func (s *Server) forget(c *connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peers[c.peer] == c {
		delete(s.peers, c.peer)
	}
}

func (s *Server) Peers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Close disconnects every peer and waits for their read loops to exit.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	// Each close spends up to closeGrace flushing and saying goodbye.
	_ = concurrent.Throttle(sequence.From(s.connections()), closeConcurrency, func(c *connection) error {
		return c.close()
	})
	s.wg.Wait()
	return nil
}

func (s *Server) connections() []*connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*connection, 0, len(s.peers))
	for _, c := range s.peers {
		out = append(out, c)
	}
	return out
}
