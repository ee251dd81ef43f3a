package transport

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

const linkQueueSize = 1024

type packet struct {
	typ     MessageType
	payload []byte
	due     time.Time
}

// link is one direction of a loopback connection. With zero latency frames
// are delivered inline; otherwise a goroutine delivers them in send order
// once their latency has elapsed.
type link struct {
	latency time.Duration
	deliver func(MessageType, []byte)
	queue   chan packet
	done    chan struct{}
	once    sync.Once
}

func newLink(latency time.Duration, deliver func(MessageType, []byte)) *link {
	l := &link{
		latency: latency,
		deliver: deliver,
		done:    make(chan struct{}),
	}
	if latency > 0 {
		l.queue = make(chan packet, linkQueueSize)
		go l.run()
	}
	return l
}

func (l *link) send(typ MessageType, payload []byte) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	payload = bytes.Clone(payload)
	if l.latency == 0 {
		l.deliver(typ, payload)
		return nil
	}
	select {
	case l.queue <- packet{typ: typ, payload: payload, due: time.Now().Add(l.latency)}:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

func (l *link) run() {
	for {
		select {
		case p := <-l.queue:
			if wait := time.Until(p.due); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-l.done:
					timer.Stop()
					return
				}
			}
			l.deliver(p.typ, p.payload)
		case <-l.done:
			return
		}
	}
}

func (l *link) close() {
	l.once.Do(func() { close(l.done) })
}

// LoopbackServer is an in-process authoritative endpoint. Observers attach
// with Connect.
type LoopbackServer struct {
	Events

	mu     sync.RWMutex
	peers  map[PeerID]*LoopbackClient
	closed bool
}

var (
	_ Transport        = (*LoopbackServer)(nil)
	_ Transport        = (*LoopbackClient)(nil)
	_ LatencyEstimator = (*LoopbackClient)(nil)
)

func NewLoopbackServer() *LoopbackServer {
	return &LoopbackServer{peers: make(map[PeerID]*LoopbackClient)}
}

// Connect attaches a new observer whose frames travel latency in each
// direction.
func (s *LoopbackServer) Connect(latency time.Duration) (*LoopbackClient, error) {
	c := &LoopbackClient{id: NewPeerID(), server: s, latency: latency}
	c.up = newLink(latency, func(typ MessageType, payload []byte) {
		s.EmitMessage(c.id, typ, payload)
	})
	c.down = newLink(latency, func(typ MessageType, payload []byte) {
		c.EmitMessage(ServerPeer, typ, payload)
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.peers[c.id] = c
	s.mu.Unlock()

	s.EmitConnected(c.id)
	return c, nil
}

func (s *LoopbackServer) Send(peer PeerID, typ MessageType, payload []byte, _ Delivery) error {
	s.mu.RLock()
	c, ok := s.peers[peer]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send to %s: %w", peer, ErrUnknownPeer)
	}
	return c.down.send(typ, payload)
}

func (s *LoopbackServer) Broadcast(typ MessageType, payload []byte, _ Delivery) error {
	s.mu.RLock()
	peers := make([]*LoopbackClient, 0, len(s.peers))
	for _, c := range s.peers {
		peers = append(peers, c)
	}
	s.mu.RUnlock()

	for _, c := range peers {
		if err := c.down.send(typ, payload); err != nil {
			return fmt.Errorf("broadcast to %s: %w", c.id, err)
		}
	}
	return nil
}

// Peers returns the number of attached observers.
func (s *LoopbackServer) Peers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

func (s *LoopbackServer) Close() error {
	s.mu.Lock()
	s.closed = true
	peers := s.peers
	s.peers = make(map[PeerID]*LoopbackClient)
	s.mu.Unlock()

	for _, c := range peers {
		c.shutdown()
		s.EmitDisconnected(c.id)
	}
	return nil
}

func (s *LoopbackServer) detach(id PeerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peers[id]; !ok {
		return false
	}
	delete(s.peers, id)
	return true
}

// LoopbackClient is the observer end of a loopback connection. Every frame
// it sends goes to the server regardless of the peer argument.
type LoopbackClient struct {
	Events

	id      PeerID
	server  *LoopbackServer
	latency time.Duration
	up      *link
	down    *link
}

func (c *LoopbackClient) ID() PeerID {
	return c.id
}

func (c *LoopbackClient) Send(_ PeerID, typ MessageType, payload []byte, _ Delivery) error {
	return c.up.send(typ, payload)
}

func (c *LoopbackClient) Broadcast(typ MessageType, payload []byte, _ Delivery) error {
	return c.up.send(typ, payload)
}

// RTT is twice the configured one-way latency.
func (c *LoopbackClient) RTT() time.Duration {
	return 2 * c.latency
}

func (c *LoopbackClient) Close() error {
	if c.server.detach(c.id) {
		c.shutdown()
		c.server.EmitDisconnected(c.id)
	}
	return nil
}

func (c *LoopbackClient) shutdown() {
	c.up.close()
	c.down.close()
	c.EmitDisconnected(ServerPeer)
}
