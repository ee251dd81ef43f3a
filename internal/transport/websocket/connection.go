package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
)

// closeGrace bounds how long a graceful close spends flushing queued frames
// and writing the close frame.
const closeGrace = time.Second

// connection owns one websocket. send only enqueues. A single pump goroutine
// is the only data writer; gorilla allows WriteControl and Close from any
// goroutine.
type connection struct {
	peer         transport.PeerID
	conn         *websocket.Conn
	writeTimeout time.Duration

	outbox   chan []byte
	done     chan struct{}
	pumpDone chan struct{}
	closed   atomic.Bool

	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
}

func newConnection(peer transport.PeerID, conn *websocket.Conn, config Config) *connection {
	queue := config.SendQueue
	if queue <= 0 {
		queue = DefaultConfig().SendQueue
	}
	c := &connection{
		peer:         peer,
		conn:         conn,
		writeTimeout: config.WriteTimeout,
		outbox:       make(chan []byte, queue),
		done:         make(chan struct{}),
		pumpDone:     make(chan struct{}),
	}
	go c.pump()
	return c
}

// send queues one frame and never waits on the peer. A full queue means the
// peer stopped reading: the connection is torn down and ErrSlowPeer returned.
func (c *connection) send(typ transport.MessageType, payload []byte) error {
	if c.closed.Load() {
		return errors.Wrapf(transport.ErrClosed, "send %s to %s", typ, c.peer)
	}
	select {
	case c.outbox <- transport.EncodeFrame(typ, payload):
		return nil
	default:
		c.abort()
		return errors.Wrapf(transport.ErrSlowPeer, "send %s to %s", typ, c.peer)
	}
}

func (c *connection) pump() {
	defer close(c.pumpDone)
	for {
		select {
		case frame := <-c.outbox:
			deadline := time.Time{}
			if c.writeTimeout > 0 {
				deadline = time.Now().Add(c.writeTimeout)
			}
			if err := c.write(frame, deadline); err != nil {
				c.abort()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *connection) write(frame []byte, deadline time.Time) error {
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return errors.Wrapf(err, "failed to write to %s", c.peer)
	}
	c.bytesSent.Add(uint64(len(frame)))
	return nil
}

func (c *connection) ping(deadline time.Time, data []byte) error {
	return c.conn.WriteControl(websocket.PingMessage, data, deadline)
}

// receive blocks for the next binary frame.
func (c *connection) receive() (transport.MessageType, []byte, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return 0, nil, errors.Wrap(err, "failed to read message")
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		c.bytesReceived.Add(uint64(len(data)))
		return transport.DecodeFrame(data)
	}
}

// close flushes what is already queued, sends a close frame and closes the
// socket, all within closeGrace.
func (c *connection) close() error {
	if !c.shutdown() {
		return nil
	}
	<-c.pumpDone
	deadline := time.Now().Add(closeGrace)
	c.flush(deadline)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}

// abort closes the socket without a handshake. The read loop then fails and
// the owner evicts the peer.
func (c *connection) abort() {
	if c.shutdown() {
		_ = c.conn.Close()
	}
}

func (c *connection) shutdown() bool {
	if !c.closed.CompareAndSwap(false, true) {
		return false
	}
	close(c.done)
	return true
}

func (c *connection) flush(deadline time.Time) {
	for {
		select {
		case frame := <-c.outbox:
			if c.write(frame, deadline) != nil {
				return
			}
		default:
			return
		}
	}
}

func isExpectedClose(err error) bool {
	return !websocket.IsUnexpectedCloseError(errors.Cause(err), websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
