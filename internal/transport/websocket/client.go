package websocket

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/log"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
)

// ClientConfig configures the observer end.
type ClientConfig struct {
	Config
	// PingInterval paces RTT measurement; zero disables pings.
	PingInterval time.Duration
}

// Client is the observer end of a websocket transport. Frames it receives
// are attributed to transport.ServerPeer.
type Client struct {
	transport.Events

	id     transport.PeerID
	conn   *connection
	logger log.Log
	rtt    atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var (
	_ transport.Transport        = (*Client)(nil)
	_ transport.LatencyEstimator = (*Client)(nil)
)

// Dial connects to rawURL as peer id. Handlers should be registered before
// the server starts sending, which it does once the next broadcast runs.
func Dial(ctx context.Context, rawURL string, id transport.PeerID, config ClientConfig, logger log.Log) (*Client, error) {
	if logger == nil {
		logger = log.Nop()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid server url")
	}
	q := u.Query()
	q.Set(PeerQueryParam, id.String())
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   config.BufferSize,
		WriteBufferSize:  config.BufferSize,
	}
	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", u.Redacted())
	}
	if config.ReadLimit > 0 {
		ws.SetReadLimit(config.ReadLimit)
	}

	c := &Client{
		id:     id,
		conn:   newConnection(transport.ServerPeer, ws, config.Config),
		logger: logger.With(log.String("component", "websocket"), log.Stringer("peer", id)),
		done:   make(chan struct{}),
	}
	ws.SetPongHandler(c.handlePong)

	c.wg.Add(1)
	go c.read()
	if config.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop(config.PingInterval)
	}
	return c, nil
}

func (c *Client) ID() transport.PeerID {
	return c.id
}

// RTT is the latest ping round trip, or zero before the first pong.
func (c *Client) RTT() time.Duration {
	return time.Duration(c.rtt.Load())
}

func (c *Client) Send(_ transport.PeerID, typ transport.MessageType, payload []byte, _ transport.Delivery) error {
	return c.conn.send(typ, payload)
}

func (c *Client) Broadcast(typ transport.MessageType, payload []byte, _ transport.Delivery) error {
	return c.conn.send(typ, payload)
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.close()
	})
	c.wg.Wait()
	return err
}

// Done is closed once the connection has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) read() {
	defer c.wg.Done()
	defer func() {
		c.closeOnce.Do(func() {
			close(c.done)
			_ = c.conn.close()
		})
		c.EmitDisconnected(transport.ServerPeer)
	}()

	for {
		typ, payload, err := c.conn.receive()
		if errors.Is(err, transport.ErrUnknownMessageType) || errors.Is(err, transport.ErrEmptyFrame) {
			c.logger.Warn("dropping malformed frame", log.Error(err))
			continue
		}
		if err != nil {
			if !isExpectedClose(err) && !c.conn.closed.Load() {
				c.logger.Warn("websocket read failed", log.Error(err))
			}
			return
		}
		c.EmitMessage(transport.ServerPeer, typ, payload)
	}
}

func (c *Client) pingLoop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stamp := strconv.FormatInt(time.Now().UnixNano(), 10)
			if err := c.conn.ping(time.Now().Add(interval), []byte(stamp)); err != nil {
				c.logger.Debug("ping failed", log.Error(err))
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) handlePong(data string) error {
	sent, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return nil
	}
	if rtt := time.Now().UnixNano() - sent; rtt >= 0 {
		c.rtt.Store(rtt)
	}
	return nil
}
