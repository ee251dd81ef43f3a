package injector

import (
	"context"
	"fmt"

	"github.com/google/wire"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/client"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/config"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/log"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/metrics"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/server"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport/websocket"
)

// ConfigPath is the YAML file to load. Empty means defaults only.
type ConfigPath string

var CommonSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideCollector,
)

var ServerSet = wire.NewSet(
	CommonSet,
	ProvideWebSocketServer,
	ProvideServer,
)

var ClientSet = wire.NewSet(
	CommonSet,
	ProvidePeerID,
	ProvideWebSocketClient,
	ProvideClient,
)

func ProvideConfig(path ConfigPath) (config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(string(path))
}

// ProvideLogger builds the process logger. The cleanup flushes it.
func ProvideLogger(cfg config.Config) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	logger := log.New(level, log.WithEncoding(cfg.Log.Encoding))
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideCollector registers the world metrics with the default prometheus
// registry.
func ProvideCollector() (*metrics.WorldCollector, error) {
	return metrics.NewWorldCollector(nil)
}

func websocketConfig(cfg config.Config) websocket.Config {
	ws := websocket.DefaultConfig()
	if cfg.Server.WriteTimeout > 0 {
		ws.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.SendQueue > 0 {
		ws.SendQueue = cfg.Server.SendQueue
	}
	return ws
}

func ProvideWebSocketServer(cfg config.Config, logger log.Log) *websocket.Server {
	return websocket.NewServer(websocketConfig(cfg), logger)
}

func ProvideServer(cfg config.Config, ws *websocket.Server, logger log.Log, collector *metrics.WorldCollector) (*server.Server, error) {
	return server.New(cfg, ws, logger, collector)
}

func ProvidePeerID() transport.PeerID {
	return transport.NewPeerID()
}

// ProvideWebSocketClient dials the configured server. The cleanup closes the
// connection.
func ProvideWebSocketClient(ctx context.Context, cfg config.Config, id transport.PeerID, logger log.Log) (*websocket.Client, func(), error) {
	c, err := websocket.Dial(ctx, cfg.Client.ServerURL, id, websocket.ClientConfig{
		Config:       websocketConfig(cfg),
		PingInterval: cfg.Client.PingInterval,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

func ProvideClient(cfg config.Config, ws *websocket.Client, logger log.Log, collector *metrics.WorldCollector) (*client.Client, error) {
	return client.New(cfg, ws, ws.ID(), logger, collector)
}
