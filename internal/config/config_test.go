package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
world:
  tick_rate_hz: 30
replication:
  interval_ticks: 3
client:
  ping_interval: 250ms
log:
  level: debug
  encoding: json
`))
	require.NoError(t, err)
	require.Equal(t, 30, cfg.World.TickRateHz)
	require.Equal(t, uint64(3), cfg.Replication.IntervalTicks)
	require.Equal(t, 250*time.Millisecond, cfg.Client.PingInterval)
	require.Equal(t, "json", cfg.Log.Encoding)
	require.Equal(t, Default().Server, cfg.Server)
	require.Equal(t, Default().Rules, cfg.Rules)
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"tick rate", func(c *Config) { c.World.TickRateHz = 0 }, "world.tick_rate_hz"},
		{"interval", func(c *Config) { c.Replication.IntervalTicks = 0 }, "replication.interval_ticks"},
		{"listen addr", func(c *Config) { c.Server.ListenAddr = "" }, "server.listen_addr"},
		{"websocket path", func(c *Config) { c.Server.WebSocketPath = "ws" }, "server.websocket_path"},
		{"blend", func(c *Config) { c.Client.Blend = 2 }, "client.blend"},
		{"encoding", func(c *Config) { c.Log.Encoding = "xml" }, "log.encoding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			require.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("world:\n  tick_rate_hz: 0\n"), 0o600))
	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  scene_path: scene.yaml\n"), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "scene.yaml", cfg.Server.ScenePath)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Decode(strings.NewReader("world: ["))
	require.Error(t, err)
}

func TestShippedConfigs(t *testing.T) {
	for _, name := range []string{"server.yaml", "client.yaml"} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(filepath.Join("..", "..", "configs", name))
			require.NoError(t, err)
		})
	}
}
