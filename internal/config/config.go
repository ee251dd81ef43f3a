// Package config loads the YAML configuration shared by the server and client
// binaries.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	World       World       `yaml:"world"`
	Replication Replication `yaml:"replication"`
	Server      Server      `yaml:"server"`
	Client      Client      `yaml:"client"`
	Rules       Rules       `yaml:"rules"`
	Log         Log         `yaml:"log"`
}

type World struct {
	TickRateHz int    `yaml:"tick_rate_hz"`
	MaxTick    uint64 `yaml:"max_tick"`
}

type Replication struct {
	// IntervalTicks is how many ticks pass between two broadcasts.
	IntervalTicks uint64 `yaml:"interval_ticks"`
}

type Server struct {
	ListenAddr    string        `yaml:"listen_addr"`
	WebSocketPath string        `yaml:"websocket_path"`
	MetricsPath   string        `yaml:"metrics_path"`
	ScenePath     string        `yaml:"scene_path"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	SendQueue     int           `yaml:"send_queue"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

type Client struct {
	ServerURL    string        `yaml:"server_url"`
	PlayerName   string        `yaml:"player_name"`
	PingInterval time.Duration `yaml:"ping_interval"`
	SnapDistance float64       `yaml:"snap_distance"`
	Blend        float64       `yaml:"blend"`
}

type Rules struct {
	PlayerHealth       int     `yaml:"player_health"`
	PlayerRadius       float64 `yaml:"player_radius"`
	ProjectileSpeed    float64 `yaml:"projectile_speed"`
	ProjectileDamage   int     `yaml:"projectile_damage"`
	ProjectileLifetime uint32  `yaml:"projectile_lifetime_ticks"`
	PatrolIntervalTick uint64  `yaml:"patrol_interval_ticks"`
}

type Log struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Default returns a complete configuration for local play.
func Default() Config {
	return Config{
		World: World{TickRateHz: 50},
		Replication: Replication{
			IntervalTicks: 1,
		},
		Server: Server{
			ListenAddr:    ":7777",
			WebSocketPath: "/ws",
			MetricsPath:   "/metrics",
			WriteTimeout:  5 * time.Second,
			SendQueue:     256,
			ShutdownGrace: 5 * time.Second,
		},
		Client: Client{
			ServerURL:    "ws://localhost:7777/ws",
			PlayerName:   "player",
			PingInterval: time.Second,
			SnapDistance: 2,
			Blend:        0.2,
		},
		Rules: Rules{
			PlayerHealth:       100,
			PlayerRadius:       0.5,
			ProjectileSpeed:    20,
			ProjectileDamage:   25,
			ProjectileLifetime: 50,
			PatrolIntervalTick: 5,
		},
		Log: Log{Level: "info", Encoding: "console"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads YAML from r over the defaults and validates the result. An
// empty document yields the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.World.TickRateHz > 0 && c.World.TickRateHz <= 1000, "world.tick_rate_hz %d out of range (1..1000)", c.World.TickRateHz)
	check(c.Replication.IntervalTicks > 0, "replication.interval_ticks must be positive")
	check(c.Server.ListenAddr != "", "server.listen_addr is required")
	check(c.Server.WebSocketPath != "" && c.Server.WebSocketPath[0] == '/', "server.websocket_path %q must start with /", c.Server.WebSocketPath)
	check(c.Server.MetricsPath == "" || c.Server.MetricsPath[0] == '/', "server.metrics_path %q must start with /", c.Server.MetricsPath)
	check(c.Client.PingInterval > 0, "client.ping_interval must be positive")
	check(c.Client.Blend >= 0 && c.Client.Blend <= 1, "client.blend %v out of range (0..1)", c.Client.Blend)
	check(c.Client.SnapDistance >= 0, "client.snap_distance must not be negative")
	check(c.Rules.PlayerHealth > 0, "rules.player_health must be positive")
	check(c.Rules.ProjectileLifetime > 0, "rules.projectile_lifetime_ticks must be positive")
	check(c.Rules.PatrolIntervalTick > 0, "rules.patrol_interval_ticks must be positive")
	switch c.Log.Encoding {
	case "json", "console":
	default:
		check(false, "log.encoding %q must be json or console", c.Log.Encoding)
	}

	return errors.Join(errs...)
}
