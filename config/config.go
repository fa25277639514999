// Package config loads the daemon's TOML configuration file and translates
// it into the typed configuration of each component.
package config

import (
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/six-thirty/ntvnet/account"
	"github.com/six-thirty/ntvnet/ntv"
	"github.com/six-thirty/ntvnet/store"
)

// Config is the root of the daemon configuration file.
type Config struct {
	Server   Server   `toml:"server"`
	Registry Registry `toml:"registry"`
	Database Database `toml:"database"`
	Log      Log      `toml:"log"`
}

// Server configures the HTTP listeners.
type Server struct {
	ListenAddr              string `toml:"listen_addr"`
	MetricsAddr             string `toml:"metrics_addr"`
	EnablePprof             bool   `toml:"enable_pprof"`
	EnableCORS              bool   `toml:"enable_cors"`
	AdminToken              string `toml:"admin_token"`
	DrainSeconds            int    `toml:"drain_seconds"`
	GracefulShutdownSeconds int    `toml:"graceful_shutdown_seconds"`
	ReadTimeoutSeconds      int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds     int    `toml:"write_timeout_seconds"`
}

// Registry configures the auction registry deployment.
type Registry struct {
	Admin            string `toml:"admin"`
	BidStartValueWei string `toml:"bid_start_value_wei"`
	MaxSlots         int    `toml:"max_slots"`
	MaxTextBytes     int    `toml:"max_text_bytes"`
	DefaultText      string `toml:"default_text"`
}

// Database configures the optional PostgreSQL snapshot store. When disabled
// the daemon keeps snapshots in memory only.
type Database struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"ssl_mode"`
}

// Log configures the structured logger.
type Log struct {
	JSON  bool `toml:"json"`
	Debug bool `toml:"debug"`
}

// Default returns the configuration used when no file is given. The admin
// account has no default; it must come from the file or a flag.
func Default() Config {
	return Config{
		Server: Server{
			ListenAddr:              ":8080",
			MetricsAddr:             ":9090",
			DrainSeconds:            5,
			GracefulShutdownSeconds: 10,
			ReadTimeoutSeconds:      15,
			WriteTimeoutSeconds:     15,
		},
		Registry: Registry{
			MaxSlots:     ntv.DefaultMaxSlots,
			MaxTextBytes: ntv.DefaultMaxTextBytes,
			DefaultText:  ntv.DefaultText,
		},
		Database: Database{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
	}
}

// Load reads path and merges it over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// RegistryConfig builds the registry's deployment configuration.
func (c *Config) RegistryConfig() (ntv.Config, error) {
	admin, err := account.Parse(c.Registry.Admin)
	if err != nil {
		return ntv.Config{}, fmt.Errorf("registry admin: %w", err)
	}

	cfg := ntv.DefaultConfig(admin)
	if c.Registry.BidStartValueWei != "" {
		v, ok := new(big.Int).SetString(c.Registry.BidStartValueWei, 10)
		if !ok {
			return ntv.Config{}, fmt.Errorf("invalid bid start value %q", c.Registry.BidStartValueWei)
		}
		cfg.BidStartValue = v
	}
	if c.Registry.MaxSlots > 0 {
		cfg.MaxSlots = c.Registry.MaxSlots
	}
	if c.Registry.MaxTextBytes > 0 {
		cfg.MaxTextBytes = c.Registry.MaxTextBytes
	}
	if c.Registry.DefaultText != "" {
		cfg.DefaultText = c.Registry.DefaultText
	}
	return cfg, nil
}

// PostgresConfig builds the store configuration; nil when the database is
// disabled.
func (c *Config) PostgresConfig() *store.PostgresConfig {
	if !c.Database.Enabled {
		return nil
	}
	return &store.PostgresConfig{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Database: c.Database.Name,
		SSLMode:  c.Database.SSLMode,
	}
}

// Logger builds the structured logger described by the log section.
func (c *Config) Logger() *slog.Logger {
	level := slog.LevelInfo
	if c.Log.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// DrainDuration returns the configured drain wait.
func (s *Server) DrainDuration() time.Duration {
	return time.Duration(s.DrainSeconds) * time.Second
}

// GracefulShutdownDuration returns the configured shutdown wait.
func (s *Server) GracefulShutdownDuration() time.Duration {
	return time.Duration(s.GracefulShutdownSeconds) * time.Second
}

// ReadTimeout returns the configured HTTP read timeout.
func (s *Server) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the configured HTTP write timeout.
func (s *Server) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}
