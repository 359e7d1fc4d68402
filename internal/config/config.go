// Package config provides Viper-based configuration loading for the plaza server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP/WebSocket listener settings.
type ServerConfig struct {
	// Host is the bind address for the listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the listener.
	Port int `mapstructure:"port"`
	// ShutdownTimeout bounds graceful HTTP shutdown on stop.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RoomConfig holds the fixed dimensions of the shared 2D space.
// The room is process-wide and effectively immutable once loaded.
type RoomConfig struct {
	// Width is the inclusive upper bound for the x coordinate.
	Width int `mapstructure:"width"`
	// Height is the inclusive upper bound for the y coordinate.
	Height int `mapstructure:"height"`
}

// LimitsConfig holds per-connection rate limits and input size clamps.
type LimitsConfig struct {
	// MoveInterval is the minimum spacing between accepted move frames.
	MoveInterval time.Duration `mapstructure:"move_interval"`
	// ChatInterval is the minimum spacing between accepted chat frames.
	ChatInterval time.Duration `mapstructure:"chat_interval"`
	// MaxChatLength is the maximum stored chat message length in runes.
	MaxChatLength int `mapstructure:"max_chat_length"`
	// MaxNameLength is the maximum stored display name length in runes.
	MaxNameLength int `mapstructure:"max_name_length"`
}

// HeartbeatConfig holds liveness probing and staleness eviction settings.
type HeartbeatConfig struct {
	// Interval is the probe cycle period. A connection that misses two
	// consecutive cycles is terminated.
	Interval time.Duration `mapstructure:"interval"`
	// TTL is the maximum allowed age of a participant's last activity
	// before the registry sweep evicts it.
	TTL time.Duration `mapstructure:"ttl"`
}

// ProximityConfig holds the spatial interaction threshold.
type ProximityConfig struct {
	// Radius is the Euclidean distance within which two participants
	// are considered nearby.
	Radius int `mapstructure:"radius"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File, when non-empty, routes output to a size-rotated log file
	// instead of stderr.
	File string `mapstructure:"file"`
	// MaxSizeMB is the rotation threshold for the log file.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files to retain.
	MaxBackups int `mapstructure:"max_backups"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Room      RoomConfig      `mapstructure:"room"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Proximity ProximityConfig `mapstructure:"proximity"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRoom(c.Room); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLimits(c.Limits); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateHeartbeat(c.Heartbeat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateProximity(c.Proximity); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRoom(r RoomConfig) error {
	var errs []string
	if r.Width < 1 {
		errs = append(errs, fmt.Sprintf("room.width must be >= 1, got %d", r.Width))
	}
	if r.Height < 1 {
		errs = append(errs, fmt.Sprintf("room.height must be >= 1, got %d", r.Height))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLimits(l LimitsConfig) error {
	var errs []string
	if l.MoveInterval <= 0 {
		errs = append(errs, "limits.move_interval must be positive")
	}
	if l.ChatInterval <= 0 {
		errs = append(errs, "limits.chat_interval must be positive")
	}
	if l.MaxChatLength < 1 {
		errs = append(errs, fmt.Sprintf("limits.max_chat_length must be >= 1, got %d", l.MaxChatLength))
	}
	if l.MaxNameLength < 1 {
		errs = append(errs, fmt.Sprintf("limits.max_name_length must be >= 1, got %d", l.MaxNameLength))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateHeartbeat(h HeartbeatConfig) error {
	var errs []string
	if h.Interval <= 0 {
		errs = append(errs, "heartbeat.interval must be positive")
	}
	if h.TTL <= 0 {
		errs = append(errs, "heartbeat.ttl must be positive")
	}
	if h.TTL > 0 && h.Interval > 0 && h.TTL < h.Interval {
		errs = append(errs, "heartbeat.ttl must not be shorter than heartbeat.interval")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateProximity(p ProximityConfig) error {
	if p.Radius < 1 {
		return fmt.Errorf("proximity.radius must be >= 1, got %d", p.Radius)
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	if l.File != "" {
		if l.MaxSizeMB < 1 {
			return fmt.Errorf("logging.max_size_mb must be >= 1 when logging.file is set, got %d", l.MaxSizeMB)
		}
		if l.MaxBackups < 0 {
			return errors.New("logging.max_backups must not be negative")
		}
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. A missing file is not an error: defaults
// plus environment overrides apply, so the server runs with zero configuration.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with PLAZA_ prefix
	v.SetEnvPrefix("PLAZA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("room.width", 800)
	v.SetDefault("room.height", 600)

	v.SetDefault("limits.move_interval", "12ms")
	v.SetDefault("limits.chat_interval", "1s")
	v.SetDefault("limits.max_chat_length", 280)
	v.SetDefault("limits.max_name_length", 24)

	v.SetDefault("heartbeat.interval", "15s")
	v.SetDefault("heartbeat.ttl", "60s")

	v.SetDefault("proximity.radius", 200)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
}
