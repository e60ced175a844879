package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	Port              int           `mapstructure:"port" yaml:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	StorageTimeout    time.Duration `mapstructure:"storage_timeout" yaml:"storage_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// MongoURI selects the document store when non-empty and reachable.
	MongoURI        string `mapstructure:"mongodb_uri" yaml:"mongodb_uri"`
	MongoDatabase   string `mapstructure:"mongodb_database" yaml:"mongodb_database"`
	MongoCollection string `mapstructure:"mongodb_collection" yaml:"mongodb_collection"`
	// DatabasePath selects the SQLite store when MongoURI is unset or unreachable.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	AllowedOrigins    []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	MaxMessageBytes   int64    `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	MessagesPerMinute int      `mapstructure:"messages_per_minute" yaml:"messages_per_minute"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Port:              3000,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		StorageTimeout:    5 * time.Second,
		LogLevel:          "info",
		MongoDatabase:     "messenger",
		MongoCollection:   "messages",
		AllowedOrigins:    []string{"*"},
		MaxMessageBytes:   1 << 20,
	}
}

// ListenAddr returns Addr when set, otherwise all interfaces on Port.
func (c Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	port := c.Port
	if port <= 0 {
		port = Default().Port
	}
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(port))
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.Port != 0 {
		c.Port = other.Port
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.StorageTimeout != 0 {
		c.StorageTimeout = other.StorageTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.MongoURI != "" {
		c.MongoURI = other.MongoURI
	}
	if other.MongoDatabase != "" {
		c.MongoDatabase = other.MongoDatabase
	}
	if other.MongoCollection != "" {
		c.MongoCollection = other.MongoCollection
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.MessagesPerMinute != 0 {
		c.MessagesPerMinute = other.MessagesPerMinute
	}
}
