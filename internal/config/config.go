package config

import (
	"fmt"
	"strconv"
	"time"
)

// Port bounds accepted on the command line: [MinPort, MaxPort).
const (
	MinPort = 1024
	MaxPort = 65536
)

// Config holds server configuration values.
type Config struct {
	Port              int           `mapstructure:"port" yaml:"port"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	Linger            time.Duration `mapstructure:"linger" yaml:"linger"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxPayloadBytes   int           `mapstructure:"max_payload_bytes" yaml:"max_payload_bytes"`
	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	WSRateLimit       int           `mapstructure:"ws_rate_limit" yaml:"ws_rate_limit"`
	AuditPath         string        `mapstructure:"audit_path" yaml:"audit_path"`
	AuditBuffer       int           `mapstructure:"audit_buffer" yaml:"audit_buffer"`
}

// Default returns configuration with reasonable starter defaults.
// HTTP admin and the audit journal are off until an address or path is set.
func Default() Config {
	return Config{
		LogLevel:          "info",
		Linger:            5 * time.Second,
		WriteTimeout:      5 * time.Second,
		MaxPayloadBytes:   64 << 10,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		AuditBuffer:       256,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Port != 0 {
		c.Port = other.Port
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Linger != 0 {
		c.Linger = other.Linger
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.MaxPayloadBytes != 0 {
		c.MaxPayloadBytes = other.MaxPayloadBytes
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.WSRateLimit != 0 {
		c.WSRateLimit = other.WSRateLimit
	}
	if other.AuditPath != "" {
		c.AuditPath = other.AuditPath
	}
	if other.AuditBuffer != 0 {
		c.AuditBuffer = other.AuditBuffer
	}
}

// ListenAddr is the relay listen address for the configured port.
func (c Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

// ParsePort validates the PORT command line argument.
func ParsePort(arg string) (int, error) {
	port, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: not a number", arg)
	}
	if port < MinPort || port >= MaxPort {
		return 0, fmt.Errorf("port %d is out of range [%d, %d)", port, MinPort, MaxPort)
	}
	return port, nil
}
