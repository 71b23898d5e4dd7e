package mcpserver

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/pmadusud/salesagent/internal/types"
)

// ServerConfig holds the listener and request limits for the MCP server
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	RateLimit       float64       `json:"rate_limit"`
	RateBurst       int           `json:"rate_burst"`
}

// NewServerConfig extracts and validates the MCP server settings
func NewServerConfig(cfg *types.Config) (*ServerConfig, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}

	sc := &ServerConfig{
		Host:            cfg.MCPServerHost,
		Port:            cfg.MCPServerPort,
		ReadTimeout:     cfg.MCPServerReadTimeout,
		WriteTimeout:    cfg.MCPServerWriteTimeout,
		IdleTimeout:     cfg.MCPServerIdleTimeout,
		ShutdownTimeout: cfg.MCPServerShutdownTimeout,
		RateLimit:       cfg.MCPRateLimit,
		RateBurst:       cfg.MCPRateBurst,
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Validate checks ranges and fills defaults for zero durations
func (sc *ServerConfig) Validate() error {
	if sc.Host == "" {
		sc.Host = "localhost"
	}
	if sc.Port < 0 || sc.Port > 65535 {
		return fmt.Errorf("invalid MCP server port: %d (must be 0-65535)", sc.Port)
	}
	if sc.ReadTimeout <= 0 {
		sc.ReadTimeout = 30 * time.Second
	}
	if sc.WriteTimeout <= 0 {
		sc.WriteTimeout = 60 * time.Second
	}
	if sc.IdleTimeout <= 0 {
		sc.IdleTimeout = 120 * time.Second
	}
	if sc.ShutdownTimeout <= 0 {
		sc.ShutdownTimeout = 10 * time.Second
	}
	if sc.RateLimit < 0 {
		return fmt.Errorf("invalid MCP rate limit: %v (must be >= 0)", sc.RateLimit)
	}
	if sc.RateLimit > 0 && sc.RateBurst <= 0 {
		return fmt.Errorf("invalid MCP rate burst: %d (must be > 0 when a rate limit is set)", sc.RateBurst)
	}
	return nil
}

// Address returns host:port for the HTTP listener
func (sc *ServerConfig) Address() string {
	return net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
}
