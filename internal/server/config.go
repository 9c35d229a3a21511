package server

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration: an HCL file with a
// server block plus optional auth and audit blocks. Environment
// variables override the file; CLI flags override both.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Auth   *AuthSettings  `hcl:"auth,block"`
	Audit  *AuditSettings `hcl:"audit,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Host               string `hcl:"host,optional"`
	Port               int    `hcl:"port,optional"`
	MaxConnections     int    `hcl:"max_connections,optional"`
	TurnTimeoutSecs    int    `hcl:"turn_timeout_secs,optional"`
	ReconnectGraceSecs int    `hcl:"reconnect_grace_secs,optional"`
	LogLevel           string `hcl:"log_level,optional"`
}

// AuthSettings points the server at a token validation endpoint. An
// empty endpoint selects the static dev validator.
type AuthSettings struct {
	Endpoint    string `hcl:"endpoint,optional"`
	AdminSecret string `hcl:"admin_secret,optional"`
}

// AuditSettings enables the SQLite audit sink when a path is set
type AuditSettings struct {
	Path string `hcl:"path,optional"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Host:               "0.0.0.0",
			Port:               8080,
			MaxConnections:     1000,
			TurnTimeoutSecs:    30,
			ReconnectGraceSecs: 60,
			LogLevel:           "info",
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist, then applies environment
// overrides.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filename); err == nil {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCLFile(filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
		}

		config = &Config{}
		diags = gohcl.DecodeBody(file.Body, nil, config)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
		}
		config.applyDefaults()
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig().Server
	if c.Server.Host == "" {
		c.Server.Host = defaults.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Port
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = defaults.MaxConnections
	}
	if c.Server.TurnTimeoutSecs == 0 {
		c.Server.TurnTimeoutSecs = defaults.TurnTimeoutSecs
	}
	if c.Server.ReconnectGraceSecs == 0 {
		c.Server.ReconnectGraceSecs = defaults.ReconnectGraceSecs
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaults.LogLevel
	}
}

// ApplyEnv overrides settings from the environment
func (c *Config) ApplyEnv() error {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Server.LogLevel = level
	}

	for _, v := range []struct {
		name string
		into *int
	}{
		{"SERVER_PORT", &c.Server.Port},
		{"MAX_CONNECTIONS", &c.Server.MaxConnections},
		{"TURN_TIMEOUT_SECS", &c.Server.TurnTimeoutSecs},
		{"RECONNECT_GRACE_SECS", &c.Server.ReconnectGraceSecs},
	} {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
		*v.into = n
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("max_connections must be at least 1, got %d", c.Server.MaxConnections)
	}
	if c.Server.TurnTimeoutSecs <= 0 {
		return fmt.Errorf("turn_timeout_secs must be positive, got %d", c.Server.TurnTimeoutSecs)
	}
	if c.Server.ReconnectGraceSecs <= 0 {
		return fmt.Errorf("reconnect_grace_secs must be positive, got %d", c.Server.ReconnectGraceSecs)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.Server.LogLevel)
	}
	return nil
}

// Addr returns the host:port the server binds to
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// TurnTimeout returns the default per-turn deadline
func (c *Config) TurnTimeout() time.Duration {
	return time.Duration(c.Server.TurnTimeoutSecs) * time.Second
}

// ReconnectGrace returns the session grace window
func (c *Config) ReconnectGrace() time.Duration {
	return time.Duration(c.Server.ReconnectGraceSecs) * time.Second
}
