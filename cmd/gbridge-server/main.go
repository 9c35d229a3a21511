package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/gbridge/internal/audit"
	"github.com/lox/gbridge/internal/auth"
	"github.com/lox/gbridge/internal/server"
)

var CLI struct {
	Config         string `short:"c" long:"config" default:"gbridge-server.hcl" help:"Path to HCL configuration file"`
	Host           string `long:"host" env:"SERVER_HOST" help:"Bind host (overrides config)"`
	Port           int    `short:"p" long:"port" env:"SERVER_PORT" help:"Bind port (overrides config)"`
	MaxConnections int    `long:"max-connections" env:"MAX_CONNECTIONS" help:"Connection admission cap (overrides config)"`
	TurnTimeout    int    `long:"turn-timeout" env:"TURN_TIMEOUT_SECS" help:"Default turn timeout in seconds (overrides config)"`
	ReconnectGrace int    `long:"reconnect-grace" env:"RECONNECT_GRACE_SECS" help:"Session grace window in seconds (overrides config)"`
	LogLevel       string `short:"l" long:"log-level" env:"LOG_LEVEL" help:"Log level (overrides config)"`
	AuthEndpoint   string `long:"auth-endpoint" help:"Token validation endpoint (empty = static dev validator)"`
	AuditPath      string `long:"audit-path" help:"SQLite audit database path (empty = audit disabled)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Host != "" {
		cfg.Server.Host = CLI.Host
	}
	if CLI.Port != 0 {
		cfg.Server.Port = CLI.Port
	}
	if CLI.MaxConnections != 0 {
		cfg.Server.MaxConnections = CLI.MaxConnections
	}
	if CLI.TurnTimeout != 0 {
		cfg.Server.TurnTimeoutSecs = CLI.TurnTimeout
	}
	if CLI.ReconnectGrace != 0 {
		cfg.Server.ReconnectGraceSecs = CLI.ReconnectGrace
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.AuthEndpoint != "" {
		cfg.Auth = &server.AuthSettings{Endpoint: CLI.AuthEndpoint}
	}
	if CLI.AuditPath != "" {
		cfg.Audit = &server.AuditSettings{Path: CLI.AuditPath}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	// Setup logging
	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	var validator auth.Validator = auth.NewStaticValidator()
	if cfg.Auth != nil && cfg.Auth.Endpoint != "" {
		validator = auth.NewHTTPValidator(cfg.Auth.Endpoint, cfg.Auth.AdminSecret)
		logger.Info("Using HTTP token validator", "endpoint", cfg.Auth.Endpoint)
	} else {
		logger.Warn("No auth endpoint configured, using static dev validator")
	}

	var recorder *audit.Recorder
	if cfg.Audit != nil && cfg.Audit.Path != "" {
		store, err := audit.NewSQLiteStore(cfg.Audit.Path)
		if err != nil {
			logger.Error("Failed to open audit store", "path", cfg.Audit.Path, "error", err)
			kctx.Exit(1)
		}
		defer store.Close()

		recorder = audit.NewRecorder(store, logger)
		defer recorder.Close()
		logger.Info("Audit sink enabled", "path", cfg.Audit.Path)
	}

	logger.Info("Starting GBridge server",
		"addr", cfg.Addr(),
		"turn_timeout_secs", cfg.Server.TurnTimeoutSecs,
		"reconnect_grace_secs", cfg.Server.ReconnectGraceSecs,
		"max_connections", cfg.Server.MaxConnections)

	srv := server.New(cfg, validator, recorder, quartz.NewReal(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
	logger.Info("Server stopped")
}
