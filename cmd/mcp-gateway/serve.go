package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/Bigsy/mcp-gateway/internal/config"
	"github.com/Bigsy/mcp-gateway/internal/events"
	"github.com/Bigsy/mcp-gateway/internal/gwlog"
	"github.com/Bigsy/mcp-gateway/internal/health"
	"github.com/Bigsy/mcp-gateway/internal/httpapi"
	"github.com/Bigsy/mcp-gateway/internal/process"
	"github.com/Bigsy/mcp-gateway/internal/registry"
	"github.com/spf13/cobra"
)

var (
	serveConfigPath string
	serveLogLevel   string
	serveLogFormat  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway",
	Long: `Resolve the configured upstream servers, supervise the command-kind
ones, and start both the public HTTP proxy and the health aggregator.`,
	RunE: runServe,
}

func init() {
	// Flags default to empty so the precedence in runServe can tell "not
	// passed" apart from "passed explicitly" and fall back to the
	// CONFIG_PATH/LOG_LEVEL/LOG_FORMAT environment variables before the
	// package's own built-in defaults.
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to config file (default: $CONFIG_PATH or /app/config.json)")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Log level (default: $LOG_LEVEL or info)")
	serveCmd.Flags().StringVar(&serveLogFormat, "log-format", "", "Log format (default: $LOG_FORMAT or text)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logLevel := firstNonEmpty(serveLogLevel, os.Getenv("LOG_LEVEL"), "info")
	logFormat := firstNonEmpty(serveLogFormat, os.Getenv("LOG_FORMAT"), "text")
	gwlog.Init(logLevel, logFormat)
	log := gwlog.Named("main")

	resolvedConfigPath, err := resolveConfigPath(serveConfigPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	cfg, err := config.Resolve(resolvedConfigPath, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Info("loaded config", "upstreams", len(cfg.Upstreams))

	// PORT mirrors mcp_proxy.py's DEFAULT_PORT = os.environ.get("PORT", ...):
	// an explicit $PORT overrides whatever the proxy.port config default
	// resolved to.
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Proxy.Port = p
		} else {
			log.Warn("ignoring non-numeric PORT", "value", port)
		}
	}

	bus := events.NewBus()
	defer bus.Close()

	supervisor := process.NewSupervisor(bus, cfg.Restart)
	for _, u := range cfg.Upstreams {
		if u.Disabled || u.Kind != config.TransportCommand {
			continue
		}
		if err := supervisor.Start(u); err != nil {
			log.Error("failed to start upstream", "upstream", u.Name, "error", err)
		}
	}

	reg := registry.New(cfg, supervisor)

	proxy, err := httpapi.New(cfg, reg)
	if err != nil {
		return fmt.Errorf("start proxy: %w", err)
	}
	proxy.Start()
	log.Info("proxy listening", "addr", proxy.Addr())

	proxyURL := "http://" + proxy.Addr()
	aggregator, err := health.New(cfg, reg, supervisor, proxyURL)
	if err != nil {
		return fmt.Errorf("start health aggregator: %w", err)
	}
	aggregator.Start()
	log.Info("health aggregator listening", "addr", aggregator.Addr())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), process.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := proxy.Shutdown(shutdownCtx); err != nil {
		log.Warn("proxy shutdown", "error", err)
	}
	if err := aggregator.Shutdown(shutdownCtx); err != nil {
		log.Warn("health aggregator shutdown", "error", err)
	}
	supervisor.StopAll()

	log.Info("mcp-gateway exiting")
	return nil
}

// resolveConfigPath applies the precedence an explicit --config flag, then
// $CONFIG_PATH, then this CLI's own default location (a user config
// directory rather than mcp_proxy.py's container-oriented /app/config.json,
// since this binary also runs as an ordinary local CLI tool).
func resolveConfigPath(path string) (string, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "mcp-gateway", "config.json"), nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// firstNonEmpty returns the first non-empty string among candidates, or the
// final fallback if all are empty.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
