// ABOUTME: Entry point for junebug-bridge
// ABOUTME: Serves the Junebug webhook and outbound API, plus one-shot send/resolve commands

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/junebug-bridge/internal/bridge"
	"github.com/2389/junebug-bridge/internal/config"
	"github.com/2389/junebug-bridge/internal/telemetry"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
   _             _                       _          _     _
  (_)_   _ _ __ | |__  _   _  __ _      | |__  _ __(_) __| | __ _  ___
  | | | | | '_ \| '_ \| | | |/ _' |_____| '_ \| '__| |/ _' |/ _' |/ _ \
  | | |_| | | | | |_) | |_| | (_| |_____| |_) | |  | | (_| | (_| |  __/
 _/ |\__,_|_| |_|_.__/ \__,_|\__, |     |_.__/|_|  |_|\__,_|\__, |\___|
|__/                         |___/                          |___/
`

func usage() {
	fmt.Println("Usage: junebug-bridge <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                              Start the bridge server")
	fmt.Println("  init                               Create a new config file interactively")
	fmt.Println("  send (--urn URN | --contact ID) --text TEXT")
	fmt.Println("                                     Send one message through the gateway")
	fmt.Println("  resolve IDENTITY [--type TYPE]     Print the addresses of an identity")
	fmt.Println("  health                             Check bridge health")
	fmt.Println()
	fmt.Printf("Config: %s (override with JUNEBUG_BRIDGE_CONFIG)\n", config.DefaultPath())
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "send":
		err = runSend(ctx, os.Args[2:])
	case "resolve":
		err = runResolve(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Gateway:   %s (channel %s)\n", cfg.Junebug.URL, cfg.Junebug.ChannelID)
	green.Print("    ▶ ")
	fmt.Printf("Identity:  %s\n", cfg.IdentityStore.URL)
	green.Print("    ▶ ")
	fmt.Printf("Webhook:   %s\n", cfg.Junebug.InboundURL)

	if cfg.Database.Path != "" {
		green.Print("    ▶ ")
		fmt.Printf("Database:  %s\n", cfg.Database.Path)
	} else {
		yellow.Print("    ▶ ")
		fmt.Println("Database:  none (inbound messages are only logged)")
	}

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	fmt.Println()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	logger.Info("starting junebug-bridge",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"junebug_url", cfg.Junebug.URL,
		"identity_store_url", cfg.IdentityStore.URL,
	)

	b, err := bridge.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	return b.Run(ctx)
}
