// ABOUTME: One-shot CLI commands: init, send, resolve, health
// ABOUTME: Each loads the same config as serve and talks to the configured services

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/2389/junebug-bridge/internal/backend"
	"github.com/2389/junebug-bridge/internal/config"
	"github.com/2389/junebug-bridge/internal/identity"
	"github.com/2389/junebug-bridge/internal/junebug"
)

// parseArgs splits args into flag values and positionals. Flags take one
// value, given as "--name value" or "--name=value"; only names in allowed
// are accepted.
func parseArgs(args []string, allowed ...string) (map[string]string, []string, error) {
	known := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		known[name] = true
	}

	flags := make(map[string]string)
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
			continue
		}
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !known[name] {
			return nil, nil, fmt.Errorf("unknown flag: %s", arg)
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("--%s requires a value", name)
			}
			value = args[i+1]
			i++
		}
		flags[name] = value
	}
	return flags, positional, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrEnv(config.DefaultPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newIdentityClient(cfg *config.Config, logger *slog.Logger) *identity.Client {
	return identity.New(cfg.IdentityStore.URL, cfg.IdentityStore.AuthToken, cfg.IdentityStore.AddressType,
		identity.WithHTTPClient(&http.Client{Timeout: cfg.IdentityStore.Timeout}),
		identity.WithMaxIndirection(cfg.IdentityStore.MaxIndirection),
		identity.WithLogger(logger),
	)
}

// buildOutgoing turns send flags into a single outgoing message.
func buildOutgoing(flags map[string]string) (backend.OutgoingMessage, error) {
	msg := backend.OutgoingMessage{
		Text: flags["text"],
		URN:  flags["urn"],
	}
	if id := flags["contact"]; id != "" {
		msg.Contact = &backend.Contact{UUID: id}
	}
	if msg.Text == "" {
		return msg, fmt.Errorf("--text is required")
	}
	if msg.URN == "" && msg.Contact == nil {
		return msg, fmt.Errorf("one of --urn or --contact is required")
	}
	return msg, nil
}

func runSend(ctx context.Context, args []string) error {
	flags, positional, err := parseArgs(args, "urn", "contact", "text")
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("unexpected argument: %s", positional[0])
	}
	msg, err := buildOutgoing(flags)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	b := junebug.New(junebug.Config{
		URL:         cfg.Junebug.URL,
		ChannelID:   cfg.Junebug.ChannelID,
		AuthToken:   cfg.Junebug.AuthToken,
		FromAddress: cfg.Junebug.FromAddress,
		InboundPath: cfg.Junebug.InboundURL,
		AddressType: cfg.IdentityStore.AddressType,
	}, newIdentityClient(cfg, logger),
		junebug.WithHTTPClient(&http.Client{Timeout: cfg.Junebug.Timeout}),
		junebug.WithLogger(logger),
	)

	if err := b.PushOutgoing(ctx, nil, []backend.OutgoingMessage{msg}); err != nil {
		return err
	}

	color.New(color.FgGreen).Print("  ✓ ")
	fmt.Printf("sent via %s\n", b.Sender().URL())
	return nil
}

func runResolve(ctx context.Context, args []string) error {
	flags, positional, err := parseArgs(args, "type")
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: junebug-bridge resolve IDENTITY [--type TYPE]")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := newIdentityClient(cfg, setupLogger(cfg.Logging))

	addrs, err := client.GetAddresses(ctx, positional[0], flags["type"])
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		color.New(color.FgYellow).Println("no addresses")
		return nil
	}
	for _, a := range addrs {
		fmt.Println(a)
	}
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is not set (tailscale-only bridges cannot be checked locally)")
	}

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("junebug-bridge configuration setup")
	fmt.Println("==================================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := promptConfig(reader)

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	header := "# junebug-bridge configuration\n# Generated by junebug-bridge init\n\n"
	if err := os.WriteFile(outputFile, append([]byte(header), out...), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if cfg.Database.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the bridge:")
	fmt.Println("  junebug-bridge serve")
	return nil
}

// promptConfig asks for each setting, offering the built-in defaults.
func promptConfig(reader *bufio.Reader) config.Config {
	var cfg config.Config

	fmt.Println("\n--- Server ---")
	cfg.Server.HTTPAddr = prompt(reader, "HTTP address", config.DefaultHTTPAddr)
	cfg.Server.APIToken = prompt(reader, "API token for /api (leave empty for none)", "")

	fmt.Println("\n--- Junebug ---")
	cfg.Junebug.URL = prompt(reader, "Junebug URL", config.DefaultJunebugURL)
	cfg.Junebug.ChannelID = prompt(reader, "Channel ID", config.DefaultChannelID)
	cfg.Junebug.AuthToken = prompt(reader, "Auth token (leave empty for none)", "")
	cfg.Junebug.FromAddress = prompt(reader, "From address (leave empty for channel default)", "")
	cfg.Junebug.InboundURL = prompt(reader, "Inbound webhook path", config.DefaultInboundURL)

	fmt.Println("\n--- Identity store ---")
	cfg.IdentityStore.URL = prompt(reader, "Identity store URL", config.DefaultIdentityURL)
	cfg.IdentityStore.AuthToken = prompt(reader, "Identity store token", "")
	cfg.IdentityStore.AddressType = prompt(reader, "Address type", config.DefaultAddressType)

	fmt.Println("\n--- Database ---")
	cfg.Database.Path = prompt(reader, "SQLite database path (leave empty to only log inbound)", defaultDBPath())

	fmt.Println("\n--- Tailscale ---")
	cfg.Tailscale.Enabled = yes(prompt(reader, "Enable Tailscale?", "no"))
	if cfg.Tailscale.Enabled {
		cfg.Tailscale.Hostname = prompt(reader, "Tailscale hostname", "junebug-bridge")
		cfg.Tailscale.AuthKey = prompt(reader, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		cfg.Tailscale.Ephemeral = yes(prompt(reader, "Ephemeral node?", "no"))
		cfg.Tailscale.Funnel = yes(prompt(reader, "Enable Funnel (public HTTPS webhook)?", "no"))
		cfg.Server.HTTPAddr = ""
	}

	fmt.Println("\n--- Logging ---")
	cfg.Logging.Level = prompt(reader, "Log level (debug/info/warn/error)", "info")
	cfg.Logging.Format = prompt(reader, "Log format (text/json)", "text")

	cfg.Metrics.Path = config.DefaultMetricsPath
	return cfg
}

// defaultDBPath returns XDG_DATA_HOME/junebug-bridge/bridge.db, falling back
// to ~/.local/share.
func defaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "bridge.db"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "junebug-bridge", "bridge.db")
}

func yes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
