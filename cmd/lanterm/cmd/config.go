package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brianly1003/lanterm/internal/config"
)

var (
	configInitLocal bool
	configInitForce bool
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and manage configuration",
	Long: `Display and manage lanterm configuration.

Without subcommands, prints the effective configuration as YAML, after
defaults and environment overrides (PORT, ROOT_DIR, ALLOWED_COMMANDS,
MAX_UPLOAD_SIZE, MAX_BUFFER_CHARS, LANTERM_<SECTION>_<KEY>) are applied.

Examples:
  lanterm config                 # Show effective config
  lanterm config init            # Create config file with defaults
  lanterm config path            # Show config file location
  lanterm config get <key>       # Get a config value
  lanterm config set <key> <value>  # Set a config value`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

// configInitCmd creates a config file with defaults.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	Long: `Create a config file with default settings and documentation.

By default, creates ~/.lanterm/config.yaml.
Use --local to create ./config.yaml in the current directory.`,
	RunE: runConfigInit,
}

// configPathCmd shows config file location.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file location",
	RunE:  runConfigPath,
}

// configGetCmd gets a config value.
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by key.

Keys use dot notation to access nested values.

Examples:
  lanterm config get server.port
  lanterm config get exec.allowed_commands`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a config value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by key in ~/.lanterm/config.yaml.

Creates the config file if it doesn't exist. Comma separated values are
stored as lists for list keys.

Examples:
  lanterm config set server.port 9000
  lanterm config set exec.allowed_commands ls,cat,git`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "create config in current directory instead of ~/.lanterm/")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	var configPath string

	if configInitLocal {
		configPath = "config.yaml"
	} else {
		configDir, err := config.EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil && !configInitForce {
		return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	loader, err := config.NewLoader(cfgFile)
	if err == nil {
		if used := loader.ConfigFileUsed(); used != "" {
			fmt.Fprintf(out, "Using: %s\n\n", used)
		} else {
			fmt.Fprint(out, "Using: defaults and environment only\n\n")
		}
	}

	configDir, err := config.GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config dir: %w", err)
	}

	locations := []string{
		"./config.yaml",
		filepath.Join(configDir, "config.yaml"),
		"/etc/lanterm/config.yaml",
	}

	fmt.Fprintln(out, "Config search paths (in order):")
	for i, loc := range locations {
		exists := "not found"
		if _, err := os.Stat(loc); err == nil {
			exists = "exists"
		}
		fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, loc, exists)
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := getConfigValue(cfg, args[0])
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	var data map[string]interface{}
	if content, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
	}
	if data == nil {
		data = make(map[string]interface{})
	}

	if err := setNestedValue(data, key, value); err != nil {
		return err
	}

	content, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, configPath)
	return nil
}

// getConfigValue looks key up in the YAML form of cfg, so every key the
// config file accepts can be read back.
func getConfigValue(cfg *config.Config, key string) (interface{}, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}

	var current interface{} = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
		if current, ok = m[part]; !ok {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
	}
	return current, nil
}

func setNestedValue(data map[string]interface{}, key string, value string) error {
	parts := strings.Split(key, ".")

	current := data
	for i := 0; i < len(parts)-1; i++ {
		if _, ok := current[parts[i]]; !ok {
			current[parts[i]] = make(map[string]interface{})
		}
		nested, ok := current[parts[i]].(map[string]interface{})
		if !ok {
			return fmt.Errorf("cannot set nested value: %s is not a map", parts[i])
		}
		current = nested
	}

	current[parts[len(parts)-1]] = parseValue(key, value)
	return nil
}

// listKeys are the config keys holding lists.
var listKeys = map[string]bool{
	"exec.allowed_commands":  true,
	"server.allowed_origins": true,
}

func parseValue(key string, value string) interface{} {
	if listKeys[key] {
		items := []string{}
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	return value
}

const defaultConfig = `# lanterm Configuration
# Copy this file to ~/.lanterm/config.yaml and modify as needed

# Server settings
server:
  # Port for HTTP API and WebSocket connections
  port: 8080

  # Bind address (use 127.0.0.1 to accept local connections only)
  host: "0.0.0.0"

  # External URL for tunnels and port forwarding
  # When set, the QR code will contain this URL instead of the LAN address
  # external_url: "https://your-tunnel.devtunnels.ms"

  # Extra browser origins allowed to call the API (same host and loopback
  # are always allowed). Supports "*.example.com" and "*".
  allowed_origins: []

  shutdown_timeout: 10s

# Filesystem sandbox
files:
  # Every file operation is confined to this directory (default: cwd)
  root_dir: ""
  max_upload_size: 104857600
  # Raw PUT /api/files/stream uploads; 0 means unbounded
  max_stream_upload_size: 0
  max_text_size: 5242880
  max_archive_entries: 10000
  max_extract_bytes: 4294967296

# Terminal sessions
terminal:
  # Login shell (default: $SHELL, then /bin/bash)
  shell: ""
  # Characters of recent output replayed on reconnect
  max_buffer_chars: 100000
  frame_chars: 16384
  # Sessions without input for this long are terminated
  idle_timeout: 24h
  reap_interval: 1h

# One-shot command runner (POST /api/exec)
exec:
  # git is left out: history rewrites go through the guarded /api/git endpoints
  allowed_commands: [ls, pwd, whoami, uname, df, du]
  timeout: 5m
  rate_per_minute: 30
  burst: 5

# Git integration
git:
  command: "git"
  timeout: 30s

# Operation journal
audit:
  enabled: true
  # path: "~/.lanterm/audit.db"
  max_records: 10000

# Logging settings
logging:
  # Log level: trace, debug, info, warn, error
  level: "info"
  # Log format: console (human-readable) or json
  format: "console"
  # Also write rotated logs to this file
  # file: "~/.lanterm/lanterm.log"
  max_size_mb: 50
  max_backups: 3
  max_age_days: 28

# Connect QR code
pairing:
  show_qr: true
`
