// Package config handles configuration management for lanterm.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Files    FilesConfig    `mapstructure:"files" yaml:"files"`
	Terminal TerminalConfig `mapstructure:"terminal" yaml:"terminal"`
	Exec     ExecConfig     `mapstructure:"exec" yaml:"exec"`
	Git      GitConfig      `mapstructure:"git" yaml:"git"`
	Audit    AuditConfig    `mapstructure:"audit" yaml:"audit"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Pairing  PairingConfig  `mapstructure:"pairing" yaml:"pairing"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	Host            string        `mapstructure:"host" yaml:"host"`
	ExternalURL     string        `mapstructure:"external_url" yaml:"external_url"` // Optional: public URL when served behind a tunnel or proxy
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// FilesConfig holds the confined root and filesystem limits.
type FilesConfig struct {
	RootDir           string `mapstructure:"root_dir" yaml:"root_dir"`
	MaxUploadSize     int64  `mapstructure:"max_upload_size" yaml:"max_upload_size"`
	MaxStreamUpload   int64  `mapstructure:"max_stream_upload_size" yaml:"max_stream_upload_size"` // 0 = unbounded
	MaxTextSize       int64  `mapstructure:"max_text_size" yaml:"max_text_size"`
	MaxArchiveEntries int    `mapstructure:"max_archive_entries" yaml:"max_archive_entries"`
	MaxExtractBytes   int64  `mapstructure:"max_extract_bytes" yaml:"max_extract_bytes"`
}

// TerminalConfig holds PTY session configuration.
type TerminalConfig struct {
	Shell          string        `mapstructure:"shell" yaml:"shell"`
	MaxBufferChars int           `mapstructure:"max_buffer_chars" yaml:"max_buffer_chars"`
	FrameChars     int           `mapstructure:"frame_chars" yaml:"frame_chars"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ReapInterval   time.Duration `mapstructure:"reap_interval" yaml:"reap_interval"`
}

// ExecConfig holds the one-shot command runner configuration.
type ExecConfig struct {
	AllowedCommands []string      `mapstructure:"allowed_commands" yaml:"allowed_commands"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RatePerMinute   int           `mapstructure:"rate_per_minute" yaml:"rate_per_minute"`
	Burst           int           `mapstructure:"burst" yaml:"burst"`
}

// GitConfig holds Git configuration.
type GitConfig struct {
	Command string        `mapstructure:"command" yaml:"command"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AuditConfig holds the operation journal configuration.
type AuditConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxRecords int    `mapstructure:"max_records" yaml:"max_records"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"` // Optional: rotate logs into this file
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// PairingConfig holds connect QR configuration.
type PairingConfig struct {
	ShowQR bool `mapstructure:"show_qr" yaml:"show_qr"`
}

// envAliases are the short environment names accepted in addition to the
// LANTERM_<SECTION>_<KEY> form.
var envAliases = map[string]string{
	"server.port":               "PORT",
	"files.root_dir":            "ROOT_DIR",
	"files.max_upload_size":     "MAX_UPLOAD_SIZE",
	"exec.allowed_commands":     "ALLOWED_COMMANDS",
	"terminal.max_buffer_chars": "MAX_BUFFER_CHARS",
}

// Loader owns the viper instance and the current configuration.
// The current configuration is replaced atomically on hot reload.
type Loader struct {
	v       *viper.Viper
	current atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []func(old, updated *Config)
	watching  bool
}

// NewLoader reads configuration from files and environment.
func NewLoader(configPath string) (*Loader, error) {
	v := viper.New()

	// Set config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default search paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.lanterm")
		v.AddConfigPath("/etc/lanterm")
	}

	// Environment variable prefix
	v.SetEnvPrefix("LANTERM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		envKey := "LANTERM_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, alias); err != nil {
			return nil, fmt.Errorf("bind %s: %w", alias, err)
		}
	}

	setDefaults(v)

	// Read config file (optional - not an error if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	l := &Loader{v: v}
	l.current.Store(cfg)
	return l, nil
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	l, err := NewLoader(configPath)
	if err != nil {
		return nil, err
	}
	return l.Config(), nil
}

// decode unmarshals, post-processes and validates the viper state.
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := postProcess(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Config returns the current configuration. Callers must not modify it.
func (l *Loader) Config() *Config {
	return l.current.Load()
}

// ConfigFileUsed returns the config file path, or "" when running on
// defaults and environment only.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// OnChange registers fn to be called after every successful reload.
func (l *Loader) OnChange(fn func(old, updated *Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Watch starts watching the config file. It is a no-op when no file is in
// use. Invalid edits are logged and the previous configuration is kept.
func (l *Loader) Watch() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watching || l.v.ConfigFileUsed() == "" {
		return
	}
	l.watching = true

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		l.reload(e.Name)
	})
	l.v.WatchConfig()
	log.Info().Str("file", l.v.ConfigFileUsed()).Msg("watching config file")
}

func (l *Loader) reload(name string) {
	updated, err := decode(l.v)
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("ignoring invalid config change")
		return
	}
	old := l.current.Swap(updated)

	l.mu.Lock()
	listeners := append([]func(old, updated *Config){}, l.listeners...)
	l.mu.Unlock()

	log.Info().Str("file", name).Msg("config reloaded")
	for _, fn := range listeners {
		fn(old, updated)
	}
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.external_url", "")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Files defaults
	v.SetDefault("files.root_dir", "")
	v.SetDefault("files.max_upload_size", DefaultMaxUploadSize)
	v.SetDefault("files.max_stream_upload_size", DefaultMaxStreamUpload)
	v.SetDefault("files.max_text_size", DefaultMaxTextSize)
	v.SetDefault("files.max_archive_entries", DefaultMaxArchiveEntries)
	v.SetDefault("files.max_extract_bytes", DefaultMaxExtractBytes)

	// Terminal defaults
	v.SetDefault("terminal.shell", "")
	v.SetDefault("terminal.max_buffer_chars", DefaultMaxBufferChars)
	v.SetDefault("terminal.frame_chars", DefaultFrameChars)
	v.SetDefault("terminal.idle_timeout", DefaultIdleTimeout)
	v.SetDefault("terminal.reap_interval", DefaultReapInterval)

	// Exec defaults
	v.SetDefault("exec.allowed_commands", DefaultAllowedCommands)
	v.SetDefault("exec.timeout", DefaultExecTimeout)
	v.SetDefault("exec.rate_per_minute", 30)
	v.SetDefault("exec.burst", 5)

	// Git defaults
	v.SetDefault("git.command", "git")
	v.SetDefault("git.timeout", 30*time.Second)

	// Audit defaults
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.path", "")
	v.SetDefault("audit.max_records", 10000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	// Pairing defaults
	v.SetDefault("pairing.show_qr", true)
}

// postProcess applies post-processing to configuration.
func postProcess(cfg *Config) error {
	// If the root is empty, use current directory
	if cfg.Files.RootDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		cfg.Files.RootDir = cwd
	}

	absPath, err := filepath.Abs(expandHome(cfg.Files.RootDir))
	if err != nil {
		return fmt.Errorf("failed to resolve files.root_dir: %w", err)
	}
	cfg.Files.RootDir = absPath

	// ALLOWED_COMMANDS arrives as one comma separated string
	cfg.Exec.AllowedCommands = normalizeCommands(cfg.Exec.AllowedCommands)

	if cfg.Audit.Enabled && cfg.Audit.Path == "" {
		dir, err := GetConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve audit path: %w", err)
		}
		cfg.Audit.Path = filepath.Join(dir, "audit.db")
	}
	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	return nil
}

// normalizeCommands splits comma lists, trims blanks and removes duplicates.
func normalizeCommands(in []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// GetConfigDir returns the user config directory for lanterm.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".lanterm"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
