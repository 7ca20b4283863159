package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Server: ServerConfig{Port: 8080, Host: "0.0.0.0"},
		Files: FilesConfig{
			RootDir:           t.TempDir(),
			MaxUploadSize:     DefaultMaxUploadSize,
			MaxTextSize:       DefaultMaxTextSize,
			MaxArchiveEntries: DefaultMaxArchiveEntries,
			MaxExtractBytes:   DefaultMaxExtractBytes,
		},
		Terminal: TerminalConfig{
			MaxBufferChars: DefaultMaxBufferChars,
			FrameChars:     DefaultFrameChars,
			IdleTimeout:    DefaultIdleTimeout,
			ReapInterval:   DefaultReapInterval,
		},
		Exec:    ExecConfig{AllowedCommands: []string{"ls"}, Timeout: time.Minute, RatePerMinute: 10, Burst: 2},
		Git:     GitConfig{Command: "git", Timeout: time.Second},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid config", func(*Config) {}, ""},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "server.port must be between 1 and 65535"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port must be between 1 and 65535"},
		{"empty host", func(c *Config) { c.Server.Host = "" }, "host cannot be empty"},
		{"valid external url", func(c *Config) { c.Server.ExternalURL = "https://term.example.com" }, ""},
		{"external url scheme", func(c *Config) { c.Server.ExternalURL = "ftp://term.example.com" }, "must use one of these schemes"},
		{"external url host", func(c *Config) { c.Server.ExternalURL = "https://" }, "must include a host"},
		{"missing root", func(c *Config) { c.Files.RootDir = "/definitely/not/here" }, "files.root_dir does not exist"},
		{"zero upload size", func(c *Config) { c.Files.MaxUploadSize = 0 }, "files.max_upload_size"},
		{"unbounded stream upload", func(c *Config) { c.Files.MaxStreamUpload = 0 }, ""},
		{"negative stream upload", func(c *Config) { c.Files.MaxStreamUpload = -1 }, "files.max_stream_upload_size"},
		{"tiny replay buffer", func(c *Config) { c.Terminal.MaxBufferChars = 10 }, "terminal.max_buffer_chars"},
		{"replay needs too many frames", func(c *Config) { c.Terminal.MaxBufferChars = 4000; c.Terminal.FrameChars = 1 }, "terminal.frame_chars must be at least 8"},
		{"replay frames at the bound", func(c *Config) { c.Terminal.MaxBufferChars = 4096; c.Terminal.FrameChars = 8 }, ""},
		{"zero idle timeout", func(c *Config) { c.Terminal.IdleTimeout = 0 }, "terminal.idle_timeout"},
		{"command with path", func(c *Config) { c.Exec.AllowedCommands = []string{"/bin/rm"} }, "bare command names"},
		{"rate without burst", func(c *Config) { c.Exec.Burst = 0 }, "exec.burst"},
		{"rate disabled", func(c *Config) { c.Exec.RatePerMinute = 0; c.Exec.Burst = 0 }, ""},
		{"empty git command", func(c *Config) { c.Git.Command = "" }, "git.command cannot be empty"},
		{"audit without path", func(c *Config) { c.Audit = AuditConfig{Enabled: true, MaxRecords: 1} }, "audit.path"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
