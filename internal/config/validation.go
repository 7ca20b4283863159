package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}
	if err := validateFiles(&cfg.Files); err != nil {
		return err
	}
	if err := validateTerminal(&cfg.Terminal); err != nil {
		return err
	}
	if err := validateExec(&cfg.Exec); err != nil {
		return err
	}
	if err := validateGit(&cfg.Git); err != nil {
		return err
	}
	if err := validateAudit(&cfg.Audit); err != nil {
		return err
	}
	return validateLogging(&cfg.Logging)
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if cfg.Host == "" {
		return fmt.Errorf("server.host cannot be empty")
	}
	if cfg.ExternalURL != "" {
		if err := validateExternalURL(cfg.ExternalURL, "server.external_url", []string{"http", "https"}); err != nil {
			return err
		}
	}
	if cfg.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout cannot be negative")
	}
	return nil
}

// validateExternalURL validates that a URL is well-formed and uses an allowed scheme.
func validateExternalURL(rawURL, fieldName string, allowedSchemes []string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", fieldName, err)
	}

	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", fieldName)
	}

	for _, scheme := range allowedSchemes {
		if strings.EqualFold(parsed.Scheme, scheme) {
			return nil
		}
	}
	return fmt.Errorf("%s must use one of these schemes: %s", fieldName, strings.Join(allowedSchemes, ", "))
}

func validateFiles(cfg *FilesConfig) error {
	info, err := os.Stat(cfg.RootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("files.root_dir does not exist: %s", cfg.RootDir)
		}
		return fmt.Errorf("error accessing files.root_dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("files.root_dir is not a directory: %s", cfg.RootDir)
	}

	if cfg.MaxUploadSize < 1 {
		return fmt.Errorf("files.max_upload_size must be at least 1")
	}
	if cfg.MaxStreamUpload < 0 {
		return fmt.Errorf("files.max_stream_upload_size cannot be negative (0 means unbounded)")
	}
	if cfg.MaxTextSize < 1 {
		return fmt.Errorf("files.max_text_size must be at least 1")
	}
	if cfg.MaxArchiveEntries < 1 {
		return fmt.Errorf("files.max_archive_entries must be at least 1")
	}
	if cfg.MaxExtractBytes < 1 {
		return fmt.Errorf("files.max_extract_bytes must be at least 1")
	}
	return nil
}

func validateTerminal(cfg *TerminalConfig) error {
	if cfg.MaxBufferChars < 1024 {
		return fmt.Errorf("terminal.max_buffer_chars must be at least 1024")
	}
	if cfg.FrameChars < 1 {
		return fmt.Errorf("terminal.frame_chars must be at least 1")
	}
	if floor := (cfg.MaxBufferChars + MaxReplayFrames - 1) / MaxReplayFrames; cfg.FrameChars < floor {
		return fmt.Errorf("terminal.frame_chars must be at least %d so a replay fits in %d frames", floor, MaxReplayFrames)
	}
	if cfg.IdleTimeout <= 0 {
		return fmt.Errorf("terminal.idle_timeout must be positive")
	}
	if cfg.ReapInterval <= 0 {
		return fmt.Errorf("terminal.reap_interval must be positive")
	}
	return nil
}

func validateExec(cfg *ExecConfig) error {
	for _, name := range cfg.AllowedCommands {
		if strings.ContainsAny(name, `/\ `) {
			return fmt.Errorf("exec.allowed_commands entries must be bare command names: %q", name)
		}
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("exec.timeout must be positive")
	}
	if cfg.RatePerMinute < 0 {
		return fmt.Errorf("exec.rate_per_minute cannot be negative")
	}
	if cfg.RatePerMinute > 0 && cfg.Burst < 1 {
		return fmt.Errorf("exec.burst must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func validateGit(cfg *GitConfig) error {
	if cfg.Command == "" {
		return fmt.Errorf("git.command cannot be empty")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("git.timeout must be positive")
	}
	return nil
}

func validateAudit(cfg *AuditConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Path == "" {
		return fmt.Errorf("audit.path cannot be empty when audit is enabled")
	}
	if cfg.MaxRecords < 1 {
		return fmt.Errorf("audit.max_records must be at least 1")
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Level)); err != nil {
		return fmt.Errorf("logging.level is invalid: %s", cfg.Level)
	}
	switch cfg.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}
	if cfg.File != "" && cfg.MaxSizeMB < 1 {
		return fmt.Errorf("logging.max_size_mb must be at least 1")
	}
	return nil
}
