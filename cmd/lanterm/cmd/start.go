package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/brianly1003/lanterm/internal/app"
	"github.com/brianly1003/lanterm/internal/config"
)

// startFlags are the command line overrides for lanterm start.
type startFlags struct {
	rootDir     string
	host        string
	port        int
	externalURL string
	noQR        bool
}

var flags startFlags

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the lanterm server",
	Long: `Start the lanterm server and accept browser connections.

The terminal is served over WebSocket at /ws and the file, archive, git and
exec APIs under /api. API documentation is available at /swagger/.

Example:
  lanterm start                          # serve the current directory on :8080
  lanterm start --root ~/projects
  lanterm start --port 9000 --host 127.0.0.1

Tunnels and port forwarding:
  When the daemon is reached through a forwarded URL, pass it so the connect
  QR code points at it:

  lanterm start --external-url https://your-tunnel.devtunnels.ms

Changes to exec.allowed_commands, exec rate limits, the files upload limits
and server.allowed_origins in the config file take effect without a restart.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&flags.rootDir, "root", "", "directory to serve (default: current directory)")
	startCmd.Flags().StringVar(&flags.host, "host", "", "bind address (default: 0.0.0.0)")
	startCmd.Flags().IntVar(&flags.port, "port", 0, "server port for HTTP and WebSocket (default: 8080)")
	startCmd.Flags().StringVar(&flags.externalURL, "external-url", "", "public URL when served behind a tunnel (e.g., https://tunnel.devtunnels.ms)")
	startCmd.Flags().BoolVar(&flags.noQR, "no-qr", false, "do not print the connect QR code")
}

func runStart(cmd *cobra.Command, args []string) error {
	loader, err := config.NewLoader(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg, err := flags.apply(loader.Config())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closer := setupLogging(cfg)
	defer closer.Close()

	log.Info().
		Str("version", version).
		Str("root", cfg.Files.RootDir).
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("starting lanterm")

	application, err := app.New(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	loader.OnChange(func(_, updated *config.Config) {
		next, err := flags.apply(updated)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring config change")
			return
		}
		application.ApplyConfig(application.GetConfig(), next)
	})
	loader.Watch()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	log.Info().Msg("lanterm stopped")
	return nil
}

// apply returns a copy of cfg with the command line overrides applied and
// validated. cfg itself is not modified.
func (f startFlags) apply(cfg *config.Config) (*config.Config, error) {
	out := *cfg
	if f.rootDir != "" {
		out.Files.RootDir = f.rootDir
	}
	if f.host != "" {
		out.Server.Host = f.host
	}
	if f.port != 0 {
		out.Server.Port = f.port
	}
	if f.externalURL != "" {
		out.Server.ExternalURL = f.externalURL
	}
	if f.noQR {
		out.Pairing.ShowQR = false
	}
	if err := config.Validate(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// setupLogging configures the global zerolog logger. The returned closer
// flushes the log file, if any.
func setupLogging(cfg *config.Config) io.Closer {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stderr
	if cfg.Logging.Format == "console" || verbose {
		console = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	if cfg.Logging.File == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return io.NopCloser(nil)
	}

	file := &lumberjack.Logger{
		Filename:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		Compress:   true,
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, file)).With().Timestamp().Logger()
	return file
}
