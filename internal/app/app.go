// Package app orchestrates all components of lanterm.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/brianly1003/lanterm/internal/adapters/git"
	"github.com/brianly1003/lanterm/internal/archive"
	"github.com/brianly1003/lanterm/internal/audit"
	"github.com/brianly1003/lanterm/internal/config"
	"github.com/brianly1003/lanterm/internal/domain/events"
	"github.com/brianly1003/lanterm/internal/files"
	"github.com/brianly1003/lanterm/internal/hub"
	"github.com/brianly1003/lanterm/internal/pairing"
	"github.com/brianly1003/lanterm/internal/sandbox"
	"github.com/brianly1003/lanterm/internal/security"
	httpserver "github.com/brianly1003/lanterm/internal/server/http"
	"github.com/brianly1003/lanterm/internal/server/http/middleware"
	"github.com/brianly1003/lanterm/internal/server/websocket"
	"github.com/brianly1003/lanterm/internal/session"
	"github.com/brianly1003/lanterm/internal/terminal"
)

// auditedEvents are the event types persisted in the audit journal.
var auditedEvents = []events.EventType{
	events.EventTypeSessionCreated,
	events.EventTypeSessionTerminated,
	events.EventTypeSessionReaped,
	events.EventTypeSessionEnded,
	events.EventTypeFileOperation,
	events.EventTypeArchiveExtracted,
	events.EventTypeGitOperation,
	events.EventTypeCommandExecuted,
}

// App is the main application struct that orchestrates all components.
type App struct {
	cfg     *config.Config
	version string

	// Core components
	hub         *hub.Hub
	sandbox     *sandbox.Sandbox
	sessions    *session.Manager
	runner      *terminal.Runner
	journal     *audit.Journal
	origins     *security.OriginChecker
	execLimiter *middleware.RateLimiter
	wsHandler   *websocket.Handler
	httpServer  *httpserver.Server
	qrGenerator *pairing.QRGenerator

	spawn terminal.Spawner
	out   io.Writer

	// Instance info
	instanceID string
	startTime  time.Time
	ready      chan struct{}

	// Lifecycle
	mu      sync.RWMutex
	running bool
}

// New creates a new App instance.
func New(cfg *config.Config, version string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return &App{
		cfg:        cfg,
		version:    version,
		hub:        hub.New(0),
		spawn:      terminal.StartShell,
		out:        os.Stdout,
		instanceID: uuid.New().String(),
		ready:      make(chan struct{}),
	}, nil
}

// Start starts the application and blocks until ctx is cancelled or the
// HTTP server fails.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("application is already running")
	}
	a.running = true
	a.startTime = time.Now()
	a.mu.Unlock()

	if err := a.build(); err != nil {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
		return err
	}

	// Start event hub
	if err := a.hub.Start(); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}
	a.hub.Subscribe(hub.NewLogSubscriber("internal-logger", log.Logger))
	if a.journal != nil {
		a.hub.Subscribe(hub.NewFilteredSubscriber(a.journal, auditedEvents...))
	}

	if err := a.sessions.Start(); err != nil {
		return fmt.Errorf("failed to start session manager: %w", err)
	}

	if err := a.httpServer.Start(); err != nil {
		_ = a.sessions.Stop()
		_ = a.hub.Stop()
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	log.Info().
		Str("instance_id", a.instanceID).
		Str("root_dir", a.sandbox.Root()).
		Str("version", a.version).
		Msg("lanterm started")

	a.printConnectionInfo()
	close(a.ready)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.httpServer.Wait(); err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})
	return g.Wait()
}

// build creates every component from the current configuration.
func (a *App) build() error {
	cfg := a.cfg

	sb, err := sandbox.New(cfg.Files.RootDir)
	if err != nil {
		return fmt.Errorf("invalid root directory: %w", err)
	}
	a.sandbox = sb

	store := files.NewStore(sb, cfg.Files.MaxTextSize)
	inspector := archive.NewInspector(sb, cfg.Files.MaxArchiveEntries, cfg.Files.MaxExtractBytes)
	a.runner = terminal.NewRunner(sb, cfg.Exec.AllowedCommands, cfg.Exec.Timeout)
	workflow := git.NewWorkflow(sb, cfg.Git.Command, cfg.Git.Timeout, a.hub)

	a.sessions = session.NewManager(sb, a.spawn, a.hub, newSessionLogger(cfg.Logging.Level), session.Options{
		Shell:          cfg.Terminal.Shell,
		MaxBufferChars: cfg.Terminal.MaxBufferChars,
		FrameChars:     cfg.Terminal.FrameChars,
		IdleTimeout:    cfg.Terminal.IdleTimeout,
		ReapInterval:   cfg.Terminal.ReapInterval,
	})

	if cfg.Audit.Enabled {
		journal, err := audit.Open(cfg.Audit.Path, cfg.Audit.MaxRecords)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Audit.Path).Msg("failed to open audit journal, continuing without it")
		} else {
			a.journal = journal
		}
	}

	a.origins = security.NewOriginChecker(cfg.Server.AllowedOrigins)
	if cfg.Exec.RatePerMinute > 0 {
		a.execLimiter = middleware.NewRateLimiter(
			middleware.WithMaxRequests(cfg.Exec.RatePerMinute),
			middleware.WithBurst(cfg.Exec.Burst),
			middleware.WithWindow(time.Minute),
		)
	}

	a.qrGenerator = pairing.NewQRGenerator(cfg.Server.Host, cfg.Server.Port)
	if cfg.Server.ExternalURL != "" {
		a.qrGenerator.SetExternalURL(cfg.Server.ExternalURL)
		log.Info().Str("external_url", cfg.Server.ExternalURL).Msg("using external URL for QR code")
	}

	a.wsHandler = websocket.NewHandler(a.sessions, a.origins)

	deps := httpserver.Deps{
		Files:       store,
		Archives:    inspector,
		Sessions:    a.sessions,
		Git:         workflow,
		Runner:      a.runner,
		QR:          a.qrGenerator,
		Publisher:   a.hub,
		Origins:     a.origins,
		ExecLimiter: a.execLimiter,
		Journal:     a.journal,
	}
	a.httpServer = httpserver.New(cfg.Server.Host, cfg.Server.Port, deps)
	a.httpServer.SetUploadLimit(cfg.Files.MaxUploadSize)
	a.httpServer.SetStreamUploadLimit(cfg.Files.MaxStreamUpload)
	a.httpServer.SetWebSocketHandler(a.wsHandler)
	return nil
}

// ApplyConfig applies the settings that can change without a restart.
// It is registered with the config loader's OnChange.
func (a *App) ApplyConfig(old, updated *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running || a.httpServer == nil {
		return
	}

	if !slices.Equal(old.Exec.AllowedCommands, updated.Exec.AllowedCommands) {
		a.runner.SetAllowed(updated.Exec.AllowedCommands)
		log.Info().Strs("allowed_commands", updated.Exec.AllowedCommands).Msg("command allow-list updated")
	}
	if old.Files.MaxUploadSize != updated.Files.MaxUploadSize {
		a.httpServer.SetUploadLimit(updated.Files.MaxUploadSize)
		log.Info().Int64("max_upload_size", updated.Files.MaxUploadSize).Msg("upload limit updated")
	}
	if old.Files.MaxStreamUpload != updated.Files.MaxStreamUpload {
		a.httpServer.SetStreamUploadLimit(updated.Files.MaxStreamUpload)
		log.Info().Int64("max_stream_upload_size", updated.Files.MaxStreamUpload).Msg("stream upload limit updated")
	}
	if a.execLimiter != nil && (old.Exec.RatePerMinute != updated.Exec.RatePerMinute || old.Exec.Burst != updated.Exec.Burst) {
		a.execLimiter.SetLimit(updated.Exec.RatePerMinute, updated.Exec.Burst)
		log.Info().Int("rate_per_minute", updated.Exec.RatePerMinute).Msg("exec rate limit updated")
	}
	if !slices.Equal(old.Server.AllowedOrigins, updated.Server.AllowedOrigins) {
		a.origins.SetAllowed(updated.Server.AllowedOrigins)
		log.Info().Strs("allowed_origins", updated.Server.AllowedOrigins).Msg("allowed origins updated")
	}
	a.cfg = updated
}

// shutdown performs graceful shutdown of all components.
func (a *App) shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.running = false

	log.Info().Msg("shutting down...")

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("error stopping HTTP server")
		firstErr = err
	}
	a.wsHandler.Close()

	if err := a.sessions.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping session manager")
	}
	if a.execLimiter != nil {
		a.execLimiter.Close()
	}

	// Stopping the hub flushes queued events and closes the journal.
	if err := a.hub.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping event hub")
	}
	return firstErr
}

// printConnectionInfo prints the connect URL and QR code.
func (a *App) printConnectionInfo() {
	a.qrGenerator.Print(a.out, a.cfg.Pairing.ShowQR)
}

// Ready returns a channel that's closed once the HTTP server is listening.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// Addr returns the address the HTTP server is bound to.
func (a *App) Addr() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.httpServer == nil {
		return ""
	}
	return a.httpServer.Addr()
}

// GetHub returns the event hub.
func (a *App) GetHub() *hub.Hub {
	return a.hub
}

// GetConfig returns the active configuration.
func (a *App) GetConfig() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// InstanceID returns the identifier of this daemon run.
func (a *App) InstanceID() string {
	return a.instanceID
}

// UptimeSeconds returns the uptime in seconds.
func (a *App) UptimeSeconds() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.startTime.IsZero() {
		return 0
	}
	return int64(time.Since(a.startTime).Seconds())
}

// newSessionLogger builds the slog logger used by the session manager.
func newSessionLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "trace", "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      l,
		TimeFormat: time.Kitchen,
	}))
}
