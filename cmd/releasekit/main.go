// Command releasekit is the terminal dashboard for a release-session
// backend. Configuration comes from RELEASEKIT_* environment variables;
// an OAuth redirect URL (with its token fragment) may be passed as the
// only argument to complete a sign-in started in the browser.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/releasekit/releasekit-go/internal/tui"
	"github.com/releasekit/releasekit-go/pkg/auth"
	"github.com/releasekit/releasekit-go/pkg/backend"
	"github.com/releasekit/releasekit-go/pkg/config"
	"github.com/releasekit/releasekit-go/pkg/syncstore"
	"github.com/releasekit/releasekit-go/pkg/telemetry"
	"github.com/releasekit/releasekit-go/pkg/transport"
)

const version = "0.3.0"

func main() {
	loginURL := flag.String("login", "", "redirect URL from the browser sign-in flow")
	printSignIn := flag.Bool("sign-in-url", false, "print the sign-in URL and exit")
	flag.Parse()

	if err := run(*loginURL, *printSignIn); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(loginURL string, printSignIn bool) error {
	cfg := config.FromEnv()

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// The TUI owns stdout, so logs go to a file in the data dir.
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "releasekit.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(logFile).Level(level).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm, err := telemetry.NewManager(ctx, telemetry.Config{
		ServiceName:    "releasekit",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tm.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	tokens, err := auth.NewTokenStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("init token store: %w", err)
	}

	tc, err := transport.New(cfg.APIBaseURL,
		transport.WithTokenSource(tokens),
		transport.WithLogger(logger),
		transport.WithTelemetry(tm),
	)
	if err != nil {
		return err
	}
	api := backend.New(tc)

	if printSignIn {
		authMgr := auth.NewManager(tokens, auth.NewVerifyCache(cfg.DataDir), api)
		u, err := authMgr.SignInURL("/")
		if err != nil {
			return err
		}
		fmt.Println(u)
		return nil
	}

	authMgr := auth.NewManager(tokens, auth.NewVerifyCache(cfg.DataDir), api,
		auth.WithLogger(logger),
		auth.WithDisabledAccessProbe(cfg.AuthProbe),
	)

	var redirect auth.Redirect
	if loginURL != "" {
		var cleaned string
		redirect, cleaned = auth.ConsumeFragment(loginURL)
		logger.Info().Str("returnTo", cleaned).Msg("consumed sign-in redirect")
	}
	authMgr.Bootstrap(ctx, redirect)

	// Picks up credential edits made by other processes.
	go func() {
		if err := authMgr.Watch(ctx); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("credentials watcher stopped")
		}
	}()

	store := syncstore.New(api,
		syncstore.WithLogger(logger),
		syncstore.WithTelemetry(tm),
	)
	go store.RunPoller(ctx, cfg.PollInterval)

	sub, unsubscribe := store.Subscribe()
	defer unsubscribe()

	logger.Info().Str("version", version).Str("api", cfg.APIBaseURL).Msg("starting dashboard")
	p := tea.NewProgram(tui.New(store, authMgr, sub), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
