// Package main provides the player daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/19deck/internal/api/connect"
	"github.com/osa030/19deck/internal/app/session"
	"github.com/osa030/19deck/internal/infra/audio"
	"github.com/osa030/19deck/internal/infra/config"
	"github.com/osa030/19deck/internal/infra/library"
	"github.com/osa030/19deck/internal/infra/logger"
	"github.com/osa030/19deck/internal/infra/store"
)

var (
	app        = kingpin.New("19deck-server", "19deck music player daemon")
	configPath = app.Flag("config", "Path to config file (defaults are used when omitted)").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	addr       = app.Flag("addr", "Control API listen address").String()
	silent     = app.Flag("silent", "Keep time without producing sound").Bool()

	startCmd   = app.Command("start", "Start the player (default)").Default()
	startPaths = startCmd.Arg("paths", "Files, directories or playlists to queue and play").Strings()

	// formats command
	formatsCmd = app.Command("formats", "List playable file extensions and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == formatsCmd.FullCommand() {
		printFormats()
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Command-line flags win over the config file
	loggerConfig := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *silent {
		cfg.Audio.Silent = true
	}

	if err := run(cfg, *startPaths); err != nil {
		zlog.Error().Msgf("Server error: %+v", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath == "" {
		return config.Default(), nil
	}
	return config.Load(*configPath)
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, paths []string) error {
	ctx := context.Background()

	st, err := store.New(cfg.Persistence)
	if err != nil {
		return errors.Wrap(err, "failed to open persistence backend")
	}
	defer func() {
		if err := st.Close(); err != nil {
			zlog.Error().Msgf("Failed to close persistence backend: %v", err)
		}
	}()

	player, err := audio.New(audio.Config{
		SampleRate:       cfg.Audio.SampleRate,
		Buffer:           cfg.Audio.Buffer(),
		ProgressInterval: cfg.Playback.ProgressInterval(),
		Silent:           cfg.Audio.Silent,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create audio engine")
	}
	defer player.Close()

	resolver := library.NewResolver(cfg.Library.Extensions)
	sessionMgr := session.NewManager(cfg, player, st, resolver)
	if err := sessionMgr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start session")
	}

	if len(paths) > 0 {
		n, err := sessionMgr.ReplacePaths(ctx, paths, 0)
		if err != nil {
			zlog.Warn().Msgf("Initial queue: %v", err)
		}
		zlog.Info().Msgf("Initial queue loaded: tracks=%d", n)
	}

	// Create RPC service
	var opts []connect.HandlerOption
	if cfg.Server.Token != "" {
		opts = append(opts, connect.WithInterceptors(apiconnect.NewTokenInterceptor(cfg.Server.Token)))
	} else {
		zlog.Warn().Msg("Control token not set, the control API accepts any client")
	}
	controlPath, controlHandler := apiconnect.NewControlServiceHandler(apiconnect.NewControlService(sessionMgr), opts...)

	mux := http.NewServeMux()
	mux.Handle(controlPath, controlHandler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s audio_output=%t", cfg.Server.Addr, audio.Available && !cfg.Audio.Silent)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		serveErr = errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close the session first so watch streams end and pending writes drain
	if err := sessionMgr.Close(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to close session: %v", err)
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return serveErr
}

// printFormats prints the playable file extensions.
func printFormats() {
	fmt.Println("Playable formats:")
	fmt.Printf("  %s\n", strings.Join(audio.SupportedExtensions, " "))
	if !audio.Available {
		fmt.Println("  (built without audio output; playback is silent)")
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
