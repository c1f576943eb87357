// Package main provides the bot entry point.
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
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/noisebox/internal/api/connect"
	"github.com/osa030/noisebox/internal/app/catalog"
	"github.com/osa030/noisebox/internal/app/notification"
	"github.com/osa030/noisebox/internal/app/playback"
	"github.com/osa030/noisebox/internal/app/trigger"
	"github.com/osa030/noisebox/internal/app/voicenoise"
	"github.com/osa030/noisebox/internal/infra/config"
	"github.com/osa030/noisebox/internal/infra/discord"
	"github.com/osa030/noisebox/internal/infra/logger"
)

const shutdownTimeout = 10 * time.Second

var (
	app        = kingpin.New("noisebox", "Discord voice noise bot")
	configPath = app.Flag("config", "Path to config file").Default("config/bot.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-triggers command
	listTriggersCmd = app.Command("list-triggers", "List available trigger checks and exit")

	// list-sounds command
	listSoundsCmd = app.Command("list-sounds", "Load the configured sounds, list them and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the bot (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listTriggersCmd.FullCommand() {
		printTriggers()
		return
	}

	loggerConfig := logger.Config{Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.File = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == listSoundsCmd.FullCommand() {
		if err := printSounds(cfg); err != nil {
			zlog.Error().Msgf("Failed to load sounds: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Bot error: %v", err)
		os.Exit(1)
	}
}

// run executes the main bot logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain, err := trigger.Build(triggerSettings(cfg))
	if err != nil {
		return errors.Wrap(err, "invalid trigger config")
	}

	sounds, err := catalog.Load(cfg.Library.Dir, catalogEntries(cfg))
	if err != nil {
		return errors.Wrap(err, "failed to load sounds")
	}

	discordConfig := discord.Config{
		Token:        cfg.Discord.Token,
		ReadyTimeout: cfg.Discord.ReadyTimeout(),
		FrameTimeout: cfg.Discord.FrameTimeout(),
	}
	bot, err := discord.New(discordConfig)
	if err != nil {
		return errors.Wrap(err, "failed to create Discord bot")
	}

	provider := discord.NewVoiceProvider(bot.Session(), discordConfig)
	playbackMgr := playback.NewManager(provider, playback.Config{
		JoinTimeout:  cfg.Playback.JoinTimeout(),
		PlayTimeout:  cfg.Playback.PlayTimeout(),
		LeaveTimeout: cfg.Playback.LeaveTimeout(),
		EventBuffer:  cfg.Playback.EventBuffer,
	})

	notifier := notification.NewManager()
	go notifier.Pump(ctx, playbackMgr.Events())

	feature := voicenoise.NewFeature(
		bot.UserID,
		chain,
		sounds,
		discord.NewPresence(bot.Session().State),
		playbackMgr,
	)
	zlog.Info().Msgf("Trigger checks: %s", strings.Join(feature.CheckNames(), " -> "))

	if cfg.Library.Watch {
		go func() {
			if err := catalog.Watch(ctx, sounds); err != nil {
				zlog.Error().Msgf("Sound watcher stopped: %v", err)
			}
		}()
	}

	// Admin server is optional
	var server *http.Server
	serverErrCh := make(chan error, 1)
	if cfg.Admin.Enabled {
		server = newAdminServer(cfg, playbackMgr, sounds, notifier)
		go func() {
			zlog.Info().Msgf("Starting admin server: addr=%s", server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrCh <- err
			}
		}()
	}

	if err := bot.Open(feature); err != nil {
		return err
	}

	executeHooks(cfg.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "admin server error")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Leave voice channels while the gateway is still connected
	if err := playbackMgr.Close(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to close playback manager: %v", err)
	}
	if err := bot.Close(); err != nil {
		zlog.Error().Msgf("Failed to close Discord session: %v", err)
	}

	// Ends open WatchEvents streams so Shutdown does not wait for them
	notifier.Close()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown admin server: %v", err)
		}
	}
	cancel()

	zlog.Info().Msg("Bot stopped")

	executeHooks(cfg.Hooks.OnStopped, "on_stopped")

	return runErr
}

func newAdminServer(cfg *config.Config, queues *playback.Manager, sounds *catalog.Catalog, notifier *notification.Manager) *http.Server {
	adminService := apiconnect.NewAdminService(queues, sounds, notifier)
	adminAuthInterceptor := apiconnect.NewAdminAuthInterceptor(cfg.Admin.Token)
	adminPath, adminHandler := apiconnect.NewAdminServiceHandler(
		adminService,
		connect.WithInterceptors(adminAuthInterceptor),
	)

	mux := http.NewServeMux()
	mux.Handle(adminPath, adminHandler)

	// h2c (HTTP/2 cleartext) so streaming works without TLS
	return &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func triggerSettings(cfg *config.Config) map[string]trigger.Settings {
	settings := make(map[string]trigger.Settings, len(cfg.Triggers))
	for name, t := range cfg.Triggers {
		settings[name] = trigger.Settings{Enabled: t.Enabled, Settings: t.Settings}
	}
	return settings
}

func catalogEntries(cfg *config.Config) []catalog.Entry {
	entries := make([]catalog.Entry, 0, len(cfg.Sounds))
	for _, s := range cfg.Sounds {
		entries = append(entries, catalog.Entry{ID: s.ID, File: s.File, Keywords: s.Keywords})
	}
	return entries
}

// printTriggers prints available trigger checks in evaluation order.
func printTriggers() {
	registry := trigger.GetRegistered()

	fmt.Println("Available Trigger Checks:")
	for _, name := range trigger.Order {
		factory, ok := registry[name]
		if !ok {
			continue
		}
		f := factory()
		mode := "optional"
		if trigger.IsRequired(name) {
			mode = "required"
		}
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-24s %-9s - %s [codes: %s]\n", f.Name(), mode, f.Description(), codes)
	}
}

// printSounds loads the configured sounds and prints a summary.
func printSounds(cfg *config.Config) error {
	sounds, err := catalog.Load(cfg.Library.Dir, catalogEntries(cfg))
	if err != nil {
		return err
	}

	fmt.Println("Sounds:")
	for _, s := range sounds.Sounds() {
		fmt.Printf("  %-12s %8v %9s  %s  [keywords: %s]\n",
			s.ID, s.Duration(), humanize.Bytes(s.Size()), s.File, strings.Join(s.Keywords, ", "))
	}
	return nil
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
