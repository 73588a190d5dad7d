package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"groovebot/internal/bot"
	"groovebot/internal/config"
	"groovebot/internal/logging"
	"groovebot/internal/store"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Logger for startup and shutdown; runtime logs go through the
	// categorized file logger.
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "groovebot",
	Short: "groovebot - Discord music bot",
	Long: `groovebot is a Discord music bot.

It streams audio from YouTube (and anything else yt-dlp can reach) into
voice channels, expands Spotify playlists into the queue, and keeps
per-server volume and loop settings in SQLite.

Secrets come from the environment only: DISCORD_TOKEN is required,
SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET enable playlist expansion.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runBot,
}

// configCmd writes the default configuration file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write the default configuration file",
	Long: `Writes the default configuration to the path given by --config
(default groovebot.yaml). Secrets are never written to the file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", configPath)
		}
		if err := config.DefaultConfig().Save(configPath); err != nil {
			return err
		}
		logger.Info("wrote default config", zap.String("path", configPath))
		return nil
	},
}

// versionCmd prints the version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the groovebot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.DefaultConfig().Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "groovebot.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runBot starts the gateway session and blocks until SIGINT/SIGTERM.
func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := logging.Initialize(cfg.Store.DataDir, logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Categories: cfg.Logging.Categories,
		Level:      cfg.Logging.Level,
	}); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer logging.CloseAll()
	logging.Boot("groovebot %s starting", cfg.Version)

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	b, err := bot.New(cfg, st)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("start bot: %w", err)
	}
	logger.Info("groovebot is running", zap.String("config", configPath))

	// Hot reload of the logging section is a convenience, not a requirement.
	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		logging.BootError("config watcher unavailable: %v", err)
		watcher = nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if watcher != nil {
		g.Go(func() error {
			if err := watcher.Start(gctx); err != nil {
				logging.BootError("config watcher: %v", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		if watcher != nil {
			watcher.Stop()
		}
		b.Stop()
		return nil
	})

	err = g.Wait()
	logging.Boot("groovebot stopped")
	return err
}
