// Package config holds all groovebot configuration: a YAML file for tunables
// and the environment for secrets. The Discord token and Spotify credentials
// are never read from files under version control; they come from the
// environment (or a .env file loaded by the process manager).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all groovebot configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Discord gateway configuration
	Discord DiscordConfig `yaml:"discord"`

	// Spotify integration
	Spotify SpotifyConfig `yaml:"spotify"`

	// Player behavior
	Player PlayerConfig `yaml:"player"`

	// Track resolution (yt-dlp / ffmpeg)
	Resolver ResolverConfig `yaml:"resolver"`

	// Persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DiscordConfig configures the gateway session.
// The token is environment-only and never serialized to YAML.
type DiscordConfig struct {
	Token string `yaml:"-" env:"DISCORD_TOKEN"`

	// Optional: register commands to a single guild for instant propagation
	// during development. Empty means global registration.
	DevGuildID string `yaml:"dev_guild_id" env:"DISCORD_DEV_GUILD_ID"`
}

// SpotifyConfig configures the Spotify Web API client.
// Credentials are environment-only.
type SpotifyConfig struct {
	ClientID     string `yaml:"-" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `yaml:"-" env:"SPOTIFY_CLIENT_SECRET"`

	// Delay between enqueuing playlist tracks, to stay under rate limits.
	TrackDelay string `yaml:"track_delay"`
}

// PlayerConfig configures per-guild playback behavior.
type PlayerConfig struct {
	// Default volume percent for new guilds (0-200).
	DefaultVolume int `yaml:"default_volume"`

	// How long the player loop waits for a next song before disconnecting.
	IdleTimeout string `yaml:"idle_timeout"`

	// Inactivity watchdog interval; disconnects when idle and connected.
	WatchdogInterval string `yaml:"watchdog_interval"`

	// Queue embed page size.
	ItemsPerPage int `yaml:"items_per_page"`

	// Opus encode bitrate in kb/s.
	Bitrate int `yaml:"bitrate"`

	// Votes required for a non-requester skip.
	SkipThreshold int `yaml:"skip_threshold"`
}

// ResolverConfig configures the yt-dlp/ffmpeg pipeline.
type ResolverConfig struct {
	YTDLPPath  string `yaml:"ytdlp_path"`
	FFmpegPath string `yaml:"ffmpeg_path"`

	// Timeout for one yt-dlp invocation.
	Timeout string `yaml:"timeout"`

	// Extra audio filter applied at the fetch stage.
	AudioFilter string `yaml:"audio_filter"`
}

// StoreConfig configures SQLite persistence.
type StoreConfig struct {
	// Data directory; the database and logs live under it.
	DataDir string `yaml:"data_dir" env:"GROOVEBOT_DATA_DIR"`

	DatabaseFile string `yaml:"database_file"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "groovebot",
		Version: "2.0.0",

		Spotify: SpotifyConfig{
			TrackDelay: "15s",
		},

		Player: PlayerConfig{
			DefaultVolume:    30,
			IdleTimeout:      "5m",
			WatchdogInterval: "30m",
			ItemsPerPage:     10,
			Bitrate:          96,
			SkipThreshold:    3,
		},

		Resolver: ResolverConfig{
			YTDLPPath:  "yt-dlp",
			FFmpegPath: "ffmpeg",
			Timeout:    "30s",
			// Mild bass boost carried over from the old bot.
			AudioFilter: "equalizer=f=40:width_type=h:width=30:g=6,equalizer=f=80:width_type=h:width=30:g=4",
		},

		Store: StoreConfig{
			DataDir:      "data",
			DatabaseFile: "groovebot.db",
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file, then applies environment
// overrides. A missing file yields defaults, matching how the bot runs in
// containers where everything comes from the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if envErr := cfg.applyEnvOverrides(); envErr != nil {
				return nil, envErr
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file. Secrets are excluded by the
// yaml:"-" tags, so a saved config is always safe to commit.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides via struct tags.
func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// DatabasePath returns the full path to the SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Store.DataDir, c.Store.DatabaseFile)
}

// GetIdleTimeout returns the player idle timeout as a duration.
func (c *Config) GetIdleTimeout() time.Duration {
	d, err := time.ParseDuration(c.Player.IdleTimeout)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// GetWatchdogInterval returns the inactivity watchdog interval as a duration.
func (c *Config) GetWatchdogInterval() time.Duration {
	d, err := time.ParseDuration(c.Player.WatchdogInterval)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// GetResolverTimeout returns the yt-dlp invocation timeout as a duration.
func (c *Config) GetResolverTimeout() time.Duration {
	d, err := time.ParseDuration(c.Resolver.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetTrackDelay returns the playlist pacing delay as a duration.
func (c *Config) GetTrackDelay() time.Duration {
	d, err := time.ParseDuration(c.Spotify.TrackDelay)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("Discord token not configured (set DISCORD_TOKEN)")
	}
	if c.Player.DefaultVolume < 0 || c.Player.DefaultVolume > 200 {
		return fmt.Errorf("default_volume must be within 0-200, got %d", c.Player.DefaultVolume)
	}
	if c.Player.ItemsPerPage <= 0 {
		return fmt.Errorf("items_per_page must be positive, got %d", c.Player.ItemsPerPage)
	}
	return nil
}

// SpotifyEnabled reports whether Spotify credentials are configured.
// Without them /play rejects Spotify playlist URLs with a clear message.
func (c *Config) SpotifyEnabled() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}
