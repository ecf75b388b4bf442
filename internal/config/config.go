package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sydlexius/trackyear/internal/logging"
)

// MinMusicBrainzInterval is the slowest pace MusicBrainz accepts from
// anonymous clients.
const MinMusicBrainzInterval = time.Second

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     logging.Config    `yaml:"logging"`
	Spotify     SpotifyConfig     `yaml:"spotify"`
	MusicBrainz MusicBrainzConfig `yaml:"musicbrainz"`
	LastFM      LastFMConfig      `yaml:"lastfm"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SpotifyConfig holds client credentials for the primary catalog. The URLs
// are only overridden in tests.
type SpotifyConfig struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	BaseURL      string        `yaml:"base_url"`
	TokenURL     string        `yaml:"token_url"`
	Interval     time.Duration `yaml:"interval"`
}

// MusicBrainzConfig holds MusicBrainz settings.
type MusicBrainzConfig struct {
	Enabled   bool          `yaml:"enabled"`
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Interval  time.Duration `yaml:"interval"`
}

// LastFMConfig holds Last.fm settings. The provider is skipped without a key.
type LastFMConfig struct {
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Interval time.Duration `yaml:"interval"`
}

// AnalysisConfig tunes playlist runs.
type AnalysisConfig struct {
	AbortThreshold int    `yaml:"abort_threshold"`
	Language       string `yaml:"language"`
}

// MaintenanceConfig schedules database snapshots and optimize passes while
// serving. A zero interval disables the schedule.
type MaintenanceConfig struct {
	Interval        time.Duration `yaml:"interval"`
	BackupDir       string        `yaml:"backup_dir"`
	BackupRetention int           `yaml:"backup_retention"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			BasePath: "/",
		},
		Database: DatabaseConfig{
			Path: "data/trackyear.db",
		},
		Logging: logging.DefaultConfig(),
		Spotify: SpotifyConfig{
			Interval: 100 * time.Millisecond,
		},
		MusicBrainz: MusicBrainzConfig{
			Enabled:  true,
			Interval: MinMusicBrainzInterval,
		},
		LastFM: LastFMConfig{
			Interval: 200 * time.Millisecond,
		},
		Analysis: AnalysisConfig{
			AbortThreshold: 5,
			Language:       "en",
		},
		Maintenance: MaintenanceConfig{
			Interval:        24 * time.Hour,
			BackupRetention: 7,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if it
// exists), optional dotenv files and the environment, in that order. Values
// already set in the environment win over dotenv files.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", f, err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	strs := []struct {
		key string
		dst *string
	}{
		{"TY_BASE_PATH", &c.Server.BasePath},
		{"TY_DB_PATH", &c.Database.Path},
		{"TY_LOG_LEVEL", &c.Logging.Level},
		{"TY_LOG_FORMAT", &c.Logging.Format},
		{"TY_LOG_OUTPUT", &c.Logging.Output},
		{"TY_LOG_FILE", &c.Logging.FilePath},
		{"SPOTIFY_ID", &c.Spotify.ClientID},
		{"SPOTIFY_SECRET", &c.Spotify.ClientSecret},
		{"TY_SPOTIFY_BASE_URL", &c.Spotify.BaseURL},
		{"TY_MUSICBRAINZ_URL", &c.MusicBrainz.BaseURL},
		{"TY_MUSICBRAINZ_USER_AGENT", &c.MusicBrainz.UserAgent},
		{"LASTFM_API_KEY", &c.LastFM.APIKey},
		{"TY_LASTFM_URL", &c.LastFM.BaseURL},
		{"TY_LANGUAGE", &c.Analysis.Language},
		{"TY_BACKUP_DIR", &c.Maintenance.BackupDir},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv("TY_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TY_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("TY_ABORT_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TY_ABORT_THRESHOLD: %w", err)
		}
		c.Analysis.AbortThreshold = n
	}
	if v := os.Getenv("TY_MUSICBRAINZ_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TY_MUSICBRAINZ_ENABLED: %w", err)
		}
		c.MusicBrainz.Enabled = b
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	if !logging.ValidOutput(c.Logging.Output) {
		return fmt.Errorf("invalid log output: %q", c.Logging.Output)
	}
	if c.MusicBrainz.Interval < MinMusicBrainzInterval {
		return fmt.Errorf("musicbrainz interval %s is below the required %s", c.MusicBrainz.Interval, MinMusicBrainzInterval)
	}
	if c.Maintenance.Interval < 0 {
		return fmt.Errorf("maintenance interval must not be negative, got %s", c.Maintenance.Interval)
	}
	if c.Maintenance.BackupRetention < 1 {
		return fmt.Errorf("backup retention must be at least 1, got %d", c.Maintenance.BackupRetention)
	}
	if c.Analysis.AbortThreshold < 1 {
		return fmt.Errorf("abort threshold must be at least 1, got %d", c.Analysis.AbortThreshold)
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}

// HasSpotifyCredentials reports whether client credentials are configured.
func (c *Config) HasSpotifyCredentials() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}
