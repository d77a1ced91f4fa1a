package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds everything the bot reads from the environment.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,notEmpty"`
	DiscordAppID string `env:"DISCORD_APP_ID,notEmpty"`

	// GuildID scopes slash command registration to one guild for fast
	// iteration. Empty registers commands globally.
	GuildID string `env:"DISCORD_GUILD_ID"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Subprocess binaries for the stream pipeline.
	DownloaderPath string `env:"DOWNLOADER_PATH" envDefault:"yt-dlp"`
	TranscoderPath string `env:"TRANSCODER_PATH" envDefault:"ffmpeg"`

	// Playback starts once this much decoded audio is buffered, or at
	// end of stream for shorter tracks.
	PrebufferBytes   int64         `env:"PREBUFFER_BYTES" envDefault:"5242880"`
	PrebufferTimeout time.Duration `env:"PREBUFFER_TIMEOUT" envDefault:"30s"`

	HistoryDBPath string `env:"HISTORY_DB_PATH" envDefault:"data/history.db"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file found, using environment variables only")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PrebufferBytes <= 0 {
		return fmt.Errorf("PREBUFFER_BYTES must be positive, got %d", c.PrebufferBytes)
	}
	if c.PrebufferTimeout <= 0 {
		return fmt.Errorf("PREBUFFER_TIMEOUT must be positive, got %s", c.PrebufferTimeout)
	}
	return nil
}
