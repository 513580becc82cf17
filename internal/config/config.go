// Package config provides the configuration structure for the
// narration-service.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Defaults applied when the TOML omits a value.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultMaxUploadMB     = 32
	DefaultSampleRate      = 24000
	DefaultGapMilliseconds = 500
	DefaultVoice           = "af_heart"
	DefaultTimeoutSeconds  = 300
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	MaxUploadMB int64  `toml:"max_upload_mb"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	UploadsDir   string `toml:"uploads_dir"`
	AudioDir     string `toml:"audio_dir"`
	DatabasePath string `toml:"database_path"`
	BaseLogsDir  string `toml:"base_logs_dir"`
}

// TTSConfig holds the connection settings for the speech service.
type TTSConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Voice          string `toml:"voice"`
}

// ExtractorConfig holds the connection settings for the optional remote
// PDF extraction service. An empty URL disables PDF support.
type ExtractorConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// NarrationConfig holds the audio assembly parameters.
type NarrationConfig struct {
	SampleRate      int `toml:"sample_rate"`
	GapMilliseconds int `toml:"gap_milliseconds"`
}

// NATSConfig holds the optional NATS-backed artifact storage settings. An
// empty URL selects filesystem storage instead.
type NATSConfig struct {
	URL          string `toml:"url"`
	SourceBucket string `toml:"source_bucket"`
	AudioBucket  string `toml:"audio_bucket"`
}

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Paths     PathsConfig     `toml:"paths"`
	TTS       TTSConfig       `toml:"tts"`
	Extractor ExtractorConfig `toml:"extractor"`
	Narration NarrationConfig `toml:"narration"`
	NATS      NATSConfig      `toml:"nats"`
}

// Load loads the configuration for the narration-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = DefaultMaxUploadMB
	}

	if c.TTS.Voice == "" {
		c.TTS.Voice = DefaultVoice
	}

	if c.TTS.TimeoutSeconds == 0 {
		c.TTS.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.Extractor.TimeoutSeconds == 0 {
		c.Extractor.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.Narration.SampleRate == 0 {
		c.Narration.SampleRate = DefaultSampleRate
	}

	if c.Narration.GapMilliseconds == 0 {
		c.Narration.GapMilliseconds = DefaultGapMilliseconds
	}
}
