package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dgnsrekt/lukija/internal/audio"
	"github.com/dgnsrekt/lukija/internal/speech"
	"github.com/dgnsrekt/lukija/internal/synth"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "LUKIJA_"

// Engine names.
const (
	EngineMock    = "mock"
	EngineGoogle  = "google"
	EngineCommand = "command"
)

// Limits for validated values.
const (
	MaxLookahead = 8
	MinRate      = 0.25
	MaxRate      = 4.0
)

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")

	engines = []string{EngineMock, EngineGoogle, EngineCommand}
)

// Config is the complete program configuration.
type Config struct {
	Engine    string        `yaml:"engine" mapstructure:"engine" env:"ENGINE"`
	Lookahead int           `yaml:"lookahead" mapstructure:"lookahead" env:"LOOKAHEAD"`
	Voice     VoiceConfig   `yaml:"voice" mapstructure:"voice" envPrefix:"VOICE_"`
	Google    GoogleConfig  `yaml:"google" mapstructure:"google" envPrefix:"GOOGLE_"`
	Command   CommandConfig `yaml:"command" mapstructure:"command" envPrefix:"COMMAND_"`
	Cache     CacheConfig   `yaml:"cache" mapstructure:"cache" envPrefix:"CACHE_"`
	Audio     AudioConfig   `yaml:"audio" mapstructure:"audio" envPrefix:"AUDIO_"`
}

// VoiceConfig selects the voice sent to the engine.
type VoiceConfig struct {
	Language string  `yaml:"language" mapstructure:"language" env:"LANGUAGE"`
	Name     string  `yaml:"name" mapstructure:"name" env:"NAME"`
	Rate     float64 `yaml:"rate" mapstructure:"rate" env:"RATE"`
}

// GoogleConfig configures the Cloud Text-to-Speech engine.
type GoogleConfig struct {
	APIKey            string `yaml:"api_key" mapstructure:"api_key" env:"API_KEY"`
	Endpoint          string `yaml:"endpoint" mapstructure:"endpoint" env:"ENDPOINT"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute" env:"REQUESTS_PER_MINUTE"`
	Timeout           string `yaml:"timeout" mapstructure:"timeout" env:"TIMEOUT"`
}

// CommandConfig configures the external program engine.
type CommandConfig struct {
	Run      string `yaml:"run" mapstructure:"run" env:"RUN"`
	MIMEType string `yaml:"mime_type" mapstructure:"mime_type" env:"MIME_TYPE"`
	Timeout  string `yaml:"timeout" mapstructure:"timeout" env:"TIMEOUT"`
}

// CacheConfig bounds the audio cache.
type CacheConfig struct {
	MaxSize  string `yaml:"max_size" mapstructure:"max_size" env:"MAX_SIZE"`
	Compress bool   `yaml:"compress" mapstructure:"compress" env:"COMPRESS"`
}

// AudioConfig is the output device format.
type AudioConfig struct {
	SampleRate int     `yaml:"sample_rate" mapstructure:"sample_rate" env:"SAMPLE_RATE"`
	Channels   int     `yaml:"channels" mapstructure:"channels" env:"CHANNELS"`
	Volume     float64 `yaml:"volume" mapstructure:"volume" env:"VOLUME"`
}

// Default returns the built-in configuration.
func Default() Config {
	voice := speech.DefaultVoiceParams()
	out := audio.DefaultConfig()
	return Config{
		Engine:    EngineMock,
		Lookahead: 2,
		Voice: VoiceConfig{
			Language: voice.Language,
			Name:     voice.Name,
			Rate:     voice.Rate,
		},
		Google: GoogleConfig{
			Endpoint:          synth.DefaultGoogleEndpoint,
			RequestsPerMinute: 300,
			Timeout:           "30s",
		},
		Command: CommandConfig{
			Run:      synth.DefaultCommand,
			MIMEType: "audio/wav",
			Timeout:  "30s",
		},
		Cache: CacheConfig{
			MaxSize: "64MB",
		},
		Audio: AudioConfig{
			SampleRate: out.SampleRate,
			Channels:   out.Channels,
			Volume:     out.Volume,
		},
	}
}

// SetDefaults registers the built-in values with v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("engine", d.Engine)
	v.SetDefault("lookahead", d.Lookahead)
	v.SetDefault("voice.language", d.Voice.Language)
	v.SetDefault("voice.name", d.Voice.Name)
	v.SetDefault("voice.rate", d.Voice.Rate)
	v.SetDefault("google.api_key", d.Google.APIKey)
	v.SetDefault("google.endpoint", d.Google.Endpoint)
	v.SetDefault("google.requests_per_minute", d.Google.RequestsPerMinute)
	v.SetDefault("google.timeout", d.Google.Timeout)
	v.SetDefault("command.run", d.Command.Run)
	v.SetDefault("command.mime_type", d.Command.MIMEType)
	v.SetDefault("command.timeout", d.Command.Timeout)
	v.SetDefault("cache.max_size", d.Cache.MaxSize)
	v.SetDefault("cache.compress", d.Cache.Compress)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.channels", d.Audio.Channels)
	v.SetDefault("audio.volume", d.Audio.Volume)
}

// Load reads the YAML file at path on top of the defaults. An empty path
// loads defaults and environment only.
func Load(path string) (*Config, error) {
	if path == "" {
		v := viper.New()
		SetDefaults(v)
		return FromViper(v)
	}

	v, err := NewFileViper(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config %s: %w", path, err)
	}
	return FromViper(v)
}

// FromViper decodes v, applies LUKIJA_* overrides and validates the result.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("unable to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if !slices.Contains(engines, c.Engine) {
		return fmt.Errorf("%w: unknown engine %q (want one of %v)", ErrInvalidConfig, c.Engine, engines)
	}
	if c.Lookahead < 0 || c.Lookahead > MaxLookahead {
		return fmt.Errorf("%w: lookahead must be between 0 and %d, got %d", ErrInvalidConfig, MaxLookahead, c.Lookahead)
	}
	if c.Voice.Rate < MinRate || c.Voice.Rate > MaxRate {
		return fmt.Errorf("%w: voice rate must be between %.2f and %.1f, got %.2f", ErrInvalidConfig, MinRate, MaxRate, c.Voice.Rate)
	}
	if c.Voice.Language == "" {
		return fmt.Errorf("%w: voice language is required", ErrInvalidConfig)
	}
	if _, err := c.CacheBytes(); err != nil {
		return err
	}
	if c.Google.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: google requests_per_minute cannot be negative", ErrInvalidConfig)
	}
	if _, err := parseTimeout("google", c.Google.Timeout); err != nil {
		return err
	}
	if _, err := parseTimeout("command", c.Command.Timeout); err != nil {
		return err
	}
	if c.Engine == EngineGoogle && c.Google.APIKey == "" {
		return fmt.Errorf("%w: google engine requires an api key (%sGOOGLE_API_KEY)", ErrInvalidConfig, EnvPrefix)
	}
	if c.Engine == EngineCommand && c.Command.Run == "" {
		return fmt.Errorf("%w: command engine requires command.run", ErrInvalidConfig)
	}
	if err := c.AudioConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// VoiceParams returns the voice as sent to the engine.
func (c *Config) VoiceParams() speech.VoiceParams {
	return speech.VoiceParams{
		Language: c.Voice.Language,
		Name:     c.Voice.Name,
		Rate:     c.Voice.Rate,
	}
}

// AudioConfig returns the output device configuration.
func (c *Config) AudioConfig() audio.Config {
	out := audio.DefaultConfig()
	out.SampleRate = c.Audio.SampleRate
	out.Channels = c.Audio.Channels
	out.Volume = c.Audio.Volume
	return out
}

// CacheBytes parses the cache size. Zero means unbounded.
func (c *Config) CacheBytes() (int64, error) {
	if c.Cache.MaxSize == "" || c.Cache.MaxSize == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.Cache.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("%w: cache max_size %q: %v", ErrInvalidConfig, c.Cache.MaxSize, err)
	}
	return int64(n), nil //nolint:gosec
}

// GoogleTimeout returns the parsed Google request timeout.
func (c *Config) GoogleTimeout() time.Duration {
	d, _ := parseTimeout("google", c.Google.Timeout)
	return d
}

// CommandTimeout returns the parsed command timeout.
func (c *Config) CommandTimeout() time.Duration {
	d, _ := parseTimeout("command", c.Command.Timeout)
	return d
}

// DefaultYAML renders the built-in configuration as a config file.
func DefaultYAML() ([]byte, error) {
	d := Default()
	b, err := yaml.Marshal(&d)
	if err != nil {
		return nil, fmt.Errorf("unable to render default config: %w", err)
	}
	header := "# lukija configuration. Environment variables prefixed with " + EnvPrefix + " override these values.\n"
	return append([]byte(header), b...), nil
}

func parseTimeout(section, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s timeout %q: %v", ErrInvalidConfig, section, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s timeout cannot be negative", ErrInvalidConfig, section)
	}
	return d, nil
}
