// Package config loads castplay settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const appName = "castplay"

// Keys shared with the command line flags.
const (
	KeyLocalInterval    = "playback.local_interval"
	KeyCastInterval     = "playback.cast_interval"
	KeyDevice           = "cast.device"
	KeyAddress          = "cast.address"
	KeyDiscoveryTimeout = "cast.discovery_timeout"
	KeyStatusInterval   = "cast.status_interval"
	KeyStudio           = "cast.studio"
	KeyFFprobe          = "media.ffprobe"
	KeyLogFile          = "log.file"
	KeyLogLevel         = "log.level"
)

type Config struct {
	Playback PlaybackConfig `mapstructure:"playback"`
	Cast     CastConfig     `mapstructure:"cast"`
	Media    MediaConfig    `mapstructure:"media"`
	Log      LogConfig      `mapstructure:"log"`
}

type PlaybackConfig struct {
	LocalInterval time.Duration `mapstructure:"local_interval"`
	CastInterval  time.Duration `mapstructure:"cast_interval"`
}

type CastConfig struct {
	Device           string        `mapstructure:"device"`
	Address          string        `mapstructure:"address"`
	DiscoveryTimeout time.Duration `mapstructure:"discovery_timeout"`
	StatusInterval   time.Duration `mapstructure:"status_interval"`
	Studio           string        `mapstructure:"studio"`
}

type MediaConfig struct {
	FFprobe string `mapstructure:"ffprobe"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// EnvKeyReplacer maps config keys to environment variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Defaults lists every key with its factory value.
func Defaults() map[string]any {
	return map[string]any{
		KeyLocalInterval:    time.Second,
		KeyCastInterval:     500 * time.Millisecond,
		KeyDevice:           "",
		KeyAddress:          "",
		KeyDiscoveryTimeout: 3 * time.Second,
		KeyStatusInterval:   time.Second,
		KeyStudio:           appName,
		KeyFFprobe:          "ffprobe",
		KeyLogFile:          defaultLogFile(),
		KeyLogLevel:         "info",
	}
}

// New returns a viper instance with defaults and environment bindings
// (CASTPLAY_CAST_DEVICE and so on) in place.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(appName)
	v.SetEnvKeyReplacer(EnvKeyReplacer)
	v.AutomaticEnv()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	return v
}

// Load reads the config file into v and decodes the result. With an empty
// path the default location is used and a missing file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(appName)
		v.SetConfigType("yaml")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Load: failed to read config due to error %w", err)
		}
	}

	return Decode(v)
}

// Decode converts the current settings of v into a Config.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("Decode: failed to decode config due to error %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects intervals the scheduler and session cannot run with.
func (c *Config) Validate() error {
	durations := []struct {
		key string
		d   time.Duration
	}{
		{KeyLocalInterval, c.Playback.LocalInterval},
		{KeyCastInterval, c.Playback.CastInterval},
		{KeyDiscoveryTimeout, c.Cast.DiscoveryTimeout},
		{KeyStatusInterval, c.Cast.StatusInterval},
	}

	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("Validate: %s must be positive, got %s", d.key, d.d)
		}
	}

	return nil
}

// Dir is the directory holding castplay.yaml.
func Dir() (string, error) {
	oscfg, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("Dir: failed to get config dir due to error %w", err)
	}

	return filepath.Join(oscfg, appName), nil
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, appName, appName+".log")
}
