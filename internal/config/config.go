package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/petems/audioviz/internal/audio"
	"github.com/petems/audioviz/internal/hotkey"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. AUDIOVIZ_AUDIO_BACKEND.
const EnvPrefix = "AUDIOVIZ"

type Config struct {
	LogLevel   string              `mapstructure:"log_level"`
	LogConsole bool                `mapstructure:"log_console"`
	FrameRate  int                 `mapstructure:"frame_rate"` // 0 = unbounded
	PresetPath string              `mapstructure:"preset_path"`
	Audio      AudioConfig         `mapstructure:"audio"`
	Keys       map[string][]string `mapstructure:"keys"`
	Tray       TrayConfig          `mapstructure:"tray"`
	Metrics    MetricsConfig       `mapstructure:"metrics"`
}

type AudioConfig struct {
	Backend         string `mapstructure:"backend"` // "portaudio", "malgo" or "synthetic"
	DeviceID        string `mapstructure:"device_id"`
	FramesPerBuffer int    `mapstructure:"frames_per_buffer"`
	BufferMS        int    `mapstructure:"buffer_ms"`
}

type TrayConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"` // e.g. "127.0.0.1:9464"; empty disables
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"log-level":      "log_level",
	"fps":            "frame_rate",
	"preset-path":    "preset_path",
	"backend":        "audio.backend",
	"device":         "audio.device_id",
	"tray":           "tray.enabled",
	"metrics-listen": "metrics.listen",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_console", false)
	v.SetDefault("frame_rate", 60)
	v.SetDefault("preset_path", "/usr/local/share/projectM/presets")
	v.SetDefault("audio.backend", "portaudio")
	v.SetDefault("audio.device_id", "")
	v.SetDefault("audio.frames_per_buffer", 512)
	v.SetDefault("audio.buffer_ms", 500)
	v.SetDefault("tray.enabled", false)
	v.SetDefault("metrics.listen", "")
}

// Load resolves the config from defaults, the config file, AUDIOVIZ_*
// environment variables and flags, in increasing priority. An empty path
// searches the platform config directory and tolerates a missing file.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(configDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and key bindings.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.FrameRate < 0 || c.FrameRate > 1000 {
		return fmt.Errorf("frame_rate must be between 0 and 1000, got %d", c.FrameRate)
	}
	switch c.Audio.Backend {
	case "portaudio", "malgo", "synthetic":
	default:
		return fmt.Errorf("unknown audio.backend %q", c.Audio.Backend)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive")
	}
	if c.Audio.BufferMS <= 0 {
		return fmt.Errorf("audio.buffer_ms must be positive")
	}
	if _, err := c.Keymap(); err != nil {
		return fmt.Errorf("invalid keys: %w", err)
	}
	return nil
}

// Keymap builds the hotkey map, defaults filled in for unset actions.
func (c *Config) Keymap() (*hotkey.Keymap, error) {
	return hotkey.FromConfig(c.Keys)
}

// Backend returns the capture backend settings.
func (c *Config) Backend() audio.BackendConfig {
	return audio.BackendConfig{
		Name:            c.Audio.Backend,
		FramesPerBuffer: c.Audio.FramesPerBuffer,
		BufferFrames:    audio.DefaultFormat.SampleRate * c.Audio.BufferMS / 1000,
	}
}

// Path returns the config file looked up when no path is given.
func Path() string {
	return filepath.Join(configDir(), "config.yaml")
}

// configDir returns the platform-specific config directory
func configDir() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "audioviz")
}
