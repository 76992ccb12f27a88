package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "platewarp"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "PLATEWARP"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader backed by the global viper
// instance so that cobra flag bindings take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWith creates a loader over a dedicated viper instance. Used by
// tests that must not touch global state.
func NewLoaderWith(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load loads configuration from files, environment variables and defaults,
// then validates it.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")

	l.addConfigPaths()
	l.setupEnvironment()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// SetConfigFile points the loader at an explicit configuration file.
func (l *Loader) SetConfigFile(path string) {
	if path != "" {
		l.v.SetConfigFile(path)
	}
}

// LoadWithFile loads configuration from an explicit file path instead of
// the default search locations.
func (l *Loader) LoadWithFile(path string) (*Config, error) {
	l.SetConfigFile(path)
	return l.Load()
}

// GetViper exposes the backing viper instance for flag binding.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".config", "platewarp"))
	}
	l.v.AddConfigPath("/etc/platewarp")
}

func (l *Loader) setupEnvironment() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("log_level", "info")
	l.v.SetDefault("verbose", false)

	l.v.SetDefault("pipeline.detector.model_path", "models/plate-detector.onnx")
	l.v.SetDefault("pipeline.detector.conf_threshold", 0.4)
	l.v.SetDefault("pipeline.detector.input_size", 640)
	l.v.SetDefault("pipeline.detector.num_threads", 0)
	l.v.SetDefault("pipeline.recognizer.language", "eng")
	l.v.SetDefault("pipeline.recognizer.whitelist", "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	l.v.SetDefault("pipeline.pad_pixels", 20)

	l.v.SetDefault("video.num_frames", 10)
	l.v.SetDefault("video.width_scale", 2.0)

	l.v.SetDefault("server.host", "localhost")
	l.v.SetDefault("server.port", 8080)
	l.v.SetDefault("server.cors_origin", "*")
	l.v.SetDefault("server.max_upload_mb", 100)
	l.v.SetDefault("server.timeout_sec", 120)
	l.v.SetDefault("server.shutdown_timeout", 10)
}
