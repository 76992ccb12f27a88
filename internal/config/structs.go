package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/platewarp/internal/detect"
	"github.com/MeKo-Tech/platewarp/internal/ocr"
	"github.com/MeKo-Tech/platewarp/internal/pipeline"
)

// Config represents the complete configuration for the platewarp
// application. It supports loading from configuration files, environment
// variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Processing pipeline
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Video sweep defaults
	Video VideoConfig `mapstructure:"video" yaml:"video" json:"video"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// PipelineConfig contains plate processing settings.
type PipelineConfig struct {
	Detector   DetectorConfig   `mapstructure:"detector" yaml:"detector" json:"detector"`
	Recognizer RecognizerConfig `mapstructure:"recognizer" yaml:"recognizer" json:"recognizer"`
	PadPixels  int              `mapstructure:"pad_pixels" yaml:"pad_pixels" json:"pad_pixels"`
}

// DetectorConfig contains plate detection settings.
type DetectorConfig struct {
	ModelPath     string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	ConfThreshold float64 `mapstructure:"conf_threshold" yaml:"conf_threshold" json:"conf_threshold"`
	InputSize     int     `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	NumThreads    int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// RecognizerConfig contains text recognition settings.
type RecognizerConfig struct {
	Language  string `mapstructure:"language" yaml:"language" json:"language"`
	Whitelist string `mapstructure:"whitelist" yaml:"whitelist" json:"whitelist"`
}

// VideoConfig contains video sweep defaults.
type VideoConfig struct {
	NumFrames  int     `mapstructure:"num_frames" yaml:"num_frames" json:"num_frames"`
	WidthScale float64 `mapstructure:"width_scale" yaml:"width_scale" json:"width_scale"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// Dump renders the effective configuration as YAML, in the same shape a
// config file would use.
func (c *Config) Dump() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.Pipeline.Detector.ConfThreshold < 0 || c.Pipeline.Detector.ConfThreshold > 1 {
		return fmt.Errorf("detector confidence threshold must be 0..1, got %g",
			c.Pipeline.Detector.ConfThreshold)
	}
	if c.Pipeline.PadPixels < 0 {
		return fmt.Errorf("pad pixels must not be negative, got %d", c.Pipeline.PadPixels)
	}
	if c.Video.NumFrames < 1 {
		return fmt.Errorf("video num_frames must be at least 1, got %d", c.Video.NumFrames)
	}
	if c.Video.WidthScale <= 0 {
		return fmt.Errorf("video width_scale must be positive, got %g", c.Video.WidthScale)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 0..65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server max_upload_mb must be at least 1, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

// PipelineConfig assembles the component config for pipeline construction.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if c.Pipeline.Detector.ModelPath != "" {
		cfg.Detector.ModelPath = c.Pipeline.Detector.ModelPath
	}
	if c.Pipeline.Detector.ConfThreshold > 0 {
		cfg.Detector.ConfThreshold = float32(c.Pipeline.Detector.ConfThreshold)
	}
	if c.Pipeline.Detector.InputSize > 0 {
		cfg.Detector.InputSize = c.Pipeline.Detector.InputSize
	}
	cfg.Detector.NumThreads = c.Pipeline.Detector.NumThreads
	if c.Pipeline.Recognizer.Language != "" {
		cfg.Engine.Language = c.Pipeline.Recognizer.Language
	}
	if c.Pipeline.Recognizer.Whitelist != "" {
		cfg.Engine.Whitelist = c.Pipeline.Recognizer.Whitelist
	}
	if c.Pipeline.PadPixels > 0 {
		cfg.Rectify.PadPixels = c.Pipeline.PadPixels
	}
	return cfg
}

// EngineConfig returns the recognition engine configuration.
func (c *Config) EngineConfig() ocr.EngineConfig {
	cfg := ocr.DefaultEngineConfig()
	if c.Pipeline.Recognizer.Language != "" {
		cfg.Language = c.Pipeline.Recognizer.Language
	}
	if c.Pipeline.Recognizer.Whitelist != "" {
		cfg.Whitelist = c.Pipeline.Recognizer.Whitelist
	}
	return cfg
}

// DetectorConfig returns the detector configuration.
func (c *Config) ToDetectorConfig() detect.Config {
	cfg := detect.DefaultConfig()
	if c.Pipeline.Detector.ModelPath != "" {
		cfg.ModelPath = c.Pipeline.Detector.ModelPath
	}
	if c.Pipeline.Detector.ConfThreshold > 0 {
		cfg.ConfThreshold = float32(c.Pipeline.Detector.ConfThreshold)
	}
	if c.Pipeline.Detector.InputSize > 0 {
		cfg.InputSize = c.Pipeline.Detector.InputSize
	}
	cfg.NumThreads = c.Pipeline.Detector.NumThreads
	return cfg
}
