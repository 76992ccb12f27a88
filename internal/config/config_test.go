package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	loader := NewLoaderWith(viper.New())
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "models/plate-detector.onnx", cfg.Pipeline.Detector.ModelPath)
	assert.InDelta(t, 0.4, cfg.Pipeline.Detector.ConfThreshold, 1e-12)
	assert.Equal(t, 640, cfg.Pipeline.Detector.InputSize)
	assert.Equal(t, "eng", cfg.Pipeline.Recognizer.Language)
	assert.Equal(t, 20, cfg.Pipeline.PadPixels)
	assert.Equal(t, 10, cfg.Video.NumFrames)
	assert.InDelta(t, 2.0, cfg.Video.WidthScale, 1e-12)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "*", cfg.Server.CORSOrigin)
}

func TestLoadWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "platewarp.yaml")
	content := `log_level: debug
pipeline:
  pad_pixels: 30
  recognizer:
    language: deu
video:
  num_frames: 25
server:
  port: 9999
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loader := NewLoaderWith(viper.New())
	cfg, err := loader.LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30, cfg.Pipeline.PadPixels)
	assert.Equal(t, "deu", cfg.Pipeline.Recognizer.Language)
	assert.Equal(t, 25, cfg.Video.NumFrames)
	assert.Equal(t, 9999, cfg.Server.Port)
	// Untouched keys keep their defaults.
	assert.Equal(t, 640, cfg.Pipeline.Detector.InputSize)
}

func TestLoadWithFileInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "platewarp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0o600))

	loader := NewLoaderWith(viper.New())
	_, err := loader.LoadWithFile(path)
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PLATEWARP_LOG_LEVEL", "warn")
	t.Setenv("PLATEWARP_VIDEO_NUM_FRAMES", "7")

	loader := NewLoaderWith(viper.New())
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7, cfg.Video.NumFrames)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		loader := NewLoaderWith(viper.New())
		cfg, err := loader.Load()
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Pipeline.Detector.ConfThreshold = 1.5
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Pipeline.PadPixels = -1
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Video.NumFrames = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Video.WidthScale = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.Port = 70000
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.MaxUploadMB = 0
	require.Error(t, cfg.Validate())
}

func TestDumpRoundTrips(t *testing.T) {
	loader := NewLoaderWith(viper.New())
	cfg, err := loader.Load()
	require.NoError(t, err)
	cfg.Video.NumFrames = 42

	data, err := cfg.Dump()
	require.NoError(t, err)
	assert.Contains(t, string(data), "num_frames: 42")

	// The dump is itself a loadable config file.
	path := filepath.Join(t.TempDir(), "platewarp.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	reloaded, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 42, reloaded.Video.NumFrames)
}

func TestToPipelineConfig(t *testing.T) {
	loader := NewLoaderWith(viper.New())
	cfg, err := loader.Load()
	require.NoError(t, err)

	cfg.Pipeline.Detector.ModelPath = "/tmp/model.onnx"
	cfg.Pipeline.Recognizer.Language = "deu"
	cfg.Pipeline.PadPixels = 25

	pc := cfg.ToPipelineConfig()
	assert.Equal(t, "/tmp/model.onnx", pc.Detector.ModelPath)
	assert.Equal(t, "deu", pc.Engine.Language)
	assert.Equal(t, 25, pc.Rectify.PadPixels)

	dc := cfg.ToDetectorConfig()
	assert.Equal(t, "/tmp/model.onnx", dc.ModelPath)

	ec := cfg.EngineConfig()
	assert.Equal(t, "deu", ec.Language)
	assert.NotEmpty(t, ec.Whitelist)
}
