// Package pipeline orchestrates the single-plate processing path:
// corner ordering, perspective rectification, post-warp transforms,
// recognition and the diagnostic enhancement view.
package pipeline

import (
	"errors"

	"github.com/MeKo-Tech/platewarp/internal/detect"
	"github.com/MeKo-Tech/platewarp/internal/ocr"
	"github.com/MeKo-Tech/platewarp/internal/rectify"
)

// Config holds configuration for the pipeline and its components.
type Config struct {
	Rectify  rectify.Config
	Engine   ocr.EngineConfig
	Detector detect.Config
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Rectify:  rectify.DefaultConfig(),
		Engine:   ocr.DefaultEngineConfig(),
		Detector: detect.DefaultConfig(),
	}
}

// Pipeline owns the recognition engine and detector handles and runs the
// single-plate processing sequence. The engine is shared process-wide and
// serializes its own calls; the pipeline itself processes one request at a
// time.
type Pipeline struct {
	cfg      Config
	engine   ocr.Engine
	detector detect.Detector
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg      Config
	engine   ocr.Engine
	detector detect.Detector
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole pipeline configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithDetectorModelPath overrides the detector model path.
func (b *Builder) WithDetectorModelPath(path string) *Builder {
	if path != "" {
		b.cfg.Detector.ModelPath = path
	}
	return b
}

// WithLanguage sets the recognition language.
func (b *Builder) WithLanguage(lang string) *Builder {
	if lang != "" {
		b.cfg.Engine.Language = lang
	}
	return b
}

// WithEngine injects a recognition engine, replacing the default Tesseract
// implementation. Used by callers that bring their own recognizer and by
// tests.
func (b *Builder) WithEngine(e ocr.Engine) *Builder {
	b.engine = e
	return b
}

// WithDetector injects a corner-point detector.
func (b *Builder) WithDetector(d detect.Detector) *Builder {
	b.detector = d
	return b
}

// Build validates the configuration and assembles the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.cfg.Rectify.Validate(); err != nil {
		return nil, err
	}
	engine := b.engine
	if engine == nil {
		engine = ocr.NewTesseractEngine(b.cfg.Engine)
	}
	detector := b.detector
	if detector == nil {
		detector = detect.NewONNXDetector(b.cfg.Detector)
	}
	return &Pipeline{cfg: b.cfg, engine: engine, detector: detector}, nil
}

// Detector exposes the corner-point detector for the video path.
func (p *Pipeline) Detector() detect.Detector { return p.detector }

// Close releases engine and detector resources.
func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.engine != nil {
		if err := p.engine.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.detector != nil {
		if err := p.detector.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
