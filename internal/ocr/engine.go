package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/MeKo-Tech/platewarp/internal/utils"
	"github.com/otiai10/gosseract/v2"
)

// Engine produces raw recognition results for an image. Implementations
// must be safe to call from the single processing goroutine; the Tesseract
// implementation additionally serializes calls internally so a shared
// process-wide instance stays safe.
type Engine interface {
	Recognize(img image.Image) (RawResult, error)
	Close() error
}

// EngineConfig holds configuration for the Tesseract engine.
type EngineConfig struct {
	Language  string // Tesseract language pack, e.g. "eng"
	Whitelist string // allowed characters, empty = no restriction
}

// DefaultEngineConfig returns the default recognition engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Language:  "eng",
		Whitelist: "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
	}
}

// TesseractEngine wraps a process-wide gosseract client. The client is
// constructed lazily on first use and cached for the engine lifetime; every
// invocation holds the mutex only around the Tesseract call itself, so
// CPU-only geometry work elsewhere is never blocked by recognition.
type TesseractEngine struct {
	cfg EngineConfig

	mu      sync.Mutex
	client  *gosseract.Client
	initErr error
}

// NewTesseractEngine creates an engine with the given configuration. No
// Tesseract resources are allocated until the first Recognize call.
func NewTesseractEngine(cfg EngineConfig) *TesseractEngine {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &TesseractEngine{cfg: cfg}
}

// ensureClient lazily constructs the gosseract client. Must be called with
// the mutex held. A failed initialization is sticky.
func (e *TesseractEngine) ensureClient() (*gosseract.Client, error) {
	if e.initErr != nil {
		return nil, e.initErr
	}
	if e.client != nil {
		return e.client, nil
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(e.cfg.Language); err != nil {
		_ = client.Close()
		e.initErr = fmt.Errorf("recognizer unavailable: %w", err)
		return nil, e.initErr
	}
	if e.cfg.Whitelist != "" {
		if err := client.SetWhitelist(e.cfg.Whitelist); err != nil {
			_ = client.Close()
			e.initErr = fmt.Errorf("recognizer unavailable: %w", err)
			return nil, e.initErr
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		_ = client.Close()
		e.initErr = fmt.Errorf("recognizer unavailable: %w", err)
		return nil, e.initErr
	}

	e.client = client
	return client, nil
}

// Recognize runs Tesseract on the image. The preferred output is the
// structured-batch shape built from word-level boxes; when box iteration is
// unsupported it falls back to the plain-text line shape.
func (e *TesseractEngine) Recognize(img image.Image) (RawResult, error) {
	if img == nil {
		return RawResult{}, fmt.Errorf("input image is nil")
	}

	// PNG keeps the binarization-sensitive input free of JPEG artifacts.
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return RawResult{}, fmt.Errorf("encode recognizer input: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	client, err := e.ensureClient()
	if err != nil {
		return RawResult{}, err
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return RawResult{}, fmt.Errorf("set recognizer image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err == nil && len(boxes) > 0 {
		batch := Batch{
			Texts:  make([]string, 0, len(boxes)),
			Scores: make([]float64, 0, len(boxes)),
			Boxes:  make([][]utils.Point, 0, len(boxes)),
		}
		for _, b := range boxes {
			batch.Texts = append(batch.Texts, b.Word)
			batch.Scores = append(batch.Scores, b.Confidence/100.0)
			batch.Boxes = append(batch.Boxes, rectCorners(b.Box))
		}
		return RawResult{Kind: KindBatch, Batch: batch}, nil
	}

	text, err := client.Text()
	if err != nil {
		return RawResult{}, fmt.Errorf("recognize: %w", err)
	}
	if text == "" {
		return RawResult{}, nil
	}
	// Word confidences are unavailable on this path; report full confidence
	// so the permissive acceptance policy still admits the line.
	return RawResult{Kind: KindLines, Lines: []Line{{Text: text, Confidence: 1.0}}}, nil
}

// Close releases the Tesseract client, if one was ever created.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// rectCorners expands an axis-aligned rectangle into TL/TR/BR/BL corners.
func rectCorners(r image.Rectangle) []utils.Point {
	return []utils.Point{
		{X: float64(r.Min.X), Y: float64(r.Min.Y)},
		{X: float64(r.Max.X), Y: float64(r.Min.Y)},
		{X: float64(r.Max.X), Y: float64(r.Max.Y)},
		{X: float64(r.Min.X), Y: float64(r.Max.Y)},
	}
}
