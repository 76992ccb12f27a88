// Package detect proposes plate corner points from full frames. Absence of
// a plate and absence of a model are structurally identical outcomes: a nil
// point slice.
package detect

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/platewarp/internal/utils"
	"github.com/disintegration/imaging"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// Detector proposes four plate corner points for an image. A nil slice
// means "no plate found" or "model unavailable".
type Detector interface {
	Detect(img image.Image) ([]utils.Point, error)
	Close() error
}

// Config holds configuration for the ONNX plate detector.
type Config struct {
	ModelPath     string  // path to the detection ONNX model
	ConfThreshold float32 // minimum confidence for a detection
	InputSize     int     // square model input size in pixels
	NumThreads    int     // intra-op threads (0 = runtime default)
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		ModelPath:     "models/plate-detector.onnx",
		ConfThreshold: 0.4,
		InputSize:     640,
		NumThreads:    0,
	}
}

// ONNXDetector runs a YOLO-style single-class detection model through ONNX
// Runtime. The session is created lazily on first use; a failed load is
// remembered and downgrades every Detect call to "no plate" instead of
// failing the caller.
type ONNXDetector struct {
	cfg Config

	mu         sync.Mutex
	session    *onnxrt.DynamicAdvancedSession
	inputName  string
	outputName string
	loadErr    error
	loadTried  bool
}

// NewONNXDetector creates a detector with the given configuration.
func NewONNXDetector(cfg Config) *ONNXDetector {
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	return &ONNXDetector{cfg: cfg}
}

func (d *ONNXDetector) ensureSession() error {
	if d.loadTried {
		return d.loadErr
	}
	d.loadTried = true

	if !onnxrt.IsInitialized() {
		if err := onnxrt.InitializeEnvironment(); err != nil {
			d.loadErr = fmt.Errorf("initialize onnx runtime: %w", err)
			return d.loadErr
		}
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(d.cfg.ModelPath)
	if err != nil {
		d.loadErr = fmt.Errorf("inspect detection model: %w", err)
		return d.loadErr
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		d.loadErr = fmt.Errorf("detection model %s has no usable inputs/outputs", d.cfg.ModelPath)
		return d.loadErr
	}
	d.inputName = inputs[0].Name
	d.outputName = outputs[0].Name

	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		d.loadErr = fmt.Errorf("create session options: %w", err)
		return d.loadErr
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("Failed to destroy session options", "error", err)
		}
	}()
	if d.cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(d.cfg.NumThreads); err != nil {
			d.loadErr = fmt.Errorf("set detector threads: %w", err)
			return d.loadErr
		}
	}

	session, err := onnxrt.NewDynamicAdvancedSession(d.cfg.ModelPath,
		[]string{d.inputName}, []string{d.outputName}, opts)
	if err != nil {
		d.loadErr = fmt.Errorf("create detection session: %w", err)
		return d.loadErr
	}
	d.session = session
	return nil
}

// Detect runs the model and returns the four corners of the most confident
// detection, or nil when nothing clears the confidence threshold.
func (d *ONNXDetector) Detect(img image.Image) ([]utils.Point, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureSession(); err != nil {
		// Model unavailable behaves like "no plate found".
		slog.Debug("Plate detector unavailable", "error", err)
		return nil, nil
	}

	size := d.cfg.InputSize
	resized := imaging.Resize(img, size, size, imaging.Linear)
	data := tensorFromImage(resized)

	input, err := onnxrt.NewTensor(onnxrt.NewShape(1, 3, int64(size), int64(size)), data)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() {
		if err := input.Destroy(); err != nil {
			slog.Warn("Failed to destroy input tensor", "error", err)
		}
	}()

	outputs := []onnxrt.Value{nil}
	if err := d.session.Run([]onnxrt.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("run detection model: %w", err)
	}
	out, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected detection output type")
	}
	defer func() {
		if err := out.Destroy(); err != nil {
			slog.Warn("Failed to destroy output tensor", "error", err)
		}
	}()

	shape := out.GetShape()
	rows, cols := detectionGrid(shape)
	box, conf, found := bestDetection(out.GetData(), rows, cols, d.cfg.ConfThreshold)
	if !found {
		return nil, nil
	}
	slog.Debug("Plate detected", "confidence", conf)

	b := img.Bounds()
	return boxCorners(box, float64(b.Dx()), float64(b.Dy())), nil
}

// Close releases the ONNX session, if one was created.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.session = nil
	return err
}

// tensorFromImage converts an image to a normalized NCHW float32 tensor.
func tensorFromImage(img image.Image) []float32 {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]float32, 3*w*h)
	for y := range h {
		for x := range w {
			r, g, bl, _ := nrgba.At(x+b.Min.X, y+b.Min.Y).RGBA()
			idx := y*w + x
			data[idx] = float32(r>>8) / 255.0
			data[w*h+idx] = float32(g>>8) / 255.0
			data[2*w*h+idx] = float32(bl>>8) / 255.0
		}
	}
	return data
}
