package pipeline

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/platewarp/internal/enhance"
	"github.com/MeKo-Tech/platewarp/internal/ocr"
	"github.com/MeKo-Tech/platewarp/internal/rectify"
)

// PlateOptions carries the per-request tuning for one rectification and
// recognition pass.
type PlateOptions struct {
	WidthScale      float64 `json:"width_scale"`
	AspectRatio     float64 `json:"aspect_ratio,omitempty"` // 0 = derive from quad
	RotationDegrees float64 `json:"rotation_degrees"`
	Threshold       int     `json:"threshold"` // -1 = adaptive
	MorphOp         string  `json:"morph_op"`
	KernelSize      int     `json:"kernel_size"`
}

// DefaultPlateOptions returns the default per-request tuning.
func DefaultPlateOptions() PlateOptions {
	return PlateOptions{
		WidthScale:      1.0,
		AspectRatio:     0,
		RotationDegrees: 0,
		Threshold:       enhance.AutoThreshold,
		MorphOp:         string(enhance.MorphNone),
		KernelSize:      1,
	}
}

// Validate checks option values for consistency.
func (o PlateOptions) Validate() error {
	if err := o.rectifyConfig(rectify.DefaultConfig()).Validate(); err != nil {
		return fmt.Errorf("invalid rectification options: %w", err)
	}
	if err := o.enhanceConfig().Validate(); err != nil {
		return fmt.Errorf("invalid enhancement options: %w", err)
	}
	return nil
}

func (o PlateOptions) rectifyConfig(base rectify.Config) rectify.Config {
	base.WidthScale = o.WidthScale
	base.AspectRatio = o.AspectRatio
	base.RotationDegrees = o.RotationDegrees
	return base
}

func (o PlateOptions) enhanceConfig() enhance.Config {
	op := enhance.MorphOp(o.MorphOp)
	if o.MorphOp == "" {
		op = enhance.MorphNone
	}
	return enhance.Config{
		Threshold:  o.Threshold,
		MorphOp:    op,
		KernelSize: o.KernelSize,
	}
}

// PlateResult is the single-image output: the padded rectified view fed to
// the recognizer, the binarized diagnostic view, the space-joined accepted
// text and the per-candidate detail records.
type PlateResult struct {
	Rectified  image.Image
	Enhanced   image.Image
	Text       string
	Candidates []ocr.Candidate

	Processing struct {
		RectifyNs   int64 `json:"rectify_ns"`
		RecognizeNs int64 `json:"recognize_ns"`
		EnhanceNs   int64 `json:"enhance_ns"`
		TotalNs     int64 `json:"total_ns"`
	}
}
