package pipeline

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/platewarp/internal/enhance"
	"github.com/MeKo-Tech/platewarp/internal/ocr"
	"github.com/MeKo-Tech/platewarp/internal/rectify"
	"github.com/MeKo-Tech/platewarp/internal/utils"
)

// ProcessPlate rectifies the quadrilateral, recognizes text on the padded
// rectified image and computes the enhanced diagnostic view.
//
// The recognizer consumes the padded color image, not the enhanced one; the
// engine applies its own preprocessing and the binarized view exists only
// so callers can see roughly what a thresholded input would look like.
func (p *Pipeline) ProcessPlate(ctx context.Context, img image.Image,
	pts []utils.Point, opts PlateOptions,
) (*PlateResult, error) {
	if p == nil || p.engine == nil {
		return nil, errors.New("pipeline not initialized")
	}
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	totalStart := time.Now()
	result := &PlateResult{}

	rectStart := time.Now()
	warped, err := rectify.Rectify(img, pts, opts.rectifyConfig(p.cfg.Rectify))
	if err != nil {
		return nil, err
	}
	rotated := rectify.RotateCenter(warped, opts.RotationDegrees)
	padded := rectify.PadBorder(rotated, p.cfg.Rectify.PadPixels)
	result.Rectified = padded
	result.Processing.RectifyNs = time.Since(rectStart).Nanoseconds()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Recognition failures (including an engine that never initialized)
	// degrade to "no text"; the geometry output stays usable.
	recStart := time.Now()
	raw, recErr := p.engine.Recognize(padded)
	if recErr != nil {
		slog.Warn("Recognition unavailable, returning geometry only", "error", recErr)
		result.Candidates = []ocr.Candidate{}
	} else {
		result.Candidates = ocr.Normalize(raw)
		result.Text = ocr.JoinAccepted(result.Candidates)
	}
	result.Processing.RecognizeNs = time.Since(recStart).Nanoseconds()

	enhStart := time.Now()
	enhanced, err := enhance.Enhance(padded, opts.enhanceConfig())
	if err != nil {
		return nil, err
	}
	result.Enhanced = enhanced
	result.Processing.EnhanceNs = time.Since(enhStart).Nanoseconds()
	result.Processing.TotalNs = time.Since(totalStart).Nanoseconds()

	slog.Debug("Plate processed",
		"text", result.Text,
		"candidates", len(result.Candidates),
		"total_ms", result.Processing.TotalNs/1e6)
	return result, nil
}
