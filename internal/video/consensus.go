package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/platewarp/internal/detect"
	"github.com/MeKo-Tech/platewarp/internal/pipeline"
	"github.com/MeKo-Tech/platewarp/internal/utils"
)

// Sentinel results for sweeps that produced no usable text.
const (
	NoPlateText      = "No Plate Detected"
	InvalidRangeText = "Invalid Time Range"
	NoConfidence     = "0"
)

// minAcceptedLen is the exclusive lower bound on trimmed text length for a
// frame's read to count as a vote. One- and two-character reads are almost
// always partial plates or noise.
const minAcceptedLen = 2

// PlateProcessor is the slice of the single-plate pipeline the aggregator
// drives per frame.
type PlateProcessor interface {
	ProcessPlate(ctx context.Context, img image.Image, pts []utils.Point,
		opts pipeline.PlateOptions) (*pipeline.PlateResult, error)
}

// FrameSample records one accepted per-frame result, including the
// rectified view as a base64 JPEG blob for debugging.
type FrameSample struct {
	FrameIndex int    `json:"frame_idx"`
	Text       string `json:"text"`
	Image      string `json:"image,omitempty"`
}

// Result is the aggregated outcome of a video sweep.
type Result struct {
	FinalText       string        `json:"final_text"`
	Confidence      string        `json:"confidence"`
	FramesProcessed int           `json:"frames_processed"`
	Samples         []FrameSample `json:"debug_frames"`
}

// Progress describes one examined frame, for callers streaming sweep
// status.
type Progress struct {
	FrameIndex int    `json:"frame_idx"`
	Accepted   int    `json:"accepted"`
	Text       string `json:"text,omitempty"`
}

// Aggregator runs detection and plate processing over sampled frames and
// majority-votes the accepted text strings. Frames are processed strictly
// one at a time; the recognizer handle must not see concurrent calls.
type Aggregator struct {
	detector   detect.Detector
	processor  PlateProcessor
	opts       pipeline.PlateOptions
	onProgress func(Progress)
}

// AggregatorOption customizes an Aggregator.
type AggregatorOption func(*Aggregator)

// WithProgress registers a callback invoked after each examined frame.
func WithProgress(fn func(Progress)) AggregatorOption {
	return func(a *Aggregator) { a.onProgress = fn }
}

// WithPlateOptions overrides the per-frame processing options.
func WithPlateOptions(opts pipeline.PlateOptions) AggregatorOption {
	return func(a *Aggregator) { a.opts = opts }
}

// NewAggregator creates an aggregator. Frames use the default tuning with
// width scale 2.0; small plates cropped from video frames need the extra
// resolution before recognition.
func NewAggregator(detector detect.Detector, processor PlateProcessor, options ...AggregatorOption) *Aggregator {
	opts := pipeline.DefaultPlateOptions()
	opts.WidthScale = 2.0

	a := &Aggregator{detector: detector, processor: processor, opts: opts}
	for _, o := range options {
		o(a)
	}
	return a
}

// ProcessVideo sweeps the sampled frames of src and returns the consensus
// result. An empty time window is reported as a zero-frame result, not an
// error; per-frame failures are logged and skipped.
func (a *Aggregator) ProcessVideo(ctx context.Context, src FrameSource,
	numFrames int, startTime, endTime float64,
) (*Result, error) {
	plan, err := NewSamplePlan(src.FPS(), src.TotalFrames(), startTime, endTime, numFrames)
	if err != nil {
		if errors.Is(err, ErrInvalidTimeRange) {
			return &Result{
				FinalText:       InvalidRangeText,
				Confidence:      NoConfidence,
				FramesProcessed: 0,
				Samples:         []FrameSample{},
			}, nil
		}
		return nil, err
	}

	var (
		accepted []string
		samples  []FrameSample
		examined int
	)

	for {
		idx, ok := plan.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, sample, ok := a.examineFrame(ctx, src, idx, len(accepted))
		if !ok {
			continue
		}
		examined++
		if text != "" {
			accepted = append(accepted, text)
			samples = append(samples, sample)
		}
	}

	result := &Result{
		FinalText:       NoPlateText,
		Confidence:      NoConfidence,
		FramesProcessed: examined,
		Samples:         samples,
	}
	if len(accepted) > 0 {
		winner, count := majorityVote(accepted)
		result.FinalText = winner
		result.Confidence = voteLabel(count, len(accepted))
	}
	return result, nil
}

// examineFrame processes one sampled frame. The returned text is empty when
// the frame yielded no accepted read; ok is false when the frame failed
// outright and should not count as processed.
func (a *Aggregator) examineFrame(ctx context.Context, src FrameSource,
	idx, acceptedSoFar int,
) (string, FrameSample, bool) {
	img, err := src.FrameAt(idx)
	if err != nil {
		slog.Warn("Skipping unreadable frame", "frame", idx, "error", err)
		return "", FrameSample{}, false
	}

	pts, err := a.detector.Detect(img)
	if err != nil {
		slog.Warn("Detector failed on frame", "frame", idx, "error", err)
		return "", FrameSample{}, false
	}
	if pts == nil {
		a.report(Progress{FrameIndex: idx, Accepted: acceptedSoFar})
		return "", FrameSample{}, true
	}

	res, err := a.processor.ProcessPlate(ctx, img, pts, a.opts)
	if err != nil {
		slog.Warn("Plate processing failed on frame", "frame", idx, "error", err)
		return "", FrameSample{}, false
	}

	text := strings.TrimSpace(res.Text)
	if len(text) <= minAcceptedLen {
		a.report(Progress{FrameIndex: idx, Accepted: acceptedSoFar})
		return "", FrameSample{}, true
	}

	sample := FrameSample{FrameIndex: idx, Text: text}
	if blob, err := utils.JPEGDataURL(res.Rectified); err == nil {
		sample.Image = blob
	}
	a.report(Progress{FrameIndex: idx, Accepted: acceptedSoFar + 1, Text: text})
	return text, sample, true
}

func (a *Aggregator) report(p Progress) {
	if a.onProgress != nil {
		a.onProgress(p)
	}
}

// majorityVote returns the most frequent string and its count. Ties break
// toward the string seen first among the samples.
func majorityVote(texts []string) (string, int) {
	counts := make(map[string]int, len(texts))
	best := 0
	for _, t := range texts {
		counts[t]++
		if counts[t] > best {
			best = counts[t]
		}
	}
	for _, t := range texts {
		if counts[t] == best {
			return t, best
		}
	}
	return texts[0], best
}

func voteLabel(count, total int) string {
	return fmt.Sprintf("%d/%d matches", count, total)
}
