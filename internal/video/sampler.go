// Package video implements the multi-frame path: deterministic frame
// sampling, video capture, and majority-vote aggregation of per-frame
// plate reads.
package video

import (
	"errors"
	"fmt"
)

// ErrInvalidTimeRange indicates the requested time window contains no
// frames. The aggregator reports it as a zero-frame result rather than a
// failure.
var ErrInvalidTimeRange = errors.New("requested time range contains no frames")

// SamplePlan yields a finite, evenly spaced sequence of frame indices
// covering the requested time window. The sequence is lazy and
// non-restartable: each Next call consumes one index.
type SamplePlan struct {
	StartFrame int
	EndFrame   int
	Step       int

	limit   int
	next    int
	yielded int
}

// NewSamplePlan computes the sampling window. endTime < 0 means "to the end
// of the video"; an end time past the video duration clamps to it.
func NewSamplePlan(fps float64, totalFrames int, startTime, endTime float64, numFrames int) (*SamplePlan, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %g", fps)
	}
	if numFrames <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", numFrames)
	}

	duration := float64(totalFrames) / fps
	if endTime < 0 || endTime > duration {
		endTime = duration
	}

	startFrame := int(startTime * fps)
	if startFrame < 0 {
		startFrame = 0
	}
	endFrame := int(endTime * fps)
	if endFrame > totalFrames {
		endFrame = totalFrames
	}

	framesToScan := endFrame - startFrame
	if framesToScan <= 0 {
		return nil, ErrInvalidTimeRange
	}

	step := framesToScan / numFrames
	if step < 1 {
		step = 1
	}

	return &SamplePlan{
		StartFrame: startFrame,
		EndFrame:   endFrame,
		Step:       step,
		limit:      numFrames,
		next:       startFrame,
	}, nil
}

// Next returns the next frame index to examine. The second return value is
// false once numFrames indices were yielded or the window is exhausted.
func (p *SamplePlan) Next() (int, bool) {
	if p.yielded >= p.limit || p.next >= p.EndFrame {
		return 0, false
	}
	idx := p.next
	p.next += p.Step
	p.yielded++
	return idx, true
}
