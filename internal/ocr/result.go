// Package ocr defines the recognizer boundary: the shape-ambiguous raw
// result, the normalizer that flattens it, and the Tesseract-backed engine.
package ocr

import "github.com/MeKo-Tech/platewarp/internal/utils"

// Candidate is one recognized text span with its confidence and source
// region box. Immutable once created.
type Candidate struct {
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
	Box        []utils.Point `json:"box,omitempty"`
}

// ResultKind tags the shape of a raw recognizer result.
type ResultKind int

const (
	// KindEmpty means the recognizer returned nothing usable.
	KindEmpty ResultKind = iota
	// KindLines is the sequence-of-pairs shape: (box, (text, confidence)).
	KindLines
	// KindBatch is the structured-batch shape with parallel slices.
	KindBatch
)

// Line is one entry of the sequence-of-pairs shape.
type Line struct {
	Box        []utils.Point
	Text       string
	Confidence float64
}

// Batch carries parallel text/score/box slices. Scores and Boxes may be
// shorter than Texts; missing entries default to zero confidence and no box.
type Batch struct {
	Texts  []string
	Scores []float64
	Boxes  [][]utils.Point
}

// RawResult is the recognizer's raw output. Exactly one payload matches the
// Kind tag; the normalizer switches on it rather than inspecting types at
// runtime.
type RawResult struct {
	Kind  ResultKind
	Lines []Line
	Batch Batch
}
