package ocr

import "strings"

// Normalize converts a raw recognizer result into a uniform ordered
// candidate list. An empty or malformed raw result yields an empty slice,
// never an error.
func Normalize(raw RawResult) []Candidate {
	switch raw.Kind {
	case KindLines:
		out := make([]Candidate, 0, len(raw.Lines))
		for _, l := range raw.Lines {
			out = append(out, Candidate{Text: l.Text, Confidence: l.Confidence, Box: l.Box})
		}
		return out
	case KindBatch:
		out := make([]Candidate, 0, len(raw.Batch.Texts))
		for i, text := range raw.Batch.Texts {
			c := Candidate{Text: text}
			if i < len(raw.Batch.Scores) {
				c.Confidence = raw.Batch.Scores[i]
			}
			if i < len(raw.Batch.Boxes) {
				c.Box = raw.Batch.Boxes[i]
			}
			out = append(out, c)
		}
		return out
	default:
		return []Candidate{}
	}
}

// JoinAccepted space-joins every candidate with confidence above zero, in
// recognizer-return order. The zero cutoff is deliberately permissive; it
// keeps weak reads visible for diagnosis instead of filtering for quality.
func JoinAccepted(candidates []Candidate) string {
	accepted := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence > 0.0 {
			accepted = append(accepted, c.Text)
		}
	}
	return strings.Join(accepted, " ")
}
