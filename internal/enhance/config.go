package enhance

import "fmt"

// MorphOp names the optional morphological operation applied after
// binarization.
type MorphOp string

const (
	MorphNone     MorphOp = "none"
	MorphDilation MorphOp = "dilation"
	MorphErosion  MorphOp = "erosion"
)

// AutoThreshold selects adaptive Gaussian thresholding instead of a fixed
// global threshold.
const AutoThreshold = -1

// Config holds configuration for the enhancement pipeline.
type Config struct {
	Threshold  int     // -1 = adaptive, 0..255 = fixed global threshold
	MorphOp    MorphOp // optional dilation/erosion after binarization
	KernelSize int     // side of the square structuring element
}

// DefaultConfig returns the default enhancement configuration.
func DefaultConfig() Config {
	return Config{
		Threshold:  AutoThreshold,
		MorphOp:    MorphNone,
		KernelSize: 1,
	}
}

// Validate checks config values for consistency.
func (c Config) Validate() error {
	if c.Threshold < AutoThreshold || c.Threshold > 255 {
		return fmt.Errorf("threshold must be -1..255, got %d", c.Threshold)
	}
	switch c.MorphOp {
	case MorphNone, MorphDilation, MorphErosion, "":
	default:
		return fmt.Errorf("unknown morphological operation %q", c.MorphOp)
	}
	if c.KernelSize < 1 {
		return fmt.Errorf("kernel size must be at least 1, got %d", c.KernelSize)
	}
	return nil
}
