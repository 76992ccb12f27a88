package rectify

import "fmt"

// Config holds configuration for the perspective rectification step.
type Config struct {
	WidthScale      float64 // scale factor applied to both target dimensions (1.0 = none)
	AspectRatio     float64 // forced width/height ratio for the target; 0 derives height from the quad
	RotationDegrees float64 // post-warp rotation about the image center
	PadPixels       int     // constant white border added after rotation
}

// DefaultConfig returns sensible defaults for rectification.
func DefaultConfig() Config {
	return Config{
		WidthScale:      1.0,
		AspectRatio:     0,
		RotationDegrees: 0,
		PadPixels:       20,
	}
}

// Validate checks config values for consistency.
func (c Config) Validate() error {
	if c.WidthScale <= 0 {
		return fmt.Errorf("width scale must be positive, got %g", c.WidthScale)
	}
	if c.AspectRatio < 0 {
		return fmt.Errorf("aspect ratio must be positive or zero, got %g", c.AspectRatio)
	}
	if c.PadPixels < 0 {
		return fmt.Errorf("pad pixels must not be negative, got %d", c.PadPixels)
	}
	return nil
}
