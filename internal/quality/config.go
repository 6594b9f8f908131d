package quality

import (
	"fmt"
	"math"
)

// Reference physical marking size. Components smaller than this need
// proportionally more pixels per module to stay legible after laser marking.
const refMarkingSizeMm = 10.0

// Weights distributes the overall score across the five sub-scores. A valid
// set sums to 1.0.
type Weights struct {
	Size        float64 `json:"size"`
	Contrast    float64 `json:"contrast"`
	Sharpness   float64 `json:"sharpness"`
	Alignment   float64 `json:"alignment"`
	Readability float64 `json:"readability"`
}

// Sum returns the total weight mass.
func (w Weights) Sum() float64 {
	return w.Size + w.Contrast + w.Sharpness + w.Alignment + w.Readability
}

// Config tunes the scoring engine. Zero values are invalid; start from
// DefaultConfig and override.
type Config struct {
	// MinModulePx is the minimum legible pixels per module at the reference
	// marking size. The size sub-score drops linearly to 0 at half of it.
	MinModulePx int

	// ContrastThreshold is the normalized dark/light separation ([0,1])
	// required for a full contrast score.
	ContrastThreshold float64

	// SharpnessThreshold is the Laplacian variance required for a full
	// sharpness score.
	SharpnessThreshold float64

	// SkewToleranceDeg is the finder-pattern skew tolerated without
	// penalty, in degrees.
	SkewToleranceDeg float64

	Weights           Weights
	PassThreshold     float64
	MarginalThreshold float64
}

// DefaultConfig returns the scoring defaults.
func DefaultConfig() Config {
	return Config{
		MinModulePx:        4,
		ContrastThreshold:  0.5,
		SharpnessThreshold: 500,
		SkewToleranceDeg:   2,
		Weights: Weights{
			Size:        0.20,
			Contrast:    0.25,
			Sharpness:   0.20,
			Alignment:   0.15,
			Readability: 0.20,
		},
		PassThreshold:     70,
		MarginalThreshold: 50,
	}
}

// Validate rejects configurations that would make scores meaningless.
func (c Config) Validate() error {
	if c.MinModulePx <= 0 {
		return fmt.Errorf("min module px must be positive, got %d", c.MinModulePx)
	}
	if c.ContrastThreshold <= 0 || c.ContrastThreshold > 1 {
		return fmt.Errorf("contrast threshold must be in (0,1], got %g", c.ContrastThreshold)
	}
	if c.SharpnessThreshold <= 0 {
		return fmt.Errorf("sharpness threshold must be positive, got %g", c.SharpnessThreshold)
	}
	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("sub-score weights must sum to 1.0, got %g", sum)
	}
	if c.MarginalThreshold >= c.PassThreshold {
		return fmt.Errorf("marginal threshold %g must be below pass threshold %g",
			c.MarginalThreshold, c.PassThreshold)
	}
	return nil
}
