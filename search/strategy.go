package search

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidStrategy = errors.New("search: invalid strategy")

// Strategy bundles the sample search parameters common to the geostatistics
// methods.
type Strategy struct {
	Neighborhood Neighborhood
	// DesiredSampleCount is the most samples a query returns.
	DesiredSampleCount int
	// MinDistanceBetweenSamples is the least distance between any two
	// returned samples. Zero disables the check.
	MinDistanceBetweenSamples float64
	// MinRequiredSampleCount is the least samples a query must find to
	// succeed.
	MinRequiredSampleCount int
}

// NewStrategy returns a validated strategy.
func NewStrategy(nb Neighborhood, desired int, minDistance float64, minRequired int) (Strategy, error) {
	s := Strategy{
		Neighborhood:              nb,
		DesiredSampleCount:        desired,
		MinDistanceBetweenSamples: minDistance,
		MinRequiredSampleCount:    minRequired,
	}
	return s, s.Validate()
}

func (s Strategy) Validate() error {
	if s.Neighborhood.radii[0] == 0 {
		return fmt.Errorf("%w: no neighborhood", ErrInvalidStrategy)
	}
	if s.DesiredSampleCount < 0 || s.MinRequiredSampleCount < 0 {
		return fmt.Errorf("%w: negative sample counts", ErrInvalidStrategy)
	}
	if s.MinRequiredSampleCount > s.DesiredSampleCount {
		return fmt.Errorf("%w: %d samples required but only %d desired",
			ErrInvalidStrategy, s.MinRequiredSampleCount, s.DesiredSampleCount)
	}
	if s.MinDistanceBetweenSamples < 0 || math.IsNaN(s.MinDistanceBetweenSamples) {
		return fmt.Errorf("%w: minimum distance %g", ErrInvalidStrategy, s.MinDistanceBetweenSamples)
	}
	return nil
}
