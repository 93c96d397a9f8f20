package eikonal

import "errors"

var (
	// ErrSlowness: a slowness value is negative or NaN.
	ErrSlowness = errors.New("eikonal: invalid slowness")

	// ErrConfig: order outside 1..3, negative eps or refinement, or a serial
	// loop bound below one.
	ErrConfig = errors.New("eikonal: invalid solver configuration")

	// ErrNoSeed: an initial field without a single finite travel time.
	ErrNoSeed = errors.New("eikonal: initial field has no finite value")

	// ErrMethod: unknown solver method.
	ErrMethod = errors.New("eikonal: unknown method")
)
