package grid

import "errors"

// Sentinel errors shared by every package operating on a Grid.
var (
	// ErrBounds: a source, receiver or query coordinate lies outside the axes.
	ErrBounds = errors.New("grid: coordinate out of bounds")

	// ErrShape: a slowness or travel-time slice does not match the node count.
	ErrShape = errors.New("grid: array shape does not match axes")

	// ErrEmptyAxis: an axis has no coordinates.
	ErrEmptyAxis = errors.New("grid: empty axis")

	// ErrOrder: an axis is not strictly ascending.
	ErrOrder = errors.New("grid: axis not ascending")

	// ErrUnresolved: a travel time needed for interpolation or ray tracing was
	// never finalized (disconnected region or unsolved field).
	ErrUnresolved = errors.New("grid: unresolved travel time")
)
