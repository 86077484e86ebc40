package analysis

import "errors"

var (
	// ErrInsufficientData indicates the series is too short after cleaning.
	// Recovered by the analyzer with a "No Data" assessment, never fatal.
	ErrInsufficientData = errors.New("analysis: insufficient data")
	// ErrBadInput indicates a caller contract violation (mis-shaped or
	// non-numeric input, invalid configuration). Hosting layers map it to a
	// client-facing failure.
	ErrBadInput = errors.New("analysis: bad input")
)
