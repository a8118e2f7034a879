package model

import "errors"

var (
	// ErrInvalidParameterCount is returned when a parameter vector does not
	// match the fixed parameter count of a model variant.
	ErrInvalidParameterCount = errors.New("invalid parameter count")
	// ErrFractionSum is returned when elevation band fractions do not sum to one.
	ErrFractionSum = errors.New("band fractions do not sum to 1")
	// ErrFilterDegeneracy is returned when every particle weight collapses to zero.
	ErrFilterDegeneracy = errors.New("filter degeneracy: all particle weights are zero")
	// ErrForcingLengthMismatch is returned when forcing and observation series
	// are not aligned on the same time index.
	ErrForcingLengthMismatch = errors.New("forcing length mismatch")
	// ErrUnknownKind is returned when a model or filter name cannot be resolved.
	ErrUnknownKind = errors.New("unknown kind")
)
