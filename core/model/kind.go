package model

import (
	"fmt"
	"strings"
)

// SnowKind selects a snow model variant.
type SnowKind int

const (
	SnowTinBasic SnowKind = iota
	SnowTinStandard
)

// String returns the canonical name of the snow model variant.
func (k SnowKind) String() string {
	switch k {
	case SnowTinBasic:
		return "TinBasic"
	case SnowTinStandard:
		return "TinStandard"
	default:
		return "unknown"
	}
}

// ParseSnowKind maps a configuration name onto a SnowKind.
func ParseSnowKind(s string) (SnowKind, error) {
	switch normalize(s) {
	case "tinbasic":
		return SnowTinBasic, nil
	case "tinstandard":
		return SnowTinStandard, nil
	}
	return 0, fmt.Errorf("snow model %q: %w", s, ErrUnknownKind)
}

// HydroKind selects a rainfall-runoff model variant.
type HydroKind int

const (
	HydroGr4j HydroKind = iota
	HydroHbv
)

// String returns the canonical name of the hydrological model variant.
func (k HydroKind) String() string {
	switch k {
	case HydroGr4j:
		return "Gr4j"
	case HydroHbv:
		return "Hbv"
	default:
		return "unknown"
	}
}

// ParseHydroKind maps a configuration name onto a HydroKind.
func ParseHydroKind(s string) (HydroKind, error) {
	switch normalize(s) {
	case "gr4j":
		return HydroGr4j, nil
	case "hbv":
		return HydroHbv, nil
	}
	return 0, fmt.Errorf("hydrological model %q: %w", s, ErrUnknownKind)
}

// FilterKind selects the data assimilation scheme.
type FilterKind int

const (
	FilterEnKF FilterKind = iota
	FilterParticle
)

// String returns the configuration name of the filter.
func (k FilterKind) String() string {
	switch k {
	case FilterEnKF:
		return "enkf"
	case FilterParticle:
		return "particle"
	default:
		return "unknown"
	}
}

// ParseFilterKind maps a configuration name onto a FilterKind.
func ParseFilterKind(s string) (FilterKind, error) {
	switch normalize(s) {
	case "enkf", "enkffilter":
		return FilterEnKF, nil
	case "particle", "pf", "particlefilter":
		return FilterParticle, nil
	}
	return 0, fmt.Errorf("filter %q: %w", s, ErrUnknownKind)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, "-", "")
}
