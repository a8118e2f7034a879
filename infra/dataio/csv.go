package dataio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/vann/core/model"
)

// ErrMissingColumn is returned when a required column is absent from the header.
var ErrMissingColumn = errors.New("missing column")

// Series is a forcing table with its aligned discharge observations.
type Series struct {
	// Time is empty when the file has no date column.
	Time     []time.Time
	Forcings []model.Forcing
	// Obs holds model.Missing where no observation exists. It is nil when
	// the file has no observation column.
	Obs []float64
	// Source is the forcing file path, empty for in-memory series.
	Source string
}

// Len returns the number of time steps.
func (s Series) Len() int { return len(s.Forcings) }

// ObsOrMissing returns Obs, or an all-missing series when none was read.
func (s Series) ObsOrMissing() []float64 {
	if s.Obs != nil {
		return s.Obs
	}
	out := make([]float64, len(s.Forcings))
	for i := range out {
		out[i] = model.Missing
	}
	return out
}

var columnAliases = map[string]string{
	"date":   "time",
	"time":   "time",
	"prec":   "prec",
	"precip": "prec",
	"p":      "prec",
	"tair":   "tair",
	"temp":   "tair",
	"t":      "tair",
	"epot":   "epot",
	"pet":    "epot",
	"obs":    "obs",
	"qobs":   "obs",
	"q":      "obs",
	"runoff": "obs",
	"flow":   "obs",
}

type layout struct {
	time, prec, tair, epot, obs int
	bandTair, bandPrec          []int
}

func parseHeader(header []string) (layout, error) {
	l := layout{time: -1, prec: -1, tair: -1, epot: -1, obs: -1}
	bandTair := map[int]int{}
	bandPrec := map[int]int{}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if base, band, ok := strings.Cut(name, "_"); ok {
			n, err := strconv.Atoi(band)
			if err == nil && n >= 1 {
				switch columnAliases[base] {
				case "tair":
					bandTair[n-1] = i
					continue
				case "prec":
					bandPrec[n-1] = i
					continue
				}
			}
		}
		switch columnAliases[name] {
		case "time":
			l.time = i
		case "prec":
			l.prec = i
		case "tair":
			l.tair = i
		case "epot":
			l.epot = i
		case "obs":
			l.obs = i
		}
	}
	if l.prec < 0 {
		return l, fmt.Errorf("prec: %w", ErrMissingColumn)
	}
	var err error
	if l.bandTair, err = bandColumns("tair", bandTair); err != nil {
		return l, err
	}
	if l.bandPrec, err = bandColumns("prec", bandPrec); err != nil {
		return l, err
	}
	return l, nil
}

// bandColumns orders band columns and rejects gaps such as tair_1, tair_3.
func bandColumns(name string, m map[int]int) ([]int, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make([]int, len(m))
	for i := range out {
		col, ok := m[i]
		if !ok {
			return nil, fmt.Errorf("%s_%d: %w", name, i+1, ErrMissingColumn)
		}
		out[i] = col
	}
	return out, nil
}

// ReadCSV parses a comma separated forcing table with a header row.
// Recognised columns are date, prec, tair, epot and obs plus per band
// overrides tair_N and prec_N (N starting at 1). Forcing cells must be
// numeric; empty, NA or NaN observation cells are read as missing.
func ReadCSV(r io.Reader) (Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	header, err := cr.Read()
	if err != nil {
		return Series{}, fmt.Errorf("read header: %w", err)
	}
	l, err := parseHeader(header)
	if err != nil {
		return Series{}, err
	}
	var s Series
	if l.obs >= 0 {
		s.Obs = []float64{}
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Series{}, err
		}
		line, _ := cr.FieldPos(0)
		f, err := l.forcing(rec)
		if err != nil {
			return Series{}, fmt.Errorf("line %d: %w", line, err)
		}
		s.Forcings = append(s.Forcings, f)
		if l.time >= 0 {
			ts, err := parseTime(rec[l.time])
			if err != nil {
				return Series{}, fmt.Errorf("line %d: %w", line, err)
			}
			s.Time = append(s.Time, ts)
		}
		if l.obs >= 0 {
			v, err := parseObs(rec[l.obs])
			if err != nil {
				return Series{}, fmt.Errorf("line %d: obs: %w", line, err)
			}
			s.Obs = append(s.Obs, v)
		}
	}
	return s, nil
}

func (l layout) forcing(rec []string) (model.Forcing, error) {
	var f model.Forcing
	var err error
	if f.Prec, err = parseValue("prec", rec[l.prec]); err != nil {
		return f, err
	}
	if l.tair >= 0 {
		if f.Tair, err = parseValue("tair", rec[l.tair]); err != nil {
			return f, err
		}
	}
	if l.epot >= 0 {
		if f.Epot, err = parseValue("epot", rec[l.epot]); err != nil {
			return f, err
		}
	}
	if f.BandTair, err = parseBands("tair", rec, l.bandTair); err != nil {
		return f, err
	}
	if f.BandPrec, err = parseBands("prec", rec, l.bandPrec); err != nil {
		return f, err
	}
	return f, nil
}

func parseBands(name string, rec []string, cols []int) ([]float64, error) {
	if len(cols) == 0 {
		return nil, nil
	}
	out := make([]float64, len(cols))
	for i, c := range cols {
		v, err := parseValue(fmt.Sprintf("%s_%d", name, i+1), rec[c])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseValue(name, cell string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: non-finite forcing value %q", name, cell)
	}
	return v, nil
}

func parseObs(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "na", "nan", "null":
		return model.Missing, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return model.Missing, nil
	}
	return v, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"}

func parseTime(cell string) (time.Time, error) {
	cell = strings.TrimSpace(cell)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", cell)
}

// LoadCSV reads the forcing table at path.
func LoadCSV(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, err
	}
	defer func() { _ = f.Close() }()
	s, err := ReadCSV(f)
	if err != nil {
		return Series{}, fmt.Errorf("%s: %w", path, err)
	}
	s.Source = path
	return s, nil
}

// ReadObservations parses a table holding an obs column and an optional
// date column.
func ReadObservations(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := -1
	for i, h := range header {
		if columnAliases[strings.ToLower(strings.TrimSpace(h))] == "obs" {
			col = i
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("obs: %w", ErrMissingColumn)
	}
	obs := []float64{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return obs, nil
		}
		if err != nil {
			return nil, err
		}
		v, err := parseObs(rec[col])
		if err != nil {
			line, _ := cr.FieldPos(col)
			return nil, fmt.Errorf("line %d: obs: %w", line, err)
		}
		obs = append(obs, v)
	}
}

// Load reads forcings from forcingPath and, when obsPath is set,
// observations from a separate table. The observation series is checked
// against the forcing time index.
func Load(forcingPath, obsPath string) (Series, error) {
	s, err := LoadCSV(forcingPath)
	if err != nil {
		return Series{}, err
	}
	if obsPath == "" {
		return s, nil
	}
	f, err := os.Open(obsPath)
	if err != nil {
		return Series{}, err
	}
	defer func() { _ = f.Close() }()
	obs, err := ReadObservations(f)
	if err != nil {
		return Series{}, fmt.Errorf("%s: %w", obsPath, err)
	}
	if err := model.CheckAligned(s.Forcings, obs); err != nil {
		return Series{}, err
	}
	s.Obs = obs
	return s, nil
}
