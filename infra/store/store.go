package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no run carries the requested id.
var ErrNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// RunRecord captures one simulate, filter or calibrate invocation.
type RunRecord struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Filter    string    `json:"filter,omitempty"`
	Snow      string    `json:"snow"`
	Hydro     string    `json:"hydro"`
	Params    []float64 `json:"params,omitempty"`
	Members   int       `json:"members,omitempty"`
	Steps     int       `json:"steps"`
	Metric    string    `json:"metric,omitempty"`
	Score     *float64  `json:"score,omitempty"`
	MeanQ     *float64  `json:"mean_q,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	InputPath string    `json:"input_path,omitempty"`
}

// NewRunRecord returns a record with a fresh id, started now.
func NewRunRecord(command string) RunRecord {
	return RunRecord{ID: uuid.NewString(), Command: command, Start: time.Now().UTC()}
}

// Finish stamps the end time and status from err.
func (r *RunRecord) Finish(err error) {
	r.End = time.Now().UTC()
	r.Status = StatusOK
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
	}
}

// Duration is the wall time of the run.
func (r RunRecord) Duration() time.Duration { return r.End.Sub(r.Start) }

// Query filters stored runs. Zero fields match everything.
type Query struct {
	ID      string
	Command string
	Start   time.Time
	End     time.Time
	// Limit keeps the most recent runs only.
	Limit int
}

func (q Query) match(r RunRecord) bool {
	if q.ID != "" && r.ID != q.ID {
		return false
	}
	if q.Command != "" && r.Command != q.Command {
		return false
	}
	if !q.Start.IsZero() && r.Start.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Start.After(q.End) {
		return false
	}
	return true
}

func (q Query) limit(res []RunRecord) []RunRecord {
	if q.Limit > 0 && len(res) > q.Limit {
		return res[len(res)-q.Limit:]
	}
	return res
}

// RunStore persists RunRecords and supports querying.
type RunStore interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q Query) ([]RunRecord, error)
	Close() error
}

// Get returns the run with the given id.
func Get(ctx context.Context, s RunStore, id string) (RunRecord, error) {
	res, err := s.Query(ctx, Query{ID: id})
	if err != nil {
		return RunRecord{}, err
	}
	if len(res) == 0 {
		return RunRecord{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return res[len(res)-1], nil
}

// Open creates the store selected by cfg.Backend.
func Open(cfg Config) (RunStore, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return NewJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}
}
