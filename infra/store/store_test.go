package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRuns() []RunRecord {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	score := 0.82
	runs := []RunRecord{
		{ID: "a", Command: "simulate", Snow: "TinBasic", Hydro: "Gr4j", Steps: 10},
		{ID: "b", Command: "filter", Filter: "enkf", Snow: "TinBasic", Hydro: "Gr4j", Members: 50, Steps: 10},
		{ID: "c", Command: "calibrate", Snow: "TinStandard", Hydro: "Hbv", Metric: "nse", Score: &score, Steps: 10},
	}
	for i := range runs {
		runs[i].Start = base.Add(time.Duration(i) * time.Hour)
		runs[i].End = runs[i].Start.Add(time.Minute)
		runs[i].Status = StatusOK
	}
	return runs
}

func openStores(t *testing.T) map[string]RunStore {
	t.Helper()
	dir := t.TempDir()
	js, err := NewJSONLStore(filepath.Join(dir, "runs.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	sq, err := NewSQLiteStore(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = js.Close()
		_ = sq.Close()
	})
	return map[string]RunStore{"jsonl": js, "sqlite": sq}
}

func TestStores_AppendQuery(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, r := range sampleRuns() {
				require.NoError(t, s.Append(ctx, r))
			}

			all, err := s.Query(ctx, Query{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})

			filt, err := s.Query(ctx, Query{Command: "filter"})
			require.NoError(t, err)
			require.Len(t, filt, 1)
			assert.Equal(t, 50, filt[0].Members)

			last, err := s.Query(ctx, Query{Limit: 2})
			require.NoError(t, err)
			require.Len(t, last, 2)
			assert.Equal(t, "b", last[0].ID)

			window, err := s.Query(ctx, Query{Start: all[1].Start, End: all[1].Start})
			require.NoError(t, err)
			require.Len(t, window, 1)
			assert.Equal(t, "b", window[0].ID)

			got, err := Get(ctx, s, "c")
			require.NoError(t, err)
			require.NotNil(t, got.Score)
			assert.InDelta(t, 0.82, *got.Score, 1e-12)
			assert.Equal(t, "Hbv", got.Hydro)

			_, err = Get(ctx, s, "missing")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")
	s, err := NewJSONLStore(path, 1, 5, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	rec := NewRunRecord("simulate")
	rec.Params = make([]float64, 8192)
	rec.Finish(nil)
	for i := 0; i < 150; i++ {
		require.NoError(t, s.Append(context.Background(), rec))
	}
	files, err := filepath.Glob(filepath.Join(dir, "runs*.jsonl"))
	require.NoError(t, err)
	assert.Greater(t, len(files), 1)

	out, err := s.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRunRecord_Finish(t *testing.T) {
	r := NewRunRecord("filter")
	assert.NotEmpty(t, r.ID)
	r.Finish(errors.New("boom"))
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "boom", r.Error)
	assert.GreaterOrEqual(t, r.Duration(), time.Duration(0))

	ok := NewRunRecord("filter")
	ok.Finish(nil)
	assert.Equal(t, StatusOK, ok.Status)
	assert.NotEqual(t, r.ID, ok.ID)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{Backend: BackendSQLite, Path: filepath.Join(dir, "r.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: filepath.Join(dir, "r.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &JSONLStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(Config{Backend: "csv"})
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, BackendJSONL, c.Backend)
	assert.Equal(t, "vann_runs.jsonl", c.Path)
	assert.NoError(t, c.Validate())

	c = Config{Backend: BackendSQLite}
	c.SetDefaults()
	assert.Equal(t, "vann_runs.db", c.Path)

	c.MaxBackups = -1
	assert.Error(t, c.Validate())
}
