package scenarios

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	require.NotEmpty(t, files)
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestLoad(t *testing.T) {
	sc, err := Load("enkf_gr4j_bias.yaml")
	require.NoError(t, err)
	assert.Equal(t, "enkf", sc.Filter.Kind)
	assert.Equal(t, 50, sc.Filter.Members)
	assert.Equal(t, uint64(11), sc.Filter.Seed)
	assert.Equal(t, 0.05, sc.Filter.ObsError.MinSigma)
	assert.Equal(t, []float64{150, 0.5, 60, 1.5}, sc.Truth.HydroParams)
	assert.Equal(t, []int{30, 31, 32, 60}, sc.ObsGaps)
	assert.Equal(t, 1.0, sc.Expected.MaxRMSERatio)

	forcings, err := sc.Forcing.Series()
	require.NoError(t, err)
	require.Len(t, forcings, 120)
	assert.Equal(t, 12.0, forcings[20].Prec)
	assert.Equal(t, 8.0, forcings[5].Tair)
	assert.Equal(t, 2.5, forcings[5].Epot)

	obs, err := sc.Observations(forcings)
	require.NoError(t, err)
	require.Len(t, obs, 120)
	assert.True(t, math.IsNaN(obs[31]))
	assert.False(t, math.IsNaN(obs[29]))
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	dir := t.TempDir()
	cases := map[string]string{
		"syntax":  "model: [unclosed",
		"model":   "model:\n  hydro: sacramento\n",
		"filter":  "filter:\n  kind: ukf\n",
		"members": "filter:\n  members: [1, 2]\n",
	}
	for name, data := range cases {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestForcingDefErrors(t *testing.T) {
	_, err := ForcingDef{Steps: 0, Prec: []float64{1}}.Series()
	assert.Error(t, err)
	_, err = ForcingDef{Steps: 3}.Series()
	assert.Error(t, err)

	f, err := ForcingDef{Steps: 3, Prec: []float64{1, 2}}.Series()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 1}, []float64{f[0].Prec, f[1].Prec, f[2].Prec})
	assert.Zero(t, f[2].Tair)
}
