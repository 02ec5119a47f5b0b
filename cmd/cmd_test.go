package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// newTestCommand returns a throwaway command carrying the flags registered by
// add, parsed from args.
func newTestCommand(t *testing.T, add func(*pflag.FlagSet), args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	add(c.Flags())
	require.NoError(t, c.Flags().Parse(args))
	return c
}

// useConfigFile points --config at path for the duration of the test.
func useConfigFile(t *testing.T, path string) {
	t.Helper()
	old := configFile
	configFile = path
	t.Cleanup(func() { configFile = old })
}

// useDefaults points --defaults at the repository's defaults.yaml.
func useDefaults(t *testing.T) {
	t.Helper()
	path := "../defaults.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("defaults.yaml not found, skipping integration test")
	}
	old := defaultsFilePath
	defaultsFilePath = path
	t.Cleanup(func() { defaultsFilePath = old })
}

const bundleYAML = `calculation_date: 2022-01-01T00:00:00Z
theta:
  log10_mu: -4.57
  log10_k0: -2.75
  a: 1.13
  log10_c: -2.85
  omega: -0.13
  log10_tau: 3.57
  log10_d: -0.51
  gamma: 0.15
  rho: 0.63
beta: 2.3
m_ref: 2.2
delta_m: 0.1
timewindow_end: 2022-01-01T00:00:00Z
auxiliary_start: 2021-01-01T00:00:00Z
shape_coords: [[0, 0], [0, 1], [1, 1], [1, 0]]
catalog: catalog.csv
source_events: sources.csv
target_events: targets.csv
`

// writeBundle lays out a calibration bundle over the unit square expecting
// about ten background events per 30 days.
func writeBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"calibration.yaml": bundleYAML,
		"catalog.csv": "id,latitude,longitude,time,magnitude\n" +
			"e1,0.5,0.5,2021-11-01 00:00:00,2.2\n" +
			"e2,0.3,0.6,2021-12-20 06:00:00,3.6\n",
		"sources.csv": "id\ne1\ne2\n",
		"targets.csv": "latitude,longitude,magnitude,P_background\n" +
			"0.5,0.5,2.2,0.8\n0.3,0.6,3.6,0.2\n0.7,0.2,2.9,1.0\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return filepath.Join(dir, "calibration.yaml")
}
