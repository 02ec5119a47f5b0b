package cmd

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/etas-sim/etas-sim/sim"
)

// Preset is a named ETAS parameter set in defaults.yaml.
type Preset struct {
	Description    string    `yaml:"description"`
	Theta          sim.Theta `yaml:"theta"`
	Beta           float64   `yaml:"beta"`
	BetaAftershock float64   `yaml:"beta_aftershock"`
	Mc             float64   `yaml:"mc"`
	DeltaM         float64   `yaml:"delta_m"`
	MMax           float64   `yaml:"m_max"`
	// BoundingPolygon is the default region (WKT, lon lat order).
	BoundingPolygon string `yaml:"bounding_polygon"`
}

// Params converts the preset to model parameters.
func (p Preset) Params() sim.ModelParameters {
	return sim.ModelParameters{
		Theta:          p.Theta,
		Beta:           p.Beta,
		BetaAftershock: p.BetaAftershock,
		Mc:             p.Mc,
		DeltaM:         p.DeltaM,
		MMax:           p.MMax,
	}
}

// Config represents the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true).
type Config struct {
	Version string            `yaml:"version"`
	Presets map[string]Preset `yaml:"presets"`
}

// loadDefaultsConfig parses defaults.yaml with strict field checking.
func loadDefaultsConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading defaults file: %w", err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing defaults YAML: %w", err)
	}
	return cfg, nil
}

// loadPreset returns the named preset after validating its parameters.
func loadPreset(path, name string) (Preset, error) {
	cfg, err := loadDefaultsConfig(path)
	if err != nil {
		return Preset{}, err
	}
	p, ok := cfg.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (have %v)", name, cfg.names())
	}
	if err := p.Params().Validate(); err != nil {
		return Preset{}, fmt.Errorf("preset %s: %w", name, err)
	}
	return p, nil
}

func (c Config) names() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the parameter presets in the defaults file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadDefaultsConfig(defaultsFilePath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		out := cmd.OutOrStdout()
		for _, name := range cfg.names() {
			p := cfg.Presets[name]
			br := p.Theta.BranchingRatio(p.Beta)
			fmt.Fprintf(out, "%-14s mc=%.2f beta=%.2f branching=%.3f  %s\n", name, p.Mc, p.Beta, br, p.Description)
		}
	},
}
