// Package calibration loads the inputs a forecast needs from a calibration
// bundle: the inverted ETAS parameters (YAML) and the event tables (CSV) they
// were calibrated on.
package calibration

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/etas-sim/etas-sim/sim"
	"github.com/etas-sim/etas-sim/sim/geo"
)

// Spec is the YAML document of a calibration bundle. File paths are resolved
// relative to the document.
type Spec struct {
	CalculationDate time.Time `yaml:"calculation_date"`
	Theta           sim.Theta `yaml:"theta"`
	Beta            float64   `yaml:"beta" validate:"gt=0"`
	BetaAftershock  float64   `yaml:"beta_aftershock" validate:"gte=0"`
	MRef            float64   `yaml:"m_ref"`
	DeltaM          float64   `yaml:"delta_m" validate:"gte=0"`
	MMax            float64   `yaml:"m_max" validate:"gte=0"`

	TimewindowEnd  time.Time `yaml:"timewindow_end" validate:"required"`
	AuxiliaryStart time.Time `yaml:"auxiliary_start" validate:"required,ltfield=TimewindowEnd"`

	// Exactly one of ShapeCoords ((lat, lon) pairs) or BoundingPolygon (WKT,
	// lon lat order) describes the region.
	ShapeCoords     [][2]float64 `yaml:"shape_coords" validate:"required_without=BoundingPolygon,excluded_with=BoundingPolygon"`
	BoundingPolygon string       `yaml:"bounding_polygon"`

	Catalog        string    `yaml:"catalog" validate:"required"`
	SourceEvents   string    `yaml:"source_events" validate:"required"`
	TargetEvents   string    `yaml:"target_events" validate:"required_without=BackgroundGrid"`
	BackgroundGrid *GridSpec `yaml:"background_grid"`
}

// GridSpec points at a background rate grid (latitude, longitude, rate).
type GridSpec struct {
	File string `yaml:"file" validate:"required"`
	// RateColumn defaults to "rate".
	RateColumn string `yaml:"rate_column"`
	// Jitter locations uniformly within a grid cell instead of Gaussian
	// smoothing.
	CellJitter bool `yaml:"cell_jitter"`
}

var validate = validator.New()

// LoadSpec parses a bundle document with strict field checking.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calibration spec: %w", err)
	}
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing calibration spec: %w", err)
	}
	spec.resolvePaths(filepath.Dir(path))
	return &spec, nil
}

func (s *Spec) resolvePaths(dir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	s.Catalog = resolve(s.Catalog)
	s.SourceEvents = resolve(s.SourceEvents)
	s.TargetEvents = resolve(s.TargetEvents)
	if s.BackgroundGrid != nil {
		s.BackgroundGrid.File = resolve(s.BackgroundGrid.File)
	}
}

// Validate checks field constraints and that the parameters are usable.
func (s *Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("calibration spec: %w", err)
	}
	if err := s.ModelParameters().Validate(); err != nil {
		return fmt.Errorf("calibration spec: %w", err)
	}
	return nil
}

// ModelParameters returns the parameters as calibrated, with Mc = m_ref.
func (s *Spec) ModelParameters() sim.ModelParameters {
	return sim.ModelParameters{
		Theta:          s.Theta,
		Beta:           s.Beta,
		BetaAftershock: s.BetaAftershock,
		Mc:             s.MRef,
		DeltaM:         s.DeltaM,
		MMax:           s.MMax,
	}
}

// Region builds the simulation polygon.
func (s *Spec) Region() (*geo.Region, error) {
	if s.BoundingPolygon != "" {
		return geo.ParseWKT(s.BoundingPolygon)
	}
	return geo.NewRegion(s.ShapeCoords)
}

// Bundle is a validated spec together with its loaded tables.
type Bundle struct {
	Spec    *Spec
	Region  *geo.Region
	Catalog []CatalogEvent
	Sources []SourceEvent
	Targets []TargetEvent
	Grid    *Grid
}

// Load reads and validates the spec at path and every table it references.
func Load(path string) (*Bundle, error) {
	spec, err := LoadSpec(path)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	b := &Bundle{Spec: spec}
	if b.Region, err = spec.Region(); err != nil {
		return nil, err
	}
	if b.Catalog, err = ReadCatalog(spec.Catalog); err != nil {
		return nil, err
	}
	if b.Sources, err = ReadSources(spec.SourceEvents); err != nil {
		return nil, err
	}
	if spec.TargetEvents != "" {
		if b.Targets, err = ReadTargets(spec.TargetEvents); err != nil {
			return nil, err
		}
	}
	if spec.BackgroundGrid != nil {
		if b.Grid, err = ReadGrid(*spec.BackgroundGrid); err != nil {
			return nil, err
		}
	}
	return b, nil
}
