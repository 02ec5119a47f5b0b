package calibration

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CatalogEvent is one row of the observed catalog the parameters were
// inverted on.
type CatalogEvent struct {
	ID        string    `validate:"required"`
	Time      time.Time `validate:"required"`
	Latitude  float64   `validate:"latitude"`
	Longitude float64   `validate:"longitude"`
	Magnitude float64
}

// SourceEvent names a catalog event that triggers aftershocks in the
// forecast period.
type SourceEvent struct {
	ID      string  `validate:"required"`
	XiPlus1 float64 `validate:"gt=0"`
}

// TargetEvent is an event with its probability of being background, used as
// a candidate for background placement.
type TargetEvent struct {
	ID          string
	Time        time.Time
	Latitude    float64 `validate:"latitude"`
	Longitude   float64 `validate:"longitude"`
	Magnitude   float64
	PBackground float64 `validate:"gte=0,lte=1"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02",
}

// ParseTime accepts ISO-8601 timestamps with either a 'T' or a space
// separator, optional fractional seconds and zone. Values without a zone are
// UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// ReadCatalog reads id, latitude, longitude, time and magnitude columns.
func ReadCatalog(path string) ([]CatalogEvent, error) {
	var out []CatalogEvent
	err := readTable(path, []string{"id", "latitude", "longitude", "time", "magnitude"}, func(r record) error {
		e := CatalogEvent{ID: r.str("id")}
		e.Latitude = r.float("latitude")
		e.Longitude = r.float("longitude")
		e.Magnitude = r.float("magnitude")
		e.Time = r.time("time")
		if r.err != nil {
			return r.err
		}
		if err := validate.Struct(e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// ReadSources reads an id column and an optional xi_plus_1 column (default 1).
func ReadSources(path string) ([]SourceEvent, error) {
	var out []SourceEvent
	err := readTable(path, []string{"id"}, func(r record) error {
		e := SourceEvent{ID: r.str("id"), XiPlus1: 1}
		if r.has("xi_plus_1") && r.str("xi_plus_1") != "" {
			e.XiPlus1 = r.float("xi_plus_1")
		}
		if r.err != nil {
			return r.err
		}
		if err := validate.Struct(e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// ReadTargets reads latitude, longitude, magnitude and P_background; id and
// time are optional.
func ReadTargets(path string) ([]TargetEvent, error) {
	var out []TargetEvent
	err := readTable(path, []string{"latitude", "longitude", "magnitude", "P_background"}, func(r record) error {
		var e TargetEvent
		e.Latitude = r.float("latitude")
		e.Longitude = r.float("longitude")
		e.Magnitude = r.float("magnitude")
		e.PBackground = r.float("P_background")
		if r.has("id") {
			e.ID = r.str("id")
		}
		if r.has("time") && r.str("time") != "" {
			e.Time = r.time("time")
		}
		if r.err != nil {
			return r.err
		}
		if err := validate.Struct(e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// Grid is a background rate grid with weights normalized to a maximum of 1.
type Grid struct {
	Latitudes  []float64
	Longitudes []float64
	Weights    []float64
	// CellLat and CellLon are the grid spacing in degrees, zero when the
	// grid has a single row or column.
	CellLat    float64
	CellLon    float64
	CellJitter bool
}

// ReadGrid reads a rate grid and normalizes the rates by their maximum.
func ReadGrid(gs GridSpec) (*Grid, error) {
	rateCol := gs.RateColumn
	if rateCol == "" {
		rateCol = "rate"
	}
	g := &Grid{CellJitter: gs.CellJitter}
	var rates []float64
	err := readTable(gs.File, []string{"latitude", "longitude", rateCol}, func(r record) error {
		lat, lon, rate := r.float("latitude"), r.float("longitude"), r.float(rateCol)
		if r.err != nil {
			return r.err
		}
		if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
			return fmt.Errorf("rate must be finite and >= 0, got %v", rate)
		}
		g.Latitudes = append(g.Latitudes, lat)
		g.Longitudes = append(g.Longitudes, lon)
		rates = append(rates, rate)
		return nil
	})
	if err != nil {
		return nil, err
	}
	maxRate := 0.0
	for _, r := range rates {
		maxRate = math.Max(maxRate, r)
	}
	if maxRate == 0 {
		return nil, fmt.Errorf("background grid %s: all rates are zero", gs.File)
	}
	g.Weights = make([]float64, len(rates))
	for i, r := range rates {
		g.Weights[i] = r / maxRate
	}
	g.CellLat = spacing(g.Latitudes)
	g.CellLon = spacing(g.Longitudes)
	return g, nil
}

// spacing is the smallest gap between distinct coordinate values, rounded to
// four decimals.
func spacing(values []float64) float64 {
	uniq := append([]float64(nil), values...)
	sort.Float64s(uniq)
	best := math.Inf(1)
	for i := 1; i < len(uniq); i++ {
		if d := uniq[i] - uniq[i-1]; d > 0 && d < best {
			best = d
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return math.Round(best*1e4) / 1e4
}

// record is a CSV row addressed by header name. The first parse failure is
// kept in err and later accessors become no-ops.
type record struct {
	col map[string]int
	rec []string
	err error
}

func (r *record) has(name string) bool {
	_, ok := r.col[name]
	return ok
}

func (r *record) str(name string) string {
	return strings.TrimSpace(r.rec[r.col[name]])
}

func (r *record) float(name string) float64 {
	if r.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(r.str(name), 64)
	if err != nil {
		r.err = fmt.Errorf("column %s: %w", name, err)
	}
	return v
}

func (r *record) time(name string) time.Time {
	if r.err != nil {
		return time.Time{}
	}
	t, err := ParseTime(r.str(name))
	if err != nil {
		r.err = fmt.Errorf("column %s: %w", name, err)
	}
	return t
}

// readTable streams a headed CSV file through fn, checking that the required
// columns exist. An optional unnamed leading index column is tolerated.
func readTable(path string, required []string, fn func(record) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header of %s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing columns %s", path, strings.Join(missing, ", "))
	}

	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
		if len(rec) != len(header) {
			return fmt.Errorf("%s line %d: %d fields, header has %d", path, line, len(rec), len(header))
		}
		if err := fn(record{col: col, rec: rec}); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
}
