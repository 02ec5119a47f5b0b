package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

// Layout selects the columns of a CSV artifact.
type Layout int

const (
	// LayoutSingle is a single catalog keyed by event id.
	LayoutSingle Layout = iota
	// LayoutBatch holds many catalogs tagged with catalog_id.
	LayoutBatch
	// LayoutFull adds lineage columns to LayoutSingle.
	LayoutFull
)

var layoutColumns = map[Layout][]string{
	LayoutSingle: {"id", "latitude", "longitude", "time", "magnitude", "is_background"},
	LayoutBatch:  {"latitude", "longitude", "time", "magnitude", "is_background", "catalog_id"},
	LayoutFull: {"id", "latitude", "longitude", "time", "magnitude", "is_background",
		"parent", "generation", "lineage", "n_aftershocks"},
}

// Columns returns the header of a layout.
func (l Layout) Columns() []string {
	return layoutColumns[l]
}

// CSVSink writes rows to a CSV file. The first batch truncates the file and
// writes the header; later batches append rows only.
type CSVSink struct {
	path   string
	layout Layout

	mu      sync.Mutex
	started bool
}

// NewCSVSink returns a sink for path. Nothing is written until the first batch.
func NewCSVSink(path string, layout Layout) *CSVSink {
	return &CSVSink{path: path, layout: layout}
}

// WriteBatch appends rows, creating the file with a header on first use.
func (s *CSVSink) WriteBatch(rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flag := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if !s.started {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(s.path, flag, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer file.Close()

	if err := writeRows(file, s.layout, rows, !s.started); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	s.started = true
	return file.Close()
}

// Close is a no-op; every batch is flushed and closed when written.
func (s *CSVSink) Close() error {
	return nil
}

// WriteCSV writes rows to w with the given layout, header included.
func WriteCSV(w io.Writer, layout Layout, rows []Row) error {
	return writeRows(w, layout, rows, true)
}

func writeRows(w io.Writer, layout Layout, rows []Row, header bool) error {
	writer := csv.NewWriter(w)
	if header {
		if err := writer.Write(layout.Columns()); err != nil {
			return fmt.Errorf("writing CSV header: %w", err)
		}
	}
	for i := range rows {
		if err := writer.Write(formatRow(layout, &rows[i])); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatRow(layout Layout, r *Row) []string {
	lat := strconv.FormatFloat(r.Latitude, 'f', -1, 64)
	lon := strconv.FormatFloat(r.Longitude, 'f', -1, 64)
	mag := strconv.FormatFloat(r.Magnitude, 'f', -1, 64)
	ts := r.Time.UTC().Format(TimeLayout)
	switch layout {
	case LayoutBatch:
		return []string{lat, lon, ts, mag, strconv.FormatBool(r.IsBackground), strconv.Itoa(r.CatalogID)}
	case LayoutFull:
		return []string{
			strconv.FormatInt(r.ID, 10), lat, lon, ts, mag, strconv.FormatBool(r.IsBackground),
			strconv.FormatInt(r.ParentID, 10), strconv.Itoa(r.Generation),
			strconv.FormatInt(r.LineageID, 10), strconv.Itoa(r.NumAftershocks),
		}
	default:
		return []string{strconv.FormatInt(r.ID, 10), lat, lon, ts, mag, strconv.FormatBool(r.IsBackground)}
	}
}

// ReadCSV loads an artifact written by any layout. Columns are matched by
// header name; columns absent from the file stay zero.
func ReadCSV(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}
		row, err := parseRow(col, rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(col map[string]int, rec []string) (Row, error) {
	var r Row
	var err error
	field := func(name string) (string, bool) {
		i, ok := col[name]
		if !ok {
			return "", false
		}
		return rec[i], true
	}
	parseFloat := func(name string, dst *float64) {
		if s, ok := field(name); ok && err == nil {
			*dst, err = strconv.ParseFloat(s, 64)
		}
	}
	parseInt := func(name string, dst *int64) {
		if s, ok := field(name); ok && err == nil {
			*dst, err = strconv.ParseInt(s, 10, 64)
		}
	}

	var catalogID, generation, nAftershocks int64
	parseInt("id", &r.ID)
	parseFloat("latitude", &r.Latitude)
	parseFloat("longitude", &r.Longitude)
	parseFloat("magnitude", &r.Magnitude)
	parseInt("catalog_id", &catalogID)
	parseInt("parent", &r.ParentID)
	parseInt("generation", &generation)
	parseInt("lineage", &r.LineageID)
	parseInt("n_aftershocks", &nAftershocks)
	if s, ok := field("is_background"); ok && err == nil {
		r.IsBackground, err = strconv.ParseBool(s)
	}
	if s, ok := field("time"); ok && err == nil {
		r.Time, err = time.Parse(TimeLayout, s)
	}
	if err != nil {
		return Row{}, err
	}
	r.CatalogID, r.Generation, r.NumAftershocks = int(catalogID), int(generation), int(nAftershocks)
	return r, nil
}
