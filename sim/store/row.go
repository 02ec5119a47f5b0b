// Package store persists simulated catalogs. It has no dependency on sim/:
// it stores plain rows, one per event.
package store

import "time"

// TimeLayout is the timestamp format of CSV artifacts.
const TimeLayout = "2006-01-02 15:04:05.000000"

// Row is one persisted event.
type Row struct {
	ID           int64
	CatalogID    int
	Latitude     float64
	Longitude    float64
	Time         time.Time
	Magnitude    float64
	IsBackground bool

	// Lineage columns, written only by LayoutFull.
	ParentID       int64
	Generation     int
	LineageID      int64
	NumAftershocks int
}

// Sink receives batches of rows. Implementations serialize concurrent
// WriteBatch calls; one call is written atomically with respect to others.
type Sink interface {
	WriteBatch(rows []Row) error
	Close() error
}
