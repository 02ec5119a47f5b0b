package sim

import "time"

// EventID identifies an event within one simulated catalog. Zero is reserved
// for "no parent".
type EventID int64

// NoParent marks root events.
const NoParent EventID = 0

// Event is one earthquake of a catalog, observed or simulated.
//
// Invariants maintained by the generators:
//   - Generation(child) = Generation(parent) + 1; roots have generation 0 and NoParent
//   - Time(child) > Time(parent)
//   - LineageID is inherited unchanged from the parent; for roots it equals ID
type Event struct {
	ID         EventID
	ParentID   EventID
	Generation int
	LineageID  EventID

	Time      time.Time
	Latitude  float64
	Longitude float64
	Magnitude float64

	IsBackground        bool
	ExpectedAftershocks float64
	NumAftershocks      int
	XiPlus1             float64

	// SourceID is the identifier of an observed event in the input catalog.
	// Empty for simulated events.
	SourceID string
}

// IsRoot reports whether e has no parent.
func (e *Event) IsRoot() bool {
	return e.ParentID == NoParent
}

// ByTime orders events by occurrence time, then by id.
func ByTime(events []Event) func(i, j int) bool {
	return func(i, j int) bool {
		if events[i].Time.Equal(events[j].Time) {
			return events[i].ID < events[j].ID
		}
		return events[i].Time.Before(events[j].Time)
	}
}

// daysToDuration converts fractional days to a Duration. Callers must have
// bounded the value; durations saturate beyond roughly 292 years.
func daysToDuration(days float64) time.Duration {
	return time.Duration(days * float64(24*time.Hour))
}

// DaysBetween returns (b − a) in fractional days.
func DaysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}
