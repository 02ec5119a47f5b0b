package sim

import "fmt"

// Catalog is an append-only sequence of events indexed by id. Appends allocate
// fresh ids; nothing is ever removed in place.
type Catalog struct {
	events []Event
	index  map[EventID]int
	nextID EventID
}

// NewCatalog returns an empty catalog whose first allocated id is 1.
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[EventID]int), nextID: 1}
}

// AppendRoots adds generation-0 events. Each receives a fresh id and becomes
// the root of its own lineage.
func (c *Catalog) AppendRoots(events []Event) []EventID {
	ids := make([]EventID, len(events))
	for i := range events {
		e := events[i]
		e.ID = c.allocate()
		e.ParentID = NoParent
		e.Generation = 0
		e.LineageID = e.ID
		c.push(e)
		ids[i] = e.ID
	}
	return ids
}

// AppendOffspring adds aftershocks produced by a generator. Parent, generation
// and lineage must already be set; only the id is assigned here.
func (c *Catalog) AppendOffspring(events []Event) ([]EventID, error) {
	for i := range events {
		if _, ok := c.index[events[i].ParentID]; !ok {
			return nil, fmt.Errorf("offspring %d references unknown parent %d", i, events[i].ParentID)
		}
	}
	ids := make([]EventID, len(events))
	for i := range events {
		e := events[i]
		e.ID = c.allocate()
		c.push(e)
		ids[i] = e.ID
	}
	return ids, nil
}

// Get returns the event with the given id.
func (c *Catalog) Get(id EventID) (Event, bool) {
	i, ok := c.index[id]
	if !ok {
		return Event{}, false
	}
	return c.events[i], true
}

// Len returns the number of events.
func (c *Catalog) Len() int {
	return len(c.events)
}

// Events returns a copy of the events in insertion order.
func (c *Catalog) Events() []Event {
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Filter returns the events satisfying keep, in insertion order. The catalog
// itself is not modified.
func (c *Catalog) Filter(keep func(*Event) bool) []Event {
	var out []Event
	for i := range c.events {
		if keep(&c.events[i]) {
			out = append(out, c.events[i])
		}
	}
	return out
}

// MaxGeneration returns the deepest generation present, or -1 when empty.
func (c *Catalog) MaxGeneration() int {
	g := -1
	for i := range c.events {
		if c.events[i].Generation > g {
			g = c.events[i].Generation
		}
	}
	return g
}

func (c *Catalog) allocate() EventID {
	id := c.nextID
	c.nextID++
	return id
}

func (c *Catalog) push(e Event) {
	c.index[e.ID] = len(c.events)
	c.events = append(c.events, e)
}
