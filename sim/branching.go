package sim

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// BranchingSimulator expands a catalog generation by generation until no
// event has pending offspring. Only the newest generation is revisited, so the
// cost is linear in the number of events produced.
type BranchingSimulator struct {
	Aftershocks *AftershockGenerator
	Limits      LimitsConfig
}

// Expand appends every descendant of the catalog's current events and
// returns the number of generations added.
func (b *BranchingSimulator) Expand(rng *PartitionedRNG, cat *Catalog, w AftershockWindow) (int, error) {
	limits := b.Limits.withDefaults()
	started := time.Now()
	frontier := cat.Filter(func(e *Event) bool { return e.NumAftershocks > 0 })
	added := 0

	for len(frontier) > 0 {
		next := frontier[0].Generation + 1
		if next > limits.MaxGenerations {
			return added, fmt.Errorf("%w: generation %d exceeds cap %d", ErrRunawayBranching, next, limits.MaxGenerations)
		}
		if limits.MaxWallClock > 0 && time.Since(started) > limits.MaxWallClock {
			return added, fmt.Errorf("%w: wall clock %v exceeded at generation %d",
				ErrRunawayBranching, limits.MaxWallClock, next)
		}
		pending := 0
		for i := range frontier {
			pending += frontier[i].NumAftershocks
		}
		if cat.Len()+pending > limits.MaxEvents {
			return added, fmt.Errorf("%w: %d events plus %d pending exceed cap %d",
				ErrRunawayBranching, cat.Len(), pending, limits.MaxEvents)
		}

		offspring, err := b.Aftershocks.Generate(rng, frontier, w)
		if err != nil {
			return added, err
		}
		ids, err := cat.AppendOffspring(offspring)
		if err != nil {
			return added, err
		}
		logrus.Debugf("generation %d: %d sources produced %d aftershocks", next, len(frontier), len(offspring))
		if len(offspring) > 0 {
			added++
		}

		frontier = frontier[:0:0]
		for i := range offspring {
			if offspring[i].NumAftershocks > 0 {
				e := offspring[i]
				e.ID = ids[i]
				frontier = append(frontier, e)
			}
		}
	}
	return added, nil
}
