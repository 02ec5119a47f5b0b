package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical parameters and
// inputs MUST produce bit-for-bit identical catalogs.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemBackground drives background counts, placement and times.
	SubsystemBackground = "background"

	// SubsystemAftershock drives aftershock delays and spatial offsets.
	SubsystemAftershock = "aftershock"

	// SubsystemMagnitude drives magnitude draws for every event.
	SubsystemMagnitude = "magnitude"

	// SubsystemProductivity drives the Poisson offspring counts.
	SubsystemProductivity = "productivity"
)

// SubsystemRun returns the subsystem name for the N-th run of a batch.
// Used to derive one independent stream per simulated catalog.
func SubsystemRun(id int) string {
	return fmt.Sprintf("run_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation: each subsystem is a PCG stream seeded with
// (masterSeed, fnv1a64(subsystemName)). Adding draws to one subsystem never
// shifts the sequence of another.
//
// Thread-safety: NOT thread-safe. Each run owns its own PartitionedRNG.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewPCG(uint64(p.key), uint64(fnv1a64(name))))
	p.subsystems[name] = rng
	return rng
}

// ForRun returns a fresh PartitionedRNG for run id of a batch. The child key
// is masterSeed XOR fnv1a64(SubsystemRun(id)), so runs are independent of each
// other and of the order in which they execute.
func (p *PartitionedRNG) ForRun(id int) *PartitionedRNG {
	return NewPartitionedRNG(SimulationKey(int64(p.key) ^ fnv1a64(SubsystemRun(id))))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
