package sim

import (
	"sort"
	"time"
)

// ContinuationWindow places a continuation relative to the observed catalog.
type ContinuationWindow struct {
	// AuxiliaryStart is the start of the observed catalog; together with End
	// it bounds the longest delay any aftershock may have.
	AuxiliaryStart time.Time
	// AuxiliaryEnd is the end of the observed catalog and the start of the
	// simulated period.
	AuxiliaryEnd time.Time
	// End is the end of the simulated period.
	End time.Time
}

// SimulateContinuation extends an observed catalog forward in time.
//
// Observed events become generation-0 sources (not background) with ids
// 1..A in time order and the same productivity as simulated events; XiPlus1
// is carried through unchanged. A fresh background is generated over
// [AuxiliaryEnd, End) with ids following the observed range. Only aftershocks strictly after AuxiliaryEnd are kept.
func (s *Simulator) SimulateContinuation(rng *PartitionedRNG, observed []Event, w ContinuationWindow) (*Result, error) {
	background, err := s.background.Generate(rng, w.AuxiliaryEnd, w.End)
	if err != nil {
		return nil, err
	}
	auxiliary := s.prepareAuxiliary(rng, observed)

	cat := NewCatalog()
	cat.AppendRoots(auxiliary)
	cat.AppendRoots(background)

	br := s.cfg.Params.Theta.BranchingRatio(s.cfg.Params.Beta)
	logBranching(len(auxiliary)+len(background), br)

	aw := AftershockWindow{
		End:          w.End,
		LengthDays:   DaysBetween(w.AuxiliaryStart, w.End),
		AuxiliaryEnd: w.AuxiliaryEnd,
	}
	generations, err := s.branching.Expand(rng, cat, aw)
	if err != nil {
		return nil, err
	}
	return s.finish(cat, generations, br, len(background), len(auxiliary)), nil
}

// prepareAuxiliary copies and sorts the observed events and draws their
// offspring counts. The input slice is not modified.
func (s *Simulator) prepareAuxiliary(rng *PartitionedRNG, observed []Event) []Event {
	aux := make([]Event, len(observed))
	copy(aux, observed)
	sort.SliceStable(aux, func(i, j int) bool { return aux[i].Time.Before(aux[j].Time) })

	ref := s.cfg.Params.ReferenceMagnitude()
	prod := rng.ForSubsystem(SubsystemProductivity)
	for i := range aux {
		e := &aux[i]
		e.IsBackground = false
		e.ExpectedAftershocks = s.cfg.Params.Theta.ExpectedAftershocks(e.Magnitude, ref)
		e.NumAftershocks = poisson(prod, e.ExpectedAftershocks)
	}
	return aux
}
