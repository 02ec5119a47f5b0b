package sim

import (
	"time"

	"github.com/etas-sim/etas-sim/sim/geo"
)

// AftershockWindow bounds the aftershocks a generator may emit.
type AftershockWindow struct {
	// End is the last admissible occurrence time.
	End time.Time
	// LengthDays is the longest admissible delay after the parent.
	LengthDays float64
	// AuxiliaryEnd, when non-zero, rejects aftershocks at or before it.
	// Those times belong to the observed past.
	AuxiliaryEnd time.Time
}

// AftershockGenerator produces the direct aftershocks of a set of sources.
type AftershockGenerator struct {
	Params     ModelParameters
	Times      *TimeSampler
	Places     *SpatialSampler
	Magnitudes MagnitudeSampler
	// Region, when set, discards aftershocks falling outside it.
	Region *geo.Region
}

// NewAftershockGenerator builds the delay and offset samplers for params.
func NewAftershockGenerator(params ModelParameters, mags MagnitudeSampler, region *geo.Region) (*AftershockGenerator, error) {
	times, err := NewTimeSampler(params.Theta)
	if err != nil {
		return nil, err
	}
	return &AftershockGenerator{
		Params:     params,
		Times:      times,
		Places:     NewSpatialSampler(params.Theta, params.Mc),
		Magnitudes: mags,
		Region:     region,
	}, nil
}

// Generate returns the aftershocks of sources admitted by w. Each source
// contributes up to NumAftershocks candidates. Returned events reference their
// parent and lineage but carry no id.
func (g *AftershockGenerator) Generate(rng *PartitionedRNG, sources []Event, w AftershockWindow) ([]Event, error) {
	ar := rng.ForSubsystem(SubsystemAftershock)
	var out []Event
	for si := range sources {
		src := &sources[si]
		for k := 0; k < src.NumAftershocks; k++ {
			delay, err := g.Times.Sample(ar)
			if err != nil {
				return nil, err
			}
			// Non-positive delays only arise from y rounding to 0; the
			// child must strictly follow its parent.
			if delay > w.LengthDays || delay <= 0 {
				continue
			}
			t := src.Time.Add(daysToDuration(delay))
			if t.After(w.End) {
				continue
			}
			if !w.AuxiliaryEnd.IsZero() && !t.After(w.AuxiliaryEnd) {
				continue
			}
			dLat, dLon := g.Places.Offset(ar, src.Magnitude, src.Latitude)
			lat, lon := src.Latitude+dLat, src.Longitude+dLon
			if g.Region != nil && !g.Region.Contains(lat, lon) {
				continue
			}
			out = append(out, Event{
				ParentID:   src.ID,
				Generation: src.Generation + 1,
				LineageID:  src.LineageID,
				Time:       t,
				Latitude:   lat,
				Longitude:  lon,
				XiPlus1:    1,
			})
		}
	}

	ref := g.Params.ReferenceMagnitude()
	mags := g.Magnitudes.Sample(rng.ForSubsystem(SubsystemMagnitude), len(out), g.Params.AftershockBeta(), ref)
	prod := rng.ForSubsystem(SubsystemProductivity)
	for i := range out {
		out[i].Magnitude = mags[i]
		out[i].ExpectedAftershocks = g.Params.Theta.ExpectedAftershocks(mags[i], ref)
		out[i].NumAftershocks = poisson(prod, out[i].ExpectedAftershocks)
	}
	return out, nil
}
