// Package poisson generates Poisson-distributed spike trains for driving a
// simulation without external input.
//
// Two regimes keep per-tick cost bounded. Sparse sources draw exponential
// inter-spike intervals and count ticks down to the next spike. Dense
// sources draw the number of spikes directly from the Poisson distribution
// each tick, since at high rates the countdown would fire every tick anyway.
package poisson

import "math"

// FastRateCutoff is the per-tick rate at or above which a source switches
// from interval countdown to per-tick Poisson draws.
const FastRateCutoff = 0.25

// Rand is the randomness a source consumes. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
	ExpFloat64() float64
}

// Source emits spikes for one neuron at a fixed mean rate between a start
// and end tick.
type Source struct {
	Neuron uint32

	rate  float64 // mean spikes per tick
	start uint32
	end   uint32 // exclusive; 0 means no end

	fast         bool
	expMinusRate float64 // precomputed for the dense regime
	ticksToSpike float64 // countdown for the sparse regime

	rng Rand
}

// NewSource creates a source for a neuron emitting rate spikes per tick on
// average, active in [start, end). A zero end means the source never stops.
// A non-positive rate never spikes.
func NewSource(neuron uint32, rate float64, start, end uint32, rng Rand) *Source {
	s := &Source{
		Neuron: neuron,
		rate:   rate,
		start:  start,
		end:    end,
		rng:    rng,
	}
	if rate >= FastRateCutoff {
		s.fast = true
		s.expMinusRate = math.Exp(-rate)
	} else if rate > 0 {
		s.ticksToSpike = s.nextInterval()
	}
	return s
}

func (s *Source) nextInterval() float64 {
	return s.rng.ExpFloat64() / s.rate
}

// Tick advances the source one simulation tick and returns the number of
// spikes it emits during that tick.
func (s *Source) Tick(tick uint32) int {
	if s.rate <= 0 || tick < s.start || (s.end != 0 && tick >= s.end) {
		return 0
	}
	if s.fast {
		return s.poissonDraw()
	}

	n := 0
	s.ticksToSpike--
	for s.ticksToSpike <= 0 {
		n++
		s.ticksToSpike += s.nextInterval()
	}
	return n
}

// poissonDraw samples Poisson(rate) by multiplying uniforms until the
// product falls below exp(-rate).
func (s *Source) poissonDraw() int {
	k := 0
	p := 1.0
	for {
		p *= s.rng.Float64()
		if p <= s.expMinusRate {
			return k
		}
		k++
	}
}

// Population drives a set of sources and fans their spikes into a sink.
type Population struct {
	sources []*Source
}

// NewPopulation creates an empty population.
func NewPopulation() *Population {
	return &Population{}
}

// Add registers a source.
func (p *Population) Add(s *Source) {
	p.sources = append(p.sources, s)
}

// Len returns the number of sources.
func (p *Population) Len() int { return len(p.sources) }

// Tick advances every source one tick, calling emit once per spike with the
// source's neuron id. Returns the total number of spikes emitted.
func (p *Population) Tick(tick uint32, emit func(neuron uint32)) int {
	total := 0
	for _, s := range p.sources {
		for i := s.Tick(tick); i > 0; i-- {
			emit(s.Neuron)
			total++
		}
	}
	return total
}
