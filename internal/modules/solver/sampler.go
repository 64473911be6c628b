package solver

import (
	"math"
	"math/rand"

	"github.com/aristath/quantfolio/internal/domain"
	"github.com/aristath/quantfolio/internal/modules/qubo"
)

// Probability clamp keeps every bit flippable even in late layers.
const (
	minBitProbability = 0.05
	maxBitProbability = 0.95
)

// Sampler is a layered stochastic search. Each layer draws candidate bit
// vectors from a per-bit probability distribution, polishes each candidate
// with greedy bit-flip descent, then anneals the distribution toward the
// incumbent before the next layer. All randomness flows from a single seeded
// source so runs are reproducible.
type Sampler struct {
	layers     int
	iterations int
	seed       int64
}

// NewSampler returns the heuristic solver. Layers is the number of
// anneal-and-resample rounds, iterations the candidates drawn per round.
func NewSampler(layers, iterations int, seed int64) (*Sampler, error) {
	if layers < 1 {
		return nil, &domain.ConfigurationError{Field: "solver_layers", Reason: "must be at least 1"}
	}
	if iterations < 1 {
		return nil, &domain.ConfigurationError{Field: "solver_iterations", Reason: "must be at least 1"}
	}
	return &Sampler{layers: layers, iterations: iterations, seed: seed}, nil
}

// Name implements Solver.
func (s *Sampler) Name() string {
	return string(domain.StrategyHeuristic)
}

// Solve implements Solver.
func (s *Sampler) Solve(p *qubo.Problem) (Result, error) {
	bits := p.TotalBits()
	rng := rand.New(rand.NewSource(s.seed))

	probs := make([]float64, bits)
	for i := range probs {
		probs[i] = 0.5
	}

	best := Result{Objective: math.Inf(1)}
	candidate := make([]int, bits)

	for layer := 0; layer < s.layers; layer++ {
		for it := 0; it < s.iterations; it++ {
			for i := range candidate {
				if rng.Float64() < probs[i] {
					candidate[i] = 1
				} else {
					candidate[i] = 0
				}
			}

			value := descend(p, candidate)
			if value < best.Objective {
				best.Objective = value
				best.Bits = append(best.Bits[:0], candidate...)
			}
		}

		if best.Bits == nil {
			continue
		}
		// Mix the distribution toward the incumbent, more aggressively
		// in later layers
		alpha := float64(layer+1) / float64(s.layers+1)
		for i := range probs {
			probs[i] = clamp(probs[i]*(1-alpha)+float64(best.Bits[i])*alpha)
		}
	}

	return best, nil
}

// descend greedily flips single bits while any flip lowers the energy,
// mutating bits in place and returning the final energy. Bits are scanned in
// index order and the first improving flip is taken, so the walk is
// deterministic for a given start vector.
func descend(p *qubo.Problem, bits []int) float64 {
	value := p.Evaluate(bits)
	for improved := true; improved; {
		improved = false
		for i := range bits {
			bits[i] ^= 1
			if v := p.Evaluate(bits); v < value {
				value = v
				improved = true
			} else {
				bits[i] ^= 1
			}
		}
	}
	return value
}

func clamp(v float64) float64 {
	if v < minBitProbability {
		return minBitProbability
	}
	if v > maxBitProbability {
		return maxBitProbability
	}
	return v
}
